package controller

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"inmuebles_backend/internal/middleware"
	"inmuebles_backend/internal/service"
	"inmuebles_backend/pkg/utils/response"
)

type PropertyController struct {
	properties *service.PropertyService
}

func NewPropertyController(properties *service.PropertyService) *PropertyController {
	return &PropertyController{properties: properties}
}

// paramID reads a positive numeric route parameter.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}

func (h *PropertyController) List(c *fiber.Ctx) error {
	items, pagination, err := h.properties.List(
		c.UserContext(),
		middleware.TenantID(c),
		c.Query("search"),
		c.QueryInt("page", 1),
		c.QueryInt("per_page", 0),
	)
	if err != nil {
		return response.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"data":       items,
		"pagination": pagination,
	})
}

func (h *PropertyController) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid property ID")
	}

	property, err := h.properties.Get(c.UserContext(), middleware.TenantID(c), id)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(property)
}

func (h *PropertyController) Create(c *fiber.Ctx) error {
	input := new(service.PropertyInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	property, err := h.properties.Create(c.UserContext(), middleware.TenantID(c), *input)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, property)
}

func (h *PropertyController) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid property ID")
	}

	input := new(service.PropertyInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	property, err := h.properties.Update(c.UserContext(), middleware.TenantID(c), id, *input)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(property)
}

func (h *PropertyController) TogglePublic(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid property ID")
	}

	property, err := h.properties.TogglePublic(c.UserContext(), middleware.TenantID(c), id)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(property)
}

func (h *PropertyController) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid property ID")
	}

	if err := h.properties.Delete(c.UserContext(), middleware.TenantID(c), id); err != nil {
		return response.Error(c, err)
	}
	return response.Message(c, "Property deleted successfully")
}
