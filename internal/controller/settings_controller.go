package controller

import (
	"github.com/gofiber/fiber/v2"

	"inmuebles_backend/internal/catalog"
	"inmuebles_backend/internal/service"
	"inmuebles_backend/pkg/utils/response"
)

// SettingsController manages the shared catalog settings: the category list
// and the catalog caches.
type SettingsController struct {
	categories *service.CategoryService
	source     catalog.Source
}

func NewSettingsController(categories *service.CategoryService, source catalog.Source) *SettingsController {
	return &SettingsController{categories: categories, source: source}
}

type categoryInput struct {
	Name string `json:"name"`
}

func (h *SettingsController) ListCategories(c *fiber.Ctx) error {
	categories, err := h.categories.List(c.UserContext())
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(fiber.Map{"data": categories})
}

func (h *SettingsController) CreateCategory(c *fiber.Ctx) error {
	input := new(categoryInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	category, err := h.categories.Create(c.UserContext(), input.Name)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, category)
}

func (h *SettingsController) RenameCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid category ID")
	}

	input := new(categoryInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	category, err := h.categories.Rename(c.UserContext(), id, input.Name)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(category)
}

func (h *SettingsController) DeleteCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid category ID")
	}

	if err := h.categories.Delete(c.UserContext(), id); err != nil {
		return response.Error(c, err)
	}
	return response.Message(c, "Category deleted successfully")
}

// ClearCatalogCache drops every cached catalog page and option list.
func (h *SettingsController) ClearCatalogCache(c *fiber.Ctx) error {
	if err := h.source.ClearCache(c.UserContext()); err != nil {
		return response.Error(c, err)
	}
	return response.Message(c, "Catalog cache cleared")
}
