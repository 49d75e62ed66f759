package controller

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"inmuebles_backend/internal/middleware"
	"inmuebles_backend/internal/model"
	"inmuebles_backend/internal/service"
	"inmuebles_backend/pkg/utils/response"
)

type LeadController struct {
	leads *service.LeadService
}

func NewLeadController(leads *service.LeadService) *LeadController {
	return &LeadController{leads: leads}
}

// List supports ?status=, ?read=true|false and ?property_id= filters.
func (h *LeadController) List(c *fiber.Ctx) error {
	filter := service.LeadFilter{Status: c.Query("status")}
	if raw := c.Query("read"); raw != "" {
		read := raw == "true"
		filter.Read = &read
	}
	if raw := c.Query("property_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return response.BadRequest(c, "Invalid property ID")
		}
		pid := uint(id)
		filter.PropertyID = &pid
	}

	leads, err := h.leads.List(c.UserContext(), middleware.TenantID(c), filter)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(fiber.Map{"data": leads})
}

type leadStatusInput struct {
	Status model.LeadStatus `json:"status"`
}

func (h *LeadController) UpdateStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lead ID")
	}

	input := new(leadStatusInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	lead, err := h.leads.UpdateStatus(c.UserContext(), middleware.TenantID(c), id, input.Status)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Lead status updated successfully",
		"lead":    lead,
	})
}

func (h *LeadController) MarkRead(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lead ID")
	}

	lead, err := h.leads.MarkRead(c.UserContext(), middleware.TenantID(c), id)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Lead marked as read",
		"lead":    lead,
	})
}
