package controller

import (
	"github.com/gofiber/fiber/v2"

	"inmuebles_backend/internal/middleware"
	"inmuebles_backend/internal/service"
	"inmuebles_backend/pkg/utils/response"
)

type StatsController struct {
	stats *service.StatsService
}

func NewStatsController(stats *service.StatsService) *StatsController {
	return &StatsController{stats: stats}
}

// GetDashboardStats returns the portfolio summary of the caller's company.
func (h *StatsController) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.stats.Dashboard(c.UserContext(), middleware.TenantID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(stats)
}
