package server

import (
	"blogicum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AdminStats handles GET /api/v1/admin/stats — content totals, per-category
// activity and recent signups for the admin dashboard.
func (s *Server) AdminStats(c *fiber.Ctx) error {
	categoryLimit := c.QueryInt("categories", 0)

	overview, err := s.statsSvc().GetAdminOverview(c.UserContext(), categoryLimit)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(overview)
}

func (s *Server) statsSvc() *service.StatsService {
	if s.statsService == nil {
		s.statsService = service.NewStatsService(s.db)
	}
	return s.statsService
}
