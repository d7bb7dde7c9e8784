package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags returns the evaluated flag state for the current user.
// Admins additionally see the raw configured values.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	if s.featureFlags == nil {
		return c.JSON(fiber.Map{"evaluated": map[string]bool{}})
	}

	resp := fiber.Map{"evaluated": s.featureFlags.Snapshot(userID)}
	if admin, err := s.isAdmin(c, userID); err == nil && admin {
		resp["raw"] = s.featureFlags.Raw()
	}

	return c.JSON(resp)
}
