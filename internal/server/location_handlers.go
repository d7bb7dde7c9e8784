package server

import (
	"blogicum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetLocations handles GET /api/v1/locations — published locations only.
func (s *Server) GetLocations(c *fiber.Ctx) error {
	locations, err := s.locationSvc().ListPublished(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(locations)
}

// AdminListLocations handles GET /api/v1/admin/locations
func (s *Server) AdminListLocations(c *fiber.Ctx) error {
	locations, err := s.locationSvc().ListAll(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(locations)
}

// AdminCreateLocation handles POST /api/v1/admin/locations
func (s *Server) AdminCreateLocation(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		IsPublished *bool  `json:"is_published"`
	}
	if err := decodeBody(c, &req); err != nil {
		return nil
	}

	location, err := s.locationSvc().Create(c.UserContext(), service.CreateLocationInput{
		Name:        req.Name,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(location)
}

// AdminUpdateLocation handles PUT /api/v1/admin/locations/:id. Unpublishing
// a location does not hide the posts that reference it.
func (s *Server) AdminUpdateLocation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name        string `json:"name"`
		IsPublished *bool  `json:"is_published"`
	}
	if err := decodeBody(c, &req); err != nil {
		return nil
	}

	location, err := s.locationSvc().Update(c.UserContext(), service.UpdateLocationInput{
		ID:          id,
		Name:        req.Name,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(location)
}

// AdminDeleteLocation handles DELETE /api/v1/admin/locations/:id.
// Referencing posts keep publishing without a location.
func (s *Server) AdminDeleteLocation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.locationSvc().Delete(c.UserContext(), id); err != nil {
		return respondServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) locationSvc() *service.LocationService {
	if s.locationService == nil {
		s.locationService = service.NewLocationService(s.locationRepo)
	}
	return s.locationService
}
