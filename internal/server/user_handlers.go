package server

import (
	"blogicum/internal/models"
	"blogicum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// profileFeedResponse is a profile feed page together with the profile
// it belongs to.
type profileFeedResponse struct {
	User models.PublicProfile `json:"user"`
	feedEnvelope
}

// GetUserProfile handles GET /api/v1/users/:username. Owners get their
// email back; everyone else sees the public shape.
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	username := c.Params("username")

	user, err := s.userSvc().GetUserByUsername(c.UserContext(), username)
	if err != nil {
		return respondServiceError(c, err)
	}

	if viewerID, ok := s.optionalUserID(c); ok && viewerID == user.ID {
		return c.JSON(ownerProfile(user))
	}
	return c.JSON(user.Public())
}

// GetUserPosts handles GET /api/v1/users/:username/posts — the profile
// feed. The profile owner sees all their posts, scheduled and unpublished
// included; everyone else sees only the publicly visible ones.
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	username := c.Params("username")
	viewerID, _ := s.optionalUserID(c)

	user, feed, err := s.postSvc().ProfileFeed(c.UserContext(), username, viewerID, parsePage(c))
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(profileFeedResponse{
		User:         user.Public(),
		feedEnvelope: toFeedEnvelope(feed),
	})
}

// UpdateMyProfile handles PUT /api/v1/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Bio       string `json:"bio"`
	}
	if err := decodeBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userSvc().UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:    userID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Bio:       req.Bio,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(ownerProfile(user))
}

// DeleteMyAccount handles DELETE /api/v1/users/me. The account's posts
// and comments are removed with it.
func (s *Server) DeleteMyAccount(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	if err := s.userSvc().DeleteAccount(c.UserContext(), userID); err != nil {
		return respondServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) userSvc() *service.UserService {
	if s.userService == nil {
		s.userService = service.NewUserService(s.userRepo)
	}
	return s.userService
}
