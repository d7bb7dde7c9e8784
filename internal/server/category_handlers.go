package server

import (
	"blogicum/internal/models"
	"blogicum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// categoryFeedResponse is a category feed page together with the category
// it belongs to.
type categoryFeedResponse struct {
	Category *models.Category `json:"category"`
	feedEnvelope
}

// GetCategories handles GET /api/v1/categories — published categories only.
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.categorySvc().ListPublished(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(categories)
}

// GetCategoryPosts handles GET /api/v1/categories/:slug/posts. An unknown
// or unpublished category is a 404; otherwise the page lists the
// category's publicly visible posts.
func (s *Server) GetCategoryPosts(c *fiber.Ctx) error {
	slug := c.Params("slug")

	category, feed, err := s.postSvc().CategoryFeed(c.UserContext(), slug, parsePage(c))
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(categoryFeedResponse{
		Category:     category,
		feedEnvelope: toFeedEnvelope(feed),
	})
}

// AdminListCategories handles GET /api/v1/admin/categories — every
// category, unpublished ones included.
func (s *Server) AdminListCategories(c *fiber.Ctx) error {
	categories, err := s.categorySvc().ListAll(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(categories)
}

// AdminCreateCategory handles POST /api/v1/admin/categories
func (s *Server) AdminCreateCategory(c *fiber.Ctx) error {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Slug        string `json:"slug"`
		IsPublished *bool  `json:"is_published"`
	}
	if err := decodeBody(c, &req); err != nil {
		return nil
	}

	category, err := s.categorySvc().Create(c.UserContext(), service.CreateCategoryInput{
		Title:       req.Title,
		Description: req.Description,
		Slug:        req.Slug,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(category)
}

// AdminUpdateCategory handles PUT /api/v1/admin/categories/:id. Unpublishing
// a category hides its posts from the public feeds on the next read.
func (s *Server) AdminUpdateCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Slug        string `json:"slug"`
		IsPublished *bool  `json:"is_published"`
	}
	if err := decodeBody(c, &req); err != nil {
		return nil
	}

	category, err := s.categorySvc().Update(c.UserContext(), service.UpdateCategoryInput{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Slug:        req.Slug,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(category)
}

// AdminDeleteCategory handles DELETE /api/v1/admin/categories/:id. Posts in
// the category survive as uncategorized.
func (s *Server) AdminDeleteCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.categorySvc().Delete(c.UserContext(), id); err != nil {
		return respondServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) categorySvc() *service.CategoryService {
	if s.categoryService == nil {
		s.categoryService = service.NewCategoryService(s.categoryRepo)
	}
	return s.categoryService
}
