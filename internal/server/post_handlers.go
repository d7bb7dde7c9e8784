package server

import (
	"time"

	"blogicum/internal/models"
	"blogicum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// postDetailResponse bundles a post with its full comment thread.
type postDetailResponse struct {
	*models.Post
	Comments []*models.Comment `json:"comments"`
}

// GetPosts handles GET /api/v1/posts — the home feed of publicly
// visible posts.
func (s *Server) GetPosts(c *fiber.Ctx) error {
	feed, err := s.postSvc().HomeFeed(c.UserContext(), parsePage(c))
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(toFeedEnvelope(feed))
}

// GetPost handles GET /api/v1/posts/:id. Authors see their own hidden
// posts; everyone else gets 404 for anything not publicly visible.
func (s *Server) GetPost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	viewerID, _ := s.optionalUserID(c)

	post, err := s.postSvc().GetPost(ctx, id, viewerID)
	if err != nil {
		return respondServiceError(c, err)
	}

	comments, err := s.commentSvc().ListComments(ctx, id, viewerID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(postDetailResponse{Post: post, Comments: comments})
}

// CreatePost handles POST /api/v1/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Title      string     `json:"title"`
		Text       string     `json:"text"`
		PubDate    *time.Time `json:"pub_date"`
		CategoryID *uint      `json:"category_id"`
		LocationID *uint      `json:"location_id"`
		ImageURL   string     `json:"image_url,omitempty"`
	}
	if err := decodeBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postSvc().CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID:   userID,
		Title:      req.Title,
		Text:       req.Text,
		PubDate:    req.PubDate,
		CategoryID: req.CategoryID,
		LocationID: req.LocationID,
		ImageURL:   req.ImageURL,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/v1/posts/:id. Only the author may edit;
// a denied edit names the post page as the fallback destination.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Title      string     `json:"title"`
		Text       string     `json:"text"`
		PubDate    *time.Time `json:"pub_date"`
		CategoryID *uint      `json:"category_id"`
		LocationID *uint      `json:"location_id"`
		ImageURL   string     `json:"image_url,omitempty"`
	}
	if err := decodeBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postSvc().UpdatePost(c.UserContext(), service.UpdatePostInput{
		AuthorID:   userID,
		PostID:     postID,
		Title:      req.Title,
		Text:       req.Text,
		PubDate:    req.PubDate,
		CategoryID: req.CategoryID,
		LocationID: req.LocationID,
		ImageURL:   req.ImageURL,
	})
	if err != nil {
		return respondMutationError(c, err, postID)
	}

	return c.JSON(post)
}

// DeletePost handles DELETE /api/v1/posts/:id. The post's comments go
// with it in the same transaction.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postSvc().DeletePost(c.UserContext(), userID, postID); err != nil {
		return respondMutationError(c, err, postID)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) postSvc() *service.PostService {
	if s.postService == nil {
		s.postService = service.NewPostService(
			s.postRepo, s.categoryRepo, s.locationRepo, s.userRepo, s.featureFlags)
	}
	return s.postService
}
