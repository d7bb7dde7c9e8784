package server

import (
	"blogicum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments returns the full comment thread of a visible post (public).
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	viewerID, _ := s.optionalUserID(c)

	comments, err := s.commentSvc().ListComments(c.UserContext(), postID, viewerID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(comments)
}

// CreateComment creates a comment on a post the viewer can see (protected).
func (s *Server) CreateComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := decodeBody(c, &req); err != nil {
		return nil
	}

	created, err := s.commentSvc().CreateComment(c.UserContext(), service.CreateCommentInput{
		AuthorID: userID,
		PostID:   postID,
		Text:     req.Text,
	})
	if err != nil {
		return respondMutationError(c, err, postID)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// commentPath reads the post and comment IDs off the route. When either is
// malformed the 400 has already been sent and err is non-nil.
func (s *Server) commentPath(c *fiber.Ctx) (postID, commentID uint, err error) {
	if postID, err = s.parseID(c, "id"); err != nil {
		return 0, 0, err
	}
	if commentID, err = s.parseID(c, "commentId"); err != nil {
		return 0, 0, err
	}
	return postID, commentID, nil
}

// UpdateComment updates a comment (author or admin).
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	postID, commentID, err := s.commentPath(c)
	if err != nil {
		return nil
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := decodeBody(c, &req); err != nil {
		return nil
	}

	updated, err := s.commentSvc().UpdateComment(c.UserContext(), service.UpdateCommentInput{
		UserID:    userID,
		PostID:    postID,
		CommentID: commentID,
		Text:      req.Text,
	})
	if err != nil {
		return respondMutationError(c, err, postID)
	}

	return c.JSON(updated)
}

// DeleteComment deletes a comment (author or admin).
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	postID, commentID, err := s.commentPath(c)
	if err != nil {
		return nil
	}

	if _, err := s.commentSvc().DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    userID,
		PostID:    postID,
		CommentID: commentID,
	}); err != nil {
		return respondMutationError(c, err, postID)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) commentSvc() *service.CommentService {
	if s.commentService == nil {
		s.commentService = service.NewCommentService(
			s.commentRepo, s.postRepo, s.featureFlags, s.userSvc().IsAdmin)
	}
	return s.commentService
}
