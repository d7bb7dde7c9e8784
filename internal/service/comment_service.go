package service

import (
	"context"
	"errors"

	"blogicum/internal/featureflags"
	"blogicum/internal/models"
	"blogicum/internal/repository"

	"gorm.io/gorm"
)

// AdminChecker reports whether the user may exercise admin powers. A nil
// checker means nobody can.
type AdminChecker func(ctx context.Context, userID uint) (bool, error)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	flags       *featureflags.Manager
	isAdmin     AdminChecker
}

type CreateCommentInput struct {
	AuthorID uint
	PostID   uint
	Text     string
}

type UpdateCommentInput struct {
	UserID    uint
	PostID    uint
	CommentID uint
	Text      string
}

type DeleteCommentInput struct {
	UserID    uint
	PostID    uint
	CommentID uint
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository,
	flags *featureflags.Manager, isAdmin AdminChecker) *CommentService {
	return &CommentService{commentRepo: commentRepo, postRepo: postRepo, flags: flags, isAdmin: isAdmin}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if !s.flags.EnabledOr(featureflags.FlagComments, in.AuthorID, true) {
		return nil, models.NewForbiddenError("Commenting is currently disabled")
	}

	// The viewer must be able to see the post they comment on; for the
	// author that includes their own drafts and scheduled posts.
	if _, err := s.postRepo.GetByID(ctx, in.PostID, in.AuthorID); err != nil {
		return nil, err
	}

	if err := validateCommentText(in.Text); err != nil {
		return nil, err
	}

	comment := &models.Comment{Text: in.Text, AuthorID: in.AuthorID, PostID: in.PostID}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, models.NewInternalError(err)
	}

	return s.getComment(ctx, comment.ID)
}

// ListComments returns a post's full comment thread, oldest first. The
// visibility check runs first so comments on hidden posts stay hidden too.
func (s *CommentService) ListComments(ctx context.Context, postID, viewerID uint) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, viewerID); err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.getComment(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.PostID != in.PostID {
		return nil, models.NewNotFoundError("Comment", in.CommentID)
	}

	if err := s.authorizeMutation(ctx, comment, in.UserID, "You can only edit your own comments"); err != nil {
		return nil, err
	}

	if err := validateCommentText(in.Text); err != nil {
		return nil, err
	}
	comment.Text = in.Text
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, models.NewInternalError(err)
	}

	return s.getComment(ctx, comment.ID)
}

func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (*models.Comment, error) {
	comment, err := s.getComment(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.PostID != in.PostID {
		return nil, models.NewNotFoundError("Comment", in.CommentID)
	}

	if err := s.authorizeMutation(ctx, comment, in.UserID, "You can only delete your own comments"); err != nil {
		return nil, err
	}

	if err := s.commentRepo.Delete(ctx, comment); err != nil {
		return nil, models.NewInternalError(err)
	}
	return comment, nil
}

// authorizeMutation lets a comment's author through, then falls back to the
// admin check. This is the one place administrators outrank authors.
func (s *CommentService) authorizeMutation(ctx context.Context, comment *models.Comment, userID uint, denial string) error {
	if comment.AuthorID == userID {
		return nil
	}
	if s.isAdmin == nil {
		return models.NewForbiddenError(denial)
	}
	admin, err := s.isAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !admin {
		return models.NewForbiddenError(denial)
	}
	return nil
}

func validateCommentText(text string) error {
	const maxLen = 10000
	if text == "" {
		return models.NewValidationError("Text is required")
	}
	if len(text) > maxLen {
		return models.NewValidationError("Comment too long (max 10000 characters)")
	}
	return nil
}

// getComment translates the repository's raw errors into API errors.
func (s *CommentService) getComment(ctx context.Context, id uint) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return comment, nil
}
