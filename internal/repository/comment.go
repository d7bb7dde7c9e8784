package repository

import (
	"context"

	"blogicum/internal/cache"
	"blogicum/internal/models"
	"blogicum/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines persistence operations for comments.
// Unlike the user repository it surfaces raw gorm errors and leaves
// translation to the service layer.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, comment *models.Comment) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository returns a new CommentRepository implementation.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return err
	}
	observability.CommentsCreated.Inc()
	cache.InvalidatePostComments(ctx, comment.PostID)
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := readDB(r.db).WithContext(ctx).
		Preload("Author").
		First(&comment, id).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByPost returns every comment under a post, oldest first. Threads on a
// blog post stay small enough that the full list ships with the post detail,
// so there is no pagination here.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	key := cache.PostCommentsKey(postID)

	err := cache.Aside(ctx, key, &comments, cache.CommentsTTL, func() error {
		return readDB(r.db).WithContext(ctx).
			Preload("Author").
			Where("post_id = ?", postID).
			Order("created_at ASC, id ASC").
			Find(&comments).Error
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Save(comment).Error; err != nil {
		return err
	}
	cache.InvalidatePostComments(ctx, comment.PostID)
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Delete(comment).Error; err != nil {
		return err
	}
	cache.InvalidatePostComments(ctx, comment.PostID)
	return nil
}
