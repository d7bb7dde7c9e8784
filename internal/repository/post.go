// Package repository wraps the GORM queries behind small per-model
// interfaces so services and handlers never build SQL themselves.
package repository

import (
	"context"
	"errors"

	"blogicum/internal/cache"
	"blogicum/internal/models"
	"blogicum/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations.
// Read methods gate rows by the visibility rule: a post is publicly visible
// when it is published, its pub date has passed, and its category (if any)
// is published. The post's author bypasses the gate for their own posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	ListVisible(ctx context.Context, limit, offset int) ([]*models.Post, int64, error)
	ListByCategory(ctx context.Context, category *models.Category, limit, offset int) ([]*models.Post, int64, error)
	ListByAuthor(ctx context.Context, authorID uint, ownerView bool, limit, offset int) ([]*models.Post, int64, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository builds the GORM-backed PostRepository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// feedPage is the cached shape of a feed's first page.
type feedPage struct {
	Posts []*models.Post `json:"posts"`
	Total int64          `json:"total"`
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Create(post).Error
	if err == nil {
		observability.PostsCreated.Inc()
		cache.InvalidateHomeFeed(ctx)
	}
	return err
}

// withDetails adds the live-comment count subquery to the SELECT list.
func (r *postRepository) withDetails(db *gorm.DB) *gorm.DB {
	return db.Select("posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.deleted_at IS NULL) AS comment_count")
}

// visibleScope restricts the query to publicly visible posts. The category
// join is a LEFT JOIN so uncategorized posts pass the gate on their own flags.
func visibleScope(db *gorm.DB) *gorm.DB {
	return db.
		Joins("LEFT JOIN categories ON categories.id = posts.category_id").
		Where("posts.is_published = TRUE").
		Where("posts.pub_date <= NOW()").
		Where("posts.category_id IS NULL OR categories.is_published = TRUE")
}

// visibleOrOwnScope widens visibleScope so the viewer always sees their own posts.
func visibleOrOwnScope(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.
		Joins("LEFT JOIN categories ON categories.id = posts.category_id").
		Where(
			"posts.author_id = ? OR (posts.is_published = TRUE AND posts.pub_date <= NOW() AND (posts.category_id IS NULL OR categories.is_published = TRUE))",
			viewerID,
		)
}

func (r *postRepository) preloadRefs(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Category").Preload("Location")
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post

	fetch := func(scoped *gorm.DB) error {
		err := r.preloadRefs(r.withDetails(scoped)).
			Where("posts.id = ?", id).
			First(&post).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", id)
		}
		if err != nil {
			return models.NewInternalError(err)
		}
		return nil
	}

	var err error
	if viewerID == 0 {
		// Anonymous reads share one cache entry; author-aware reads bypass it.
		err = cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
			return fetch(visibleScope(readDB(r.db).WithContext(ctx)))
		})
	} else {
		err = fetch(visibleOrOwnScope(readDB(r.db).WithContext(ctx), viewerID))
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) ListVisible(ctx context.Context, limit, offset int) ([]*models.Post, int64, error) {
	if offset == 0 {
		var page feedPage
		err := cache.Aside(ctx, cache.HomeFeedFirstPageKey, &page, cache.FeedTTL, func() error {
			var fetchErr error
			page.Posts, page.Total, fetchErr = r.listVisible(ctx, limit, offset)
			return fetchErr
		})
		if err != nil {
			return nil, 0, err
		}
		return page.Posts, page.Total, nil
	}
	return r.listVisible(ctx, limit, offset)
}

func (r *postRepository) listVisible(ctx context.Context, limit, offset int) ([]*models.Post, int64, error) {
	return r.pageOf(readDB(r.db).WithContext(ctx), visibleScope, limit, offset)
}

// pageOf counts the scoped rows, then fetches one page of them newest first.
func (r *postRepository) pageOf(db *gorm.DB, scope func(*gorm.DB) *gorm.DB, limit, offset int) ([]*models.Post, int64, error) {
	var total int64
	if err := scope(db.Model(&models.Post{})).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []*models.Post
	err := r.preloadRefs(r.withDetails(scope(db.Model(&models.Post{})))).
		Order("posts.pub_date DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

func (r *postRepository) ListByCategory(ctx context.Context, category *models.Category, limit, offset int) ([]*models.Post, int64, error) {
	if offset == 0 {
		var page feedPage
		err := cache.Aside(ctx, cache.CategoryFeedKey(category.Slug), &page, cache.FeedTTL, func() error {
			var fetchErr error
			page.Posts, page.Total, fetchErr = r.listByCategory(ctx, category.ID, limit, offset)
			return fetchErr
		})
		if err != nil {
			return nil, 0, err
		}
		return page.Posts, page.Total, nil
	}
	return r.listByCategory(ctx, category.ID, limit, offset)
}

func (r *postRepository) listByCategory(ctx context.Context, categoryID uint, limit, offset int) ([]*models.Post, int64, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		return visibleScope(q).Where("posts.category_id = ?", categoryID)
	}
	return r.pageOf(readDB(r.db).WithContext(ctx), scope, limit, offset)
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint, ownerView bool, limit, offset int) ([]*models.Post, int64, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		q = q.Where("posts.author_id = ?", authorID)
		if !ownerView {
			q = visibleScope(q)
		}
		return q
	}
	return r.pageOf(readDB(r.db).WithContext(ctx), scope, limit, offset)
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID)
	if post.Category != nil {
		cache.InvalidateCategory(ctx, post.Category.Slug)
	}
	return nil
}

// Delete removes the post and its comments in one transaction.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, id)
	cache.InvalidateHomeFeed(ctx)
	return nil
}
