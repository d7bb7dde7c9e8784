package service

import (
	"context"

	"blogicum/internal/cache"
	"blogicum/internal/models"
	"blogicum/internal/repository"
	"blogicum/internal/validation"
)

// CategoryService backs both the public category listing and the admin CRUD
// surface. Admin gating happens in the route layer; nothing here re-checks it.
type CategoryService struct {
	categoryRepo repository.CategoryRepository
}

type CreateCategoryInput struct {
	Title       string
	Description string
	Slug        string
	IsPublished *bool
}

type UpdateCategoryInput struct {
	ID          uint
	Title       string
	Description string
	Slug        string
	IsPublished *bool
}

func NewCategoryService(categoryRepo repository.CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

// ListPublished returns the categories shown to readers.
func (s *CategoryService) ListPublished(ctx context.Context) ([]*models.Category, error) {
	return s.categoryRepo.List(ctx, true)
}

// ListAll returns every category, for the admin surface.
func (s *CategoryService) ListAll(ctx context.Context) ([]*models.Category, error) {
	return s.categoryRepo.List(ctx, false)
}

func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return s.categoryRepo.GetBySlug(ctx, slug)
}

func (s *CategoryService) Create(ctx context.Context, in CreateCategoryInput) (*models.Category, error) {
	const maxTitleLen = 256

	if in.Title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(in.Title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 256 characters)")
	}
	if err := validation.ValidateCategorySlug(in.Slug); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	category := &models.Category{
		Title:       in.Title,
		Description: in.Description,
		Slug:        in.Slug,
		IsPublished: true,
	}
	if in.IsPublished != nil {
		category.IsPublished = *in.IsPublished
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) Update(ctx context.Context, in UpdateCategoryInput) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	// The pre-rename slug still keys a cache entry; remember it so the
	// repository can clear both.
	oldSlug := category.Slug

	if in.Title != "" {
		if len(in.Title) > 256 {
			return nil, models.NewValidationError("Title too long (max 256 characters)")
		}
		category.Title = in.Title
	}
	if in.Description != "" {
		category.Description = in.Description
	}
	if in.Slug != "" && in.Slug != category.Slug {
		if err := validation.ValidateCategorySlug(in.Slug); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		category.Slug = in.Slug
	}
	if in.IsPublished != nil {
		category.IsPublished = *in.IsPublished
	}

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	if oldSlug != category.Slug {
		// Repository invalidation covers the new slug; the old slug's
		// entries would otherwise serve the renamed category until expiry.
		cache.InvalidateCategory(ctx, oldSlug)
	}
	return category, nil
}

func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	return s.categoryRepo.Delete(ctx, id)
}
