package service

import (
	"context"
	"testing"

	"blogicum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryService_Create(t *testing.T) {
	t.Parallel()

	t.Run("rejects bad slugs", func(t *testing.T) {
		t.Parallel()
		svc := NewCategoryService(&categoryRepoStub{})
		for _, slug := range []string{"", "has space", "пузыри", "admin", "api"} {
			_, err := svc.Create(context.Background(), CreateCategoryInput{Title: "T", Slug: slug})
			assertValidationError(t, err)
		}
	})

	t.Run("defaults to published", func(t *testing.T) {
		t.Parallel()
		var created *models.Category
		categoryRepo := &categoryRepoStub{
			createFn: func(_ context.Context, c *models.Category) error {
				created = c
				return nil
			},
		}
		svc := NewCategoryService(categoryRepo)

		_, err := svc.Create(context.Background(), CreateCategoryInput{Title: "Travel", Slug: "travel"})
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.True(t, created.IsPublished)
	})

	t.Run("conflict propagates", func(t *testing.T) {
		t.Parallel()
		categoryRepo := &categoryRepoStub{
			createFn: func(_ context.Context, _ *models.Category) error {
				return models.NewConflictError("category slug already in use")
			},
		}
		svc := NewCategoryService(categoryRepo)

		_, err := svc.Create(context.Background(), CreateCategoryInput{Title: "Travel", Slug: "travel"})
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeConflict, appErr.Code)
	})
}

func TestCategoryService_Update_Unpublish(t *testing.T) {
	t.Parallel()

	stored := &models.Category{ID: 1, Title: "Travel", Slug: "travel", IsPublished: true}
	categoryRepo := &categoryRepoStub{
		getByIDFn: func(_ context.Context, _ uint) (*models.Category, error) {
			return stored, nil
		},
	}
	svc := NewCategoryService(categoryRepo)

	published := false
	category, err := svc.Update(context.Background(), UpdateCategoryInput{ID: 1, IsPublished: &published})
	require.NoError(t, err)
	assert.False(t, category.IsPublished)
	assert.Equal(t, "Travel", category.Title)
}
