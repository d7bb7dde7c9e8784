package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"blogicum/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCategoryRepository is a testify double for repository.CategoryRepository.
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	return mockRecord[models.Category](m.Called(ctx, id))
}

func (m *MockCategoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return mockRecord[models.Category](m.Called(ctx, slug))
}

func (m *MockCategoryRepository) List(ctx context.Context, publishedOnly bool) ([]*models.Category, error) {
	return mockRows[models.Category](m.Called(ctx, publishedOnly))
}

func (m *MockCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	return m.Called(ctx, category).Error(0)
}

func (m *MockCategoryRepository) Update(ctx context.Context, category *models.Category) error {
	return m.Called(ctx, category).Error(0)
}

func (m *MockCategoryRepository) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

// MockLocationRepository is a testify double for repository.LocationRepository.
type MockLocationRepository struct {
	mock.Mock
}

func (m *MockLocationRepository) GetByID(ctx context.Context, id uint) (*models.Location, error) {
	return mockRecord[models.Location](m.Called(ctx, id))
}

func (m *MockLocationRepository) List(ctx context.Context, publishedOnly bool) ([]*models.Location, error) {
	return mockRows[models.Location](m.Called(ctx, publishedOnly))
}

func (m *MockLocationRepository) Create(ctx context.Context, location *models.Location) error {
	return m.Called(ctx, location).Error(0)
}

func (m *MockLocationRepository) Update(ctx context.Context, location *models.Location) error {
	return m.Called(ctx, location).Error(0)
}

func (m *MockLocationRepository) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func TestGetCategories_PublishedOnly(t *testing.T) {
	app := fiber.New()
	mockCategories := new(MockCategoryRepository)
	s := &Server{categoryRepo: mockCategories}
	app.Get("/categories", s.GetCategories)

	mockCategories.On("List", mock.Anything, true).Return([]*models.Category{
		{ID: 1, Title: "Travel", Slug: "travel", IsPublished: true},
		{ID: 2, Title: "Food", Slug: "food", IsPublished: true},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Len(t, got, 2)
	assert.Equal(t, "travel", got[0]["slug"])
}

func TestGetCategoryPosts(t *testing.T) {
	app := fiber.New()
	mockCategories := new(MockCategoryRepository)
	mockPosts := new(MockPostRepository)
	s := &Server{categoryRepo: mockCategories, postRepo: mockPosts}
	app.Get("/categories/:slug/posts", s.GetCategoryPosts)

	travel := &models.Category{ID: 1, Title: "Travel", Slug: "travel", IsPublished: true}
	mockCategories.On("GetBySlug", mock.Anything, "travel").Return(travel, nil)
	mockCategories.On("GetBySlug", mock.Anything, "drafts").
		Return(&models.Category{ID: 2, Slug: "drafts", IsPublished: false}, nil)
	mockCategories.On("GetBySlug", mock.Anything, "nope").
		Return(nil, models.NewNotFoundMessageError("category not found"))
	mockPosts.On("ListByCategory", mock.Anything, travel, 10, 0).
		Return([]*models.Post{publishedPost(4, 2, "Pack Light")}, int64(1), nil)

	tests := []struct {
		name           string
		slug           string
		expectedStatus int
	}{
		{"Published Category", "travel", http.StatusOK},
		{"Unpublished Category Is Hidden", "drafts", http.StatusNotFound},
		{"Unknown Slug", "nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/categories/"+tt.slug+"/posts", nil)
			resp, _ := app.Test(req)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var got struct {
					Category map[string]any   `json:"category"`
					Results  []map[string]any `json:"results"`
					Count    int64            `json:"count"`
				}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
				assert.Equal(t, "travel", got.Category["slug"])
				assert.Len(t, got.Results, 1)
				assert.Equal(t, int64(1), got.Count)
			}
		})
	}
}

func TestAdminCreateCategory(t *testing.T) {
	app := fiber.New()
	mockCategories := new(MockCategoryRepository)
	s := &Server{categoryRepo: mockCategories}

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uint(1))
		return c.Next()
	})
	app.Post("/admin/categories", s.AdminCreateCategory)

	tests := []struct {
		name           string
		body           map[string]any
		mockSetup      func()
		expectedStatus int
	}{
		{
			name: "Success",
			body: map[string]any{
				"title": "Travel",
				"slug":  "travel",
			},
			mockSetup: func() {
				mockCategories.On("Create", mock.Anything, mock.MatchedBy(func(c *models.Category) bool {
					return c.Slug == "travel"
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*models.Category).ID = 3
				}).Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Invalid Slug",
			body: map[string]any{
				"title": "Bad",
				"slug":  "Bad Slug!",
			},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Reserved Slug",
			body: map[string]any{
				"title": "Sneaky",
				"slug":  "posts",
			},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Non-ASCII Slug",
			body: map[string]any{
				"title": "Travel Again",
				"slug":  "путешествия",
			},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/admin/categories", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			resp, _ := app.Test(req)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestAdminCreateCategory_SlugConflict(t *testing.T) {
	app := fiber.New()
	mockCategories := new(MockCategoryRepository)
	s := &Server{categoryRepo: mockCategories}

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uint(1))
		return c.Next()
	})
	app.Post("/admin/categories", s.AdminCreateCategory)

	mockCategories.On("Create", mock.Anything, mock.Anything).
		Return(models.NewConflictError("category slug already in use"))

	body, _ := json.Marshal(map[string]any{"title": "Travel", "slug": "travel"})
	req := httptest.NewRequest(http.MethodPost, "/admin/categories", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAdminUpdateCategory_Unpublish(t *testing.T) {
	app := fiber.New()
	mockCategories := new(MockCategoryRepository)
	s := &Server{categoryRepo: mockCategories}

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uint(1))
		return c.Next()
	})
	app.Put("/admin/categories/:id", s.AdminUpdateCategory)

	mockCategories.On("GetByID", mock.Anything, uint(3)).
		Return(&models.Category{ID: 3, Title: "Travel", Slug: "travel", IsPublished: true}, nil)
	mockCategories.On("Update", mock.Anything, mock.Anything).Return(nil)

	body, _ := json.Marshal(map[string]any{"is_published": false})
	req := httptest.NewRequest(http.MethodPut, "/admin/categories/3", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, false, got["is_published"])
}

func TestAdminDeleteCategory(t *testing.T) {
	app := fiber.New()
	mockCategories := new(MockCategoryRepository)
	s := &Server{categoryRepo: mockCategories}

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uint(1))
		return c.Next()
	})
	app.Delete("/admin/categories/:id", s.AdminDeleteCategory)

	mockCategories.On("Delete", mock.Anything, uint(3)).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/admin/categories/3", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	mockCategories.AssertCalled(t, "Delete", mock.Anything, uint(3))
}

func TestGetLocations_PublishedOnly(t *testing.T) {
	app := fiber.New()
	mockLocations := new(MockLocationRepository)
	s := &Server{locationRepo: mockLocations}
	app.Get("/locations", s.GetLocations)

	mockLocations.On("List", mock.Anything, true).Return([]*models.Location{
		{ID: 1, Name: "Lisbon", IsPublished: true},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/locations", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "Lisbon", got[0]["name"])
}

func TestAdminCreateLocation(t *testing.T) {
	app := fiber.New()
	mockLocations := new(MockLocationRepository)
	s := &Server{locationRepo: mockLocations}

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uint(1))
		return c.Next()
	})
	app.Post("/admin/locations", s.AdminCreateLocation)

	tests := []struct {
		name           string
		body           map[string]any
		mockSetup      func()
		expectedStatus int
	}{
		{
			name: "Success",
			body: map[string]any{"name": "Lisbon"},
			mockSetup: func() {
				mockLocations.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
					args.Get(1).(*models.Location).ID = 1
				}).Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Missing Name",
			body:           map[string]any{},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/admin/locations", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			resp, _ := app.Test(req)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}
