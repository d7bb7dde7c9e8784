package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"blogicum/internal/models"
	"blogicum/internal/repository"
	"blogicum/internal/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupMockDB creates a GORM *gorm.DB backed by sqlmock for unit tests.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

// The Mock*Repository doubles in this package funnel their returns through
// the unwrappers below, keeping each mocked method to a single line.

// mockRecord unwraps a (*T, error) pair from a testify call.
func mockRecord[T any](args mock.Arguments) (*T, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

// mockRows unwraps a ([]*T, error) pair.
func mockRows[T any](args mock.Arguments) ([]*T, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*T), args.Error(1)
}

// mockPage unwraps a ([]*T, int64, error) rows-plus-total triple.
func mockPage[T any](args mock.Arguments) ([]*T, int64, error) {
	var rows []*T
	if args.Get(0) != nil {
		rows = args.Get(0).([]*T)
	}
	return rows, args.Get(1).(int64), args.Error(2)
}

// userByIDQuery matches the cached user lookup every admin check runs.
var userByIDQuery = regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)

// getJSON runs one GET against the app, decoding the JSON body into out when
// out is non-nil. The body stays readable when out is nil.
func getJSON(t *testing.T, app *fiber.App, path string, out any) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// adminCheckServer wires a Server to a sqlmock DB that answers the lookup for
// id with a row whose is_admin flag is admin, or with no row when found is
// false.
func adminCheckServer(t *testing.T, id uint, admin, found bool) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	gormDB, mock := setupMockDB(t)
	rows := sqlmock.NewRows([]string{"id", "username", "is_admin"})
	if found {
		rows.AddRow(id, "someone", admin)
	}
	mock.ExpectQuery(userByIDQuery).WithArgs(id, 1).WillReturnRows(rows)
	return &Server{db: gormDB, userRepo: repository.NewUserRepository(gormDB)}, mock
}

// --- humanizeParam ---

func TestHumanizeParam(t *testing.T) {
	cases := map[string]string{
		"id":         "ID",
		"userId":     "user ID",
		"commentId":  "comment ID",
		"categoryId": "category ID",
		"locationId": "location ID",
		"something":  "something",
	}
	for param, want := range cases {
		assert.Equal(t, want, humanizeParam(param), param)
	}
}

// --- parsePage ---

func TestParsePage(t *testing.T) {
	app := fiber.New()
	app.Get("/feed", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"page": parsePage(c)})
	})

	tests := []struct {
		name  string
		query string
		want  float64
	}{
		{"Default", "", 1},
		{"Explicit", "?page=3", 3},
		{"Zero Clamped", "?page=0", 1},
		{"Negative Clamped", "?page=-5", 1},
		{"Garbage Falls Back", "?page=abc", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]float64
			getJSON(t, app, "/feed"+tt.query, &body)
			assert.Equal(t, tt.want, body["page"])
		})
	}
}

// --- parseID ---

func TestParseID(t *testing.T) {
	newApp := func(param string) *fiber.App {
		app := fiber.New()
		s := &Server{}
		app.Get("/items/:"+param, func(c *fiber.Ctx) error {
			id, err := s.parseID(c, param)
			if err != nil {
				// parseID has already written the 400.
				return nil
			}
			return c.JSON(fiber.Map{"id": id})
		})
		return app
	}

	t.Run("numeric value passes", func(t *testing.T) {
		resp := getJSON(t, newApp("id"), "/items/42", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("zero is rejected", func(t *testing.T) {
		// IDs start at 1; 0 can never name a row.
		resp := getJSON(t, newApp("id"), "/items/0", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("message names the parameter", func(t *testing.T) {
		wantByParam := map[string]string{
			"id":         "Invalid ID",
			"commentId":  "Invalid comment ID",
			"categoryId": "Invalid category ID",
		}
		for param, want := range wantByParam {
			var body map[string]string
			resp := getJSON(t, newApp(param), "/items/abc", &body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, param)
			assert.Equal(t, want, body["error"], param)
		}
	})
}

// --- mapServiceError ---

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"Validation", models.NewValidationError("bad input"), http.StatusBadRequest},
		{"Unauthorized", models.NewUnauthorizedError("who are you"), http.StatusUnauthorized},
		{"Forbidden", models.NewForbiddenError("not yours"), http.StatusForbidden},
		{"Not Found", models.NewNotFoundError("Post", 7), http.StatusNotFound},
		{"Conflict", models.NewConflictError("taken"), http.StatusConflict},
		{"Internal", models.NewInternalError(errors.New("boom")), http.StatusInternalServerError},
		{"Plain Error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mapServiceError(tt.err))
		})
	}
}

// --- toFeedEnvelope ---

func TestToFeedEnvelope_Metadata(t *testing.T) {
	tests := []struct {
		name          string
		total         int64
		expectedPages int
	}{
		{"Partial Last Page", 25, 3},
		{"Exact Multiple", 20, 2},
		{"Single Page", 3, 1},
		{"Empty Feed", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := toFeedEnvelope(&service.FeedPage{
				Posts:    []*models.Post{{ID: 1}},
				Total:    tt.total,
				Page:     1,
				PageSize: service.FeedPageSize,
			})
			assert.Equal(t, tt.total, env.Count)
			assert.Equal(t, tt.expectedPages, env.TotalPages)
			assert.Equal(t, service.FeedPageSize, env.PageSize)
		})
	}
}

func TestToFeedEnvelope_EmptyPageSerializesAsArray(t *testing.T) {
	env := toFeedEnvelope(&service.FeedPage{
		Posts:    nil,
		Total:    12,
		Page:     9,
		PageSize: service.FeedPageSize,
	})

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"results":[]`)
	assert.NotContains(t, string(raw), `"results":null`)
}

// --- isAdmin ---

func TestIsAdmin(t *testing.T) {
	tests := []struct {
		name       string
		userID     uint
		admin      bool
		found      bool
		wantStatus int
		wantAdmin  bool
	}{
		{"admin row", 1, true, true, http.StatusOK, true},
		{"member row", 2, false, true, http.StatusOK, false},
		{"missing row", 999, false, false, http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := adminCheckServer(t, tt.userID, tt.admin, tt.found)

			app := fiber.New()
			app.Get("/check", func(c *fiber.Ctx) error {
				admin, err := s.isAdmin(c, tt.userID)
				if err != nil {
					return c.SendStatus(fiber.StatusInternalServerError)
				}
				return c.JSON(fiber.Map{"admin": admin})
			})

			resp := getJSON(t, app, "/check", nil)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus == http.StatusOK {
				var body map[string]bool
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.wantAdmin, body["admin"])
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// --- AdminRequired ---

func TestAdminRequired(t *testing.T) {
	run := func(t *testing.T, userID uint, admin bool) (*http.Response, sqlmock.Sqlmock) {
		t.Helper()
		s, mock := adminCheckServer(t, userID, admin, true)

		app := fiber.New()
		app.Use(func(c *fiber.Ctx) error {
			c.Locals("userID", userID)
			return c.Next()
		})
		app.Get("/admin", s.AdminRequired(), func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"ok": true})
		})

		return getJSON(t, app, "/admin", nil), mock
	}

	t.Run("admin passes through", func(t *testing.T) {
		resp, mock := run(t, 1, true)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("member gets 403", func(t *testing.T) {
		resp, mock := run(t, 2, false)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Admin access required", body["error"])
		assert.Equal(t, models.CodeForbidden, body["code"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// --- respondMutationError ---

func TestRespondMutationError_ForbiddenCarriesFallback(t *testing.T) {
	app := fiber.New()
	app.Get("/denied", func(c *fiber.Ctx) error {
		return respondMutationError(c, models.NewForbiddenError("You can only edit your own posts"), 17)
	})

	var body models.ErrorResponse
	resp := getJSON(t, app, "/denied", &body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "/posts/17", body.Fallback)
	assert.Equal(t, models.CodeForbidden, body.Code)
}

func TestRespondMutationError_NotFoundHasNoFallback(t *testing.T) {
	app := fiber.New()
	app.Get("/missing", func(c *fiber.Ctx) error {
		return respondMutationError(c, models.NewNotFoundError("Post", 17), 17)
	})

	resp := getJSON(t, app, "/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "fallback"))
}
