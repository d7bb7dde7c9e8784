package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"blogicum/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The full stack is exercised end to end in the test/ suite; these pin the
// middleware every response passes through even when handlers fail.
func TestHardeningHeaders(t *testing.T) {
	app := fiber.New()
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())
	app.Get("/probe", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/probe", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	for _, header := range []string{"X-Content-Type-Options", "X-Frame-Options"} {
		assert.NotEmpty(t, resp.Header.Get(header), "helmet should set %s", header)
	}
}

func TestStructuredLogger_PassesErrorsThrough(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.StructuredLogger())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.ErrTeapot
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	// The logger must hand the handler error upward, not swallow it.
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
}

func TestLivenessCheck(t *testing.T) {
	app := fiber.New()
	s := &Server{}
	app.Get("/health/live", s.LivenessCheck)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
