// Package test holds integration suites that exercise the API over HTTP
// against a live database. They load the test profile (config.test.yml)
// and skip themselves when the database is not reachable, so `go test ./...`
// stays green on machines without the dev stack running.
package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type authUser struct {
	ID       uint
	Token    string
	Username string
	Email    string
}

func newBlogTestApp(t *testing.T) *fiber.App {
	t.Helper()

	t.Setenv("APP_ENV", "test")

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}

	app := fiber.New()
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)
	return app
}

func signupUser(t *testing.T, app *fiber.App, prefix string) authUser {
	t.Helper()

	suffix := time.Now().UnixNano()
	username := fmt.Sprintf("%.6s%s", prefix, uuid.NewString()[:8])
	email := fmt.Sprintf("%s.%d@example.test", prefix, suffix)

	payload := map[string]string{
		"username": username,
		"email":    email,
		"password": "Harbor#Lights77",
	}

	req := jsonReq(t, http.MethodPost, "/api/v1/auth/register", payload)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("register app.Test: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register expected 201 got %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode register response: %v", err)
	}

	if body.Token == "" || body.User.ID == 0 {
		t.Fatalf("invalid register response: %+v", body)
	}

	return authUser{ID: body.User.ID, Token: body.Token, Username: username, Email: email}
}

// makeAdmin flips the is_admin flag directly: the API itself never grants
// admin rights.
func makeAdmin(t *testing.T, userID uint) {
	t.Helper()
	if err := database.DB.Exec(`UPDATE users SET is_admin = TRUE WHERE id = ?`, userID).Error; err != nil {
		t.Fatalf("grant admin: %v", err)
	}
}

// redisHealthy reports whether the readiness probe sees a live Redis.
// Logout revocation silently degrades to a no-op without one, so tests
// only assert on revoked tokens when this returns true.
func redisHealthy(t *testing.T, app *fiber.App) bool {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil), -1)
	if err != nil {
		t.Fatalf("readiness probe: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body struct {
		Checks struct {
			Redis string `json:"redis"`
		} `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode readiness response: %v", err)
	}
	return body.Checks.Redis == "healthy"
}

func jsonReq(t *testing.T, method, path string, payload any) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func authReq(t *testing.T, method, path, token string, payload any) *http.Request {
	t.Helper()
	req := jsonReq(t, method, path, payload)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func uniqueSlug(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:6])
}

func itoa(i uint) string {
	return fmt.Sprintf("%d", i)
}
