package bootstrap

import (
	"testing"

	"blogicum/internal/config"
	"blogicum/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openBootstrapDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestEnsureDevRootAdmin_CreatesAdmin(t *testing.T) {
	t.Parallel()

	db := openBootstrapDB(t)
	cfg := &config.Config{
		Env:              "development",
		DevBootstrapRoot: true,
		DevRootPassword:  "local-only-password",
	}

	if err := ensureDevRootAdmin(cfg, db); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	var root models.User
	if err := db.First(&root, 1).Error; err != nil {
		t.Fatalf("load root: %v", err)
	}
	if !root.IsAdmin {
		t.Fatal("root user should be an admin")
	}
	if root.Username != "blogicum_root" {
		t.Fatalf("unexpected default username %q", root.Username)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(root.PasswordHash), []byte("local-only-password")); err != nil {
		t.Fatalf("root password not hashed as expected: %v", err)
	}

	// Second run must not duplicate or error.
	if err := ensureDevRootAdmin(cfg, db); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single root user, got %d", count)
	}
}

func TestEnsureDevRootAdmin_RepromotesExistingUserOne(t *testing.T) {
	t.Parallel()

	db := openBootstrapDB(t)
	demoted := models.User{
		ID:           1,
		Username:     "somebody",
		Email:        "somebody@example.com",
		PasswordHash: "irrelevant",
		IsAdmin:      false,
	}
	if err := db.Create(&demoted).Error; err != nil {
		t.Fatalf("create user 1: %v", err)
	}

	cfg := &config.Config{
		Env:              "development",
		DevBootstrapRoot: true,
		DevRootPassword:  "local-only-password",
	}
	if err := ensureDevRootAdmin(cfg, db); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	var root models.User
	if err := db.First(&root, 1).Error; err != nil {
		t.Fatalf("load root: %v", err)
	}
	if !root.IsAdmin {
		t.Fatal("existing user 1 should have been promoted")
	}
	// Without DEV_ROOT_FORCE_CREDENTIALS the account keeps its identity.
	if root.Username != "somebody" {
		t.Fatalf("username should be untouched, got %q", root.Username)
	}
}

func TestEnsureDevRootAdmin_SkipsOutsideDevelopment(t *testing.T) {
	t.Parallel()

	db := openBootstrapDB(t)
	cfg := &config.Config{
		Env:              "production",
		DevBootstrapRoot: true,
		DevRootPassword:  "should-not-matter",
	}

	if err := ensureDevRootAdmin(cfg, db); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 0 {
		t.Fatal("production environment must not bootstrap a root admin")
	}
}

func TestEnsureDevRootAdmin_RequiresPassword(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Env:              "development",
		DevBootstrapRoot: true,
	}
	if err := ensureDevRootAdmin(cfg, openBootstrapDB(t)); err == nil {
		t.Fatal("expected an error when DEV_ROOT_PASSWORD is empty")
	}
}
