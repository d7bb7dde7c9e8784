//go:build integration

package seed

import (
	"net/url"
	"os"
	"strings"
	"testing"

	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/models"
)

// configFromDSN turns a postgres:// URL into the test connection config.
func configFromDSN(dsn string) (*config.Config, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}
	cfg := &config.Config{
		DBHost:                   u.Hostname(),
		DBPort:                   "5432",
		DBName:                   strings.TrimPrefix(u.Path, "/"),
		DBSSLMode:                "disable",
		Env:                      "test",
		DBSchemaMode:             "auto",
		DBMaxOpenConns:           5,
		DBMaxIdleConns:           2,
		DBConnMaxLifetimeMinutes: 5,
	}
	if port := u.Port(); port != "" {
		cfg.DBPort = port
	}
	if u.User != nil {
		cfg.DBUser = u.User.Username()
		cfg.DBPassword, _ = u.User.Password()
	}
	return cfg, nil
}

func TestIntegration_SeedFullBlog(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	cfg, err := configFromDSN(dsn)
	if err != nil {
		t.Fatalf("parse DATABASE_URL: %v", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: true})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	seeder := NewSeeder(db, Options{SkipBcrypt: true, BatchSize: 50, MaxDays: 30})
	if err := seeder.ClearAll(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := Builtins(db); err != nil {
		t.Fatalf("builtins: %v", err)
	}

	users, err := seeder.SeedAuthors(10)
	if err != nil {
		t.Fatalf("SeedAuthors: %v", err)
	}
	if _, err := seeder.SeedActivity(users, 50); err != nil {
		t.Fatalf("SeedActivity: %v", err)
	}

	var posts int64
	if err := db.Model(&models.Post{}).Count(&posts).Error; err != nil {
		t.Fatalf("count posts: %v", err)
	}
	if posts != 50 {
		t.Fatalf("expected 50 seeded posts, got %d", posts)
	}
}
