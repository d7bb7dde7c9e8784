// Package bootstrap wires up runtime dependencies shared by the server and
// CLI entry points: database, Redis, starter data, and the development root
// admin.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"blogicum/internal/cache"
	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/models"
	"blogicum/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedBuiltins upserts the starter categories and locations after the
	// schema is applied.
	SeedBuiltins bool
}

// InitRuntime connects the database and Redis and optionally seeds starter
// data. Redis being down is not fatal; the cache layer degrades to no-ops.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	if err := ensureDevRootAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("bootstrap development root admin: %w", err)
	}
	if opts.SeedBuiltins {
		if err := seed.Builtins(db); err != nil {
			return nil, nil, fmt.Errorf("seed built-in categories and locations: %w", err)
		}
	}

	return db, cache.GetClient(), nil
}

// rootCredentials resolves the dev root account identity from config,
// falling back to the stock name and address.
func rootCredentials(cfg *config.Config) (username, email string) {
	username = strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "blogicum_root"
	}
	email = strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@blogicum.local"
	}
	return username, email
}

// ensureDevRootAdmin guarantees user ID 1 exists and is an admin when the
// development bootstrap is enabled. Admin rights cannot be granted over the
// API, so a fresh install needs this (or cmd/admin) to get its first admin.
func ensureDevRootAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}
	if cfg.DevRootPassword == "" {
		return errors.New("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	username, email := rootCredentials(cfg)
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DevRootPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := upsertRootAdmin(tx, cfg, username, email, string(hash)); err != nil {
			return err
		}
		return syncUsersSequence(tx)
	})
	if err != nil {
		return err
	}

	slog.Info("Development root admin ensured", slog.String("email", email))
	return nil
}

// upsertRootAdmin creates user 1 as an admin, or re-promotes the existing
// row. Identity fields are only overwritten when the operator forces them.
func upsertRootAdmin(tx *gorm.DB, cfg *config.Config, username, email, hash string) error {
	var root models.User
	err := tx.First(&root, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		root = models.User{
			ID:           1,
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			IsAdmin:      true,
			IsActive:     true,
		}
		return tx.Create(&root).Error
	}
	if err != nil {
		return err
	}

	updates := map[string]any{"is_admin": true}
	if cfg.DevRootForceCredentials {
		updates["username"] = username
		updates["email"] = email
		updates["password_hash"] = hash
	}
	return tx.Model(&models.User{}).Where("id = ?", 1).Updates(updates).Error
}

// syncUsersSequence moves the users ID sequence past explicitly inserted
// rows. Postgres only; the SQLite databases in tests need no such repair.
func syncUsersSequence(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	err := tx.Exec(`
		SELECT setval(
			pg_get_serial_sequence('users', 'id'),
			GREATEST((SELECT COALESCE(MAX(id), 1) FROM users), 1),
			true
		)
	`).Error
	if err != nil {
		return fmt.Errorf("reset users sequence: %w", err)
	}
	return nil
}
