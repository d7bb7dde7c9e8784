package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"blogicum/internal/middleware"

	"gorm.io/gorm"
)

// The ledger of applied migrations lives in migration_logs, one row per
// version. RunMigrations creates the table itself so a fresh database needs
// no bootstrap step.
const ledgerDDL = `
CREATE TABLE IF NOT EXISTS migration_logs (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_migration_logs_applied_at ON migration_logs (applied_at);`

// AppliedVersions reads the ledger in ascending version order. A database
// that does not have the ledger table yet counts as having nothing applied.
func AppliedVersions(ctx context.Context, db *gorm.DB) ([]int, error) {
	var versions []int
	err := db.WithContext(ctx).
		Table("migration_logs").
		Order("version ASC").
		Pluck("version", &versions).Error
	if err != nil {
		if isMissingTableError(err) {
			return []int{}, nil
		}
		return nil, fmt.Errorf("read migration ledger: %w", err)
	}
	return versions, nil
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	// Postgres reports undefined_table as SQLSTATE 42P01.
	return strings.Contains(msg, "42P01") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"))
}

// RunMigrations creates the ledger table if needed and applies every
// embedded migration that is not in it yet, in version order.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(ledgerDDL).Error; err != nil {
		return fmt.Errorf("ensure migration ledger table: %w", err)
	}

	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return err
	}
	if err := rejectUnknownVersions(applied); err != nil {
		return err
	}

	pending := pendingMigrations(applied)
	if len(pending) == 0 {
		middleware.Logger.Debug("Migrations up to date", slog.Int("applied", len(applied)))
		return nil
	}

	for _, m := range pending {
		middleware.Logger.Info("Applying migration", slog.String("migration", migrationLabel(m)))
		if err := applyOne(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

// applyOne runs a migration's up script and records it, in one transaction:
// a script that fails halfway leaves no ledger row behind. None of the
// embedded scripts use statements that refuse to run inside a transaction.
func applyOne(ctx context.Context, db *gorm.DB, m Migration) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return fmt.Errorf("migration %s failed: %w", migrationLabel(m), err)
		}
		insert := "INSERT INTO migration_logs (version, name) VALUES (?, ?)"
		if err := tx.Exec(insert, m.Version, m.Name).Error; err != nil {
			return fmt.Errorf("record migration %s in ledger: %w", migrationLabel(m), err)
		}
		return nil
	})
}

// pendingMigrations lists the embedded migrations absent from the ledger,
// in version order.
func pendingMigrations(applied []int) []Migration {
	done := make(map[int]bool, len(applied))
	for _, version := range applied {
		done[version] = true
	}

	var pending []Migration
	for _, m := range migrations {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

// rejectUnknownVersions refuses a ledger that names versions this build does
// not embed. That happens when a database outlives a branch that carried
// extra migrations; applying around them could interleave schema changes.
func rejectUnknownVersions(applied []int) error {
	var unknown []string
	for _, version := range applied {
		if GetMigrationByVersion(version) == nil {
			unknown = append(unknown, fmt.Sprintf("%04d", version))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf(
		"migration_logs contains versions unknown to this build: %s (drop and recreate the development database to rebuild)",
		strings.Join(unknown, ", "),
	)
}

// RollbackMigration reverts one applied migration. The down script and the
// ledger delete run in a single transaction, mirroring applyOne.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, version) {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	middleware.Logger.Info("Rolling back migration", slog.String("migration", migrationLabel(*m)))
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("rollback of migration %s failed: %w", migrationLabel(*m), err)
		}
		if err := tx.Exec("DELETE FROM migration_logs WHERE version = ?", version).Error; err != nil {
			return fmt.Errorf("remove migration %s from ledger: %w", migrationLabel(*m), err)
		}
		return nil
	})
}

func migrationLabel(m Migration) string {
	return fmt.Sprintf("%04d_%s", m.Version, m.Name)
}
