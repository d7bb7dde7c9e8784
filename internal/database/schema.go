package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"blogicum/internal/config"
	"blogicum/internal/middleware"

	"gorm.io/gorm"
)

// DB_SCHEMA_MODE picks how the schema is managed. Hybrid is the default:
// model tweaks land during development without writing a migration each,
// while prod-like environments only ever run the reviewed SQL.
const (
	SchemaModeHybrid = "hybrid" // SQL migrations, plus AutoMigrate outside prod-like envs
	SchemaModeSQL    = "sql"    // SQL migrations only
	SchemaModeAuto   = "auto"   // AutoMigrate only; prod-like envs refuse it without an override
)

// SchemaStatus is the policy decision plus the applied/pending split of the
// migration ledger. cmd/migrate prints it.
type SchemaStatus struct {
	Mode            string
	Env             string
	RunSQL          bool
	RunAutoMigrate  bool
	AppliedVersions []int
	Pending         []Migration
}

func prodLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

func schemaMode(cfg *config.Config) string {
	if mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)); mode != "" {
		return mode
	}
	return SchemaModeHybrid
}

func schemaPlan(cfg *config.Config) (runSQL, runAuto bool, err error) {
	mode := schemaMode(cfg)
	guarded := prodLike(cfg.Env)

	switch mode {
	case SchemaModeHybrid:
		return true, !guarded, nil
	case SchemaModeSQL:
		return true, false, nil
	case SchemaModeAuto:
		// AutoMigrate can drop or rewrite columns on model drift.
		if guarded && !cfg.DBAutoMigrateAllowDestructive {
			return false, false, fmt.Errorf(
				"DB_SCHEMA_MODE=auto can rewrite columns; refusing in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		return false, true, nil
	default:
		return false, false, fmt.Errorf("unknown DB_SCHEMA_MODE %q", mode)
	}
}

// ApplySchema brings the database up to date per the schema policy.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPlan(cfg)
	if err != nil {
		return err
	}

	if runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migration pass: %w", err)
		}
	}
	if runAuto {
		return autoMigrateModels(ctx, db, cfg)
	}
	return nil
}

func autoMigrateModels(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	if schemaMode(cfg) == SchemaModeAuto && cfg.DBAutoMigrateAllowDestructive {
		middleware.Logger.Warn("AutoMigrate allowed in a prod-like environment; review schema diffs before deploying")
	}
	middleware.Logger.Info("Running GORM AutoMigrate",
		slog.String("mode", schemaMode(cfg)), slog.String("env", cfg.Env))

	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the policy decision without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPlan(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:           schemaMode(cfg),
		Env:            cfg.Env,
		RunSQL:         runSQL,
		RunAutoMigrate: runAuto,
	}
	if !runSQL {
		return status, nil
	}

	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied
	status.Pending = pendingMigrations(applied)
	return status, nil
}
