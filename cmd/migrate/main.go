// Command migrate applies and inspects the blog database schema from the
// command line. It connects without the startup schema pass so that each
// subcommand touches exactly what it names.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"blogicum/internal/config"
	"blogicum/internal/database"

	"gorm.io/gorm"
)

var errUsage = fmt.Errorf("usage: go run ./cmd/migrate <up|auto|status|down> [version]")

func main() {
	flag.Parse()
	if err := run(flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "up":
		return migrateUp(ctx, db)
	case "auto":
		return autoMigrate(ctx, db, cfg)
	case "status":
		return printStatus(ctx, db, cfg)
	case "down":
		return rollback(ctx, db, args[1:])
	default:
		return errUsage
	}
}

func migrateUp(ctx context.Context, db *gorm.DB) error {
	if err := database.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("sql migrations failed: %w", err)
	}
	log.Println("sql migrations applied")
	return nil
}

func autoMigrate(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return fmt.Errorf("auto schema apply failed: %w", err)
	}
	log.Println("automigrations applied")
	return nil
}

func printStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status failed: %w", err)
	}
	log.Printf("mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d",
		status.Mode, status.Env, status.RunSQL, status.RunAutoMigrate,
		len(status.AppliedVersions), len(status.Pending))
	for _, m := range status.Pending {
		log.Printf("pending: %04d_%s", m.Version, m.Name)
	}
	return nil
}

func rollback(ctx context.Context, db *gorm.DB, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: go run ./cmd/migrate down <version>")
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	log.Printf("rolled back migration %d", version)
	return nil
}
