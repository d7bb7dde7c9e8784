package database

import (
	"embed"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"

	"blogicum/internal/middleware"
)

// Migration is one embedded schema step. Scripts live under migrations/ as
// NNNN_name.up.sql with a matching NNNN_name.down.sql.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

//go:embed migrations/*.sql
var migrationFS embed.FS

var migrations []Migration

func init() {
	if err := loadMigrations(migrationFS); err != nil {
		middleware.Logger.Error("failed to load embedded migrations", slog.String("error", err.Error()))
	}
}

func loadMigrations(efs embed.FS) error {
	entries, err := efs.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read embedded migrations: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m, err := parseMigration(efs, entry.Name())
		if err != nil {
			return err
		}
		if m != nil {
			migrations = append(migrations, *m)
		}
	}

	slices.SortFunc(migrations, func(a, b Migration) int {
		return a.Version - b.Version
	})
	return nil
}

// parseMigration loads one up script and its down counterpart. Files that
// are not up scripts, or whose names do not parse, come back nil.
func parseMigration(efs embed.FS, fileName string) (*Migration, error) {
	base, isUp := strings.CutSuffix(fileName, ".up.sql")
	if !isUp {
		return nil, nil
	}

	versionRaw, name, ok := strings.Cut(base, "_")
	if !ok {
		middleware.Logger.Warn("Skipping migration with invalid naming", slog.String("file", fileName))
		return nil, nil
	}
	version, err := strconv.Atoi(versionRaw)
	if err != nil {
		middleware.Logger.Warn("Skipping migration with non-numeric version", slog.String("file", fileName))
		return nil, nil
	}

	up, err := efs.ReadFile(path.Join("migrations", fileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read up migration %s: %w", fileName, err)
	}
	downFile := base + ".down.sql"
	down, err := efs.ReadFile(path.Join("migrations", downFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read down migration %s: %w", downFile, err)
	}

	return &Migration{
		Version:    version,
		Name:       name,
		UpScript:   string(up),
		DownScript: string(down),
	}, nil
}

// GetMigrations returns every embedded migration in version order.
func GetMigrations() []Migration {
	return migrations
}

// GetMigrationByVersion returns the migration with the given version, or nil
// when no such version is embedded.
func GetMigrationByVersion(version int) *Migration {
	for i := range migrations {
		if migrations[i].Version == version {
			return &migrations[i]
		}
	}
	return nil
}
