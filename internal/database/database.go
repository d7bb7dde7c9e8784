// Package database opens the Postgres connections, manages the schema, and
// adapts GORM's logging onto slog.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"blogicum/internal/config"
	"blogicum/internal/middleware"
	"blogicum/internal/observability"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the process-wide primary connection, set by Connect.
var DB *gorm.DB

// ReadDB is the optional read-replica connection. Nil when no replica is configured.
var ReadDB *gorm.DB

// ConnectOptions controls connection-time behavior.
type ConnectOptions struct {
	// ApplySchema runs the schema policy (SQL migrations and/or AutoMigrate)
	// after connecting. The migrate CLI disables it to control migrations itself.
	ApplySchema bool
}

// gormSlogAdapter satisfies gorm's logger.Interface on top of the shared
// slog logger, so query logs land in the same stream as everything else.
type gormSlogAdapter struct {
	base *slog.Logger
	cfg  logger.Config
}

func (l *gormSlogAdapter) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.cfg.LogLevel = level
	return &clone
}

func (l *gormSlogAdapter) Info(ctx context.Context, msg string, args ...any) {
	if l.cfg.LogLevel >= logger.Info {
		l.base.InfoContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *gormSlogAdapter) Warn(ctx context.Context, msg string, args ...any) {
	if l.cfg.LogLevel >= logger.Warn {
		l.base.WarnContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *gormSlogAdapter) Error(ctx context.Context, msg string, args ...any) {
	if l.cfg.LogLevel >= logger.Error {
		l.base.ErrorContext(ctx, fmt.Sprintf(msg, args...))
	}
}

// Trace classifies every finished query as an error, a slow query, or plain
// debug output, and logs it with the SQL and timing attached.
func (l *gormSlogAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	sql, rows := fc()
	elapsed := time.Since(begin)
	observability.ObserveDBQuery(sql, elapsed)

	if l.cfg.LogLevel <= logger.Silent {
		return
	}
	attrs := []any{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}

	loggable := err != nil && (!l.cfg.IgnoreRecordNotFoundError || !errors.Is(err, gorm.ErrRecordNotFound))
	switch {
	case loggable && l.cfg.LogLevel >= logger.Error:
		l.base.ErrorContext(ctx, "GORM query error", append(attrs, slog.String("error", err.Error()))...)
	case l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold && l.cfg.LogLevel >= logger.Warn:
		l.base.WarnContext(ctx, "GORM slow query", attrs...)
	case l.cfg.LogLevel >= logger.Info:
		l.base.InfoContext(ctx, "GORM query", attrs...)
	}
}

func newGormLogger() logger.Interface {
	return &gormSlogAdapter{
		base: middleware.Logger,
		cfg: logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	}
}

func buildDSN(host, port, user, password, name, sslMode string) string {
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, name, sslMode,
	)
}

func configurePool(db *gorm.DB, cfg *config.Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeMinutes) * time.Minute)
	return nil
}

// Connect opens the primary database connection, applies the schema policy,
// and connects the read replica when one is configured.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	return ConnectWithOptions(cfg, ConnectOptions{ApplySchema: true})
}

// ConnectWithOptions opens a database connection using the provided configuration
// and returns the gorm DB instance.
func ConnectWithOptions(cfg *config.Config, opts ConnectOptions) (*gorm.DB, error) {
	dsn := buildDSN(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	dbInstance, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("open database connection: %w", err)
	}

	middleware.Logger.Info("Database connection established")

	if err := configurePool(dbInstance, cfg); err != nil {
		return nil, fmt.Errorf("failed to configure connection pool: %w", err)
	}

	if opts.ApplySchema {
		if err := ApplySchema(context.Background(), dbInstance, cfg); err != nil {
			return nil, err
		}
		middleware.Logger.Info("Database schema up to date")
	}

	connectReadReplica(cfg)

	DB = dbInstance
	return DB, nil
}

// connectReadReplica opens the read-replica connection when DB_READ_HOST is set.
// Replica failures are not fatal; reads fall back to the primary.
func connectReadReplica(cfg *config.Config) {
	ReadDB = nil
	if cfg.DBReadHost == "" {
		return
	}

	dsn := buildDSN(cfg.DBReadHost, cfg.DBReadPort, cfg.DBReadUser, cfg.DBReadPassword, cfg.DBName, cfg.DBSSLMode)
	replica, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		middleware.Logger.Warn("Read replica connection failed, reads will use the primary",
			slog.String("host", cfg.DBReadHost),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := configurePool(replica, cfg); err != nil {
		middleware.Logger.Warn("Read replica pool configuration failed, reads will use the primary",
			slog.String("error", err.Error()),
		)
		return
	}

	middleware.Logger.Info("Read replica connected", slog.String("host", cfg.DBReadHost))
	ReadDB = replica
}

// GetReadDB returns the read-replica connection, or nil when none is configured.
func GetReadDB() *gorm.DB {
	return ReadDB
}
