// Package database keeps the persisted snapshots in a SQL table through gorm.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ideon/internal/config"
	"ideon/internal/observability"
)

// SlogGormLogger routes gorm's statement log into slog. Only failures and
// statements slower than slow are logged at the default Warn level.
type SlogGormLogger struct {
	log   *slog.Logger
	level logger.LogLevel
	slow  time.Duration
}

func NewSlogGormLogger(l *slog.Logger) *SlogGormLogger {
	return &SlogGormLogger{log: l, level: logger.Warn, slow: 200 * time.Millisecond}
}

func (l *SlogGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	out := *l
	out.level = level
	return &out
}

func (l *SlogGormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.printf(ctx, logger.Info, slog.LevelInfo, msg, data)
}

func (l *SlogGormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.printf(ctx, logger.Warn, slog.LevelWarn, msg, data)
}

func (l *SlogGormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.printf(ctx, logger.Error, slog.LevelError, msg, data)
}

func (l *SlogGormLogger) printf(ctx context.Context, threshold logger.LogLevel, level slog.Level, msg string, data []interface{}) {
	if l.level >= threshold {
		l.log.Log(ctx, level, fmt.Sprintf(msg, data...))
	}
}

// Trace logs one executed statement.
func (l *SlogGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := l.slow > 0 && elapsed > l.slow

	var (
		level slog.Level
		msg   string
	)
	switch {
	case failed && l.level >= logger.Error:
		level, msg = slog.LevelError, "gorm query failed"
	case slow && l.level >= logger.Warn:
		level, msg = slog.LevelWarn, "gorm slow query"
	case l.level >= logger.Info:
		level, msg = slog.LevelInfo, "gorm query"
	default:
		return
	}

	sql, rows := fc()
	attrs := []slog.Attr{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}
	if failed {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.log.LogAttrs(ctx, level, msg, attrs...)
}

// Connect opens the SQL backend selected by cfg.StorageDriver and migrates
// the snapshot table.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		dialector = postgres.Open(cfg.DBDSN)
	case config.StorageSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("storage driver %q is not a SQL backend", cfg.StorageDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewSlogGormLogger(observability.GlobalLogger.Logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
		// every sqlite :memory: connection is its own database
		if cfg.StorageDriver == config.StorageSQLite && cfg.SQLitePath == ":memory:" {
			sqlDB.SetMaxOpenConns(1)
			sqlDB.SetConnMaxLifetime(0)
		}
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	observability.GlobalLogger.Info("database connected", slog.String("driver", cfg.StorageDriver))
	return db, nil
}

// Migrate creates or updates the snapshot table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
