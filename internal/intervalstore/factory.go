package intervalstore

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/trace-callgraph/pkg/config"
	apperrors "github.com/trace-callgraph/pkg/errors"
	"github.com/trace-callgraph/pkg/telemetry"
)

// StoreType represents the interval store backend.
type StoreType string

const (
	StoreTypeMemory   StoreType = "memory"
	StoreTypeSQLite   StoreType = "sqlite"
	StoreTypeMySQL    StoreType = "mysql"
	StoreTypePostgres StoreType = "postgres"
)

// NewGormDB creates a GORM connection for the SQL store types.
func NewGormDB(cfg *config.StoreConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch StoreType(cfg.Type) {
	case StoreTypeSQLite:
		path := cfg.Path
		if path == "" {
			path = ":memory:"
		}
		dialector = sqlite.Open(path)
	case StoreTypePostgres, StoreType("postgresql"):
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database,
		)
		dialector = postgres.Open(dsn)
	case StoreTypeMySQL:
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		)
		dialector = mysql.Open(dsn)
	default:
		return nil, apperrors.Newf(apperrors.CodeConfigError, "unsupported store type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to open database", err)
	}

	if telemetry.Enabled() {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, fmt.Errorf("failed to enable telemetry: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns / 2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to ping database", err)
	}

	return db, nil
}

// CloseDB closes the connection pool behind db.
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Open returns the store described by cfg. For the memory type, source is a
// JSON dump path overriding cfg.Path; for SQL types it is the trace id.
// The returned close function releases the backing resources.
func Open(ctx context.Context, cfg *config.StoreConfig, source string) (Store, func() error, error) {
	if StoreType(cfg.Type) == StoreTypeMemory {
		path := source
		if path == "" {
			path = cfg.Path
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, apperrors.Wrap(apperrors.CodeNotFound, "failed to open interval dump", err)
		}
		defer f.Close()

		s, err := LoadJSON(f)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { s.Dispose(); return nil }, nil
	}

	db, err := NewGormDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	s, err := OpenGormStore(ctx, db, source)
	if err != nil {
		CloseDB(db)
		return nil, nil, err
	}
	return s, func() error { return CloseDB(db) }, nil
}
