package persistence

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/spec-kit/support-assistant/internal/config"
)

// OpenGorm opens the embedded SQLite file or a MySQL server, depending on cfg.Driver.
func OpenGorm(cfg config.StoreConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.StoreDriverSQLite:
		dialector = sqlite.Open(SQLiteDSN(cfg))
	case config.StoreDriverMySQL:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("STORE_DSN is required for driver %q", cfg.Driver)
		}
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("driver %q is not served by gorm", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s store: %w", cfg.Driver, err)
	}

	if cfg.Driver == config.StoreDriverSQLite {
		// one writer at a time; also keeps shared in-memory databases alive
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxConns > 0 {
			sqlDB.SetMaxOpenConns(int(cfg.MaxConns))
		}
		if cfg.MinConns > 0 {
			sqlDB.SetMaxIdleConns(int(cfg.MinConns))
		}
		if cfg.ConnMaxIdleSec > 0 {
			sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleSec) * time.Second)
		}
		if cfg.ConnMaxLifeSec > 0 {
			sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifeSec) * time.Second)
		}
	}

	log.Info("connected to store", zap.String("driver", cfg.Driver))
	return db, nil
}

// SQLiteDSN returns the DSN for the embedded store. An explicit DSN wins over the file path.
func SQLiteDSN(cfg config.StoreConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	path := cfg.SQLitePath
	if path == "" {
		path = "customer_service.db"
	}
	return "file:" + path + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
}

// AutoMigrate creates or updates the tables backing the given models.
func AutoMigrate(db *gorm.DB, log *zap.Logger, models ...any) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("store schema ready", zap.Int("models", len(models)))
	return nil
}

// CloseGorm releases the underlying connection pool.
func CloseGorm(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
