package db

import (
	"fmt"
	"time"

	"ncd-admin-backend/internal/config"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenGorm connects to the database selected by DB_DRIVER.
func OpenGorm(cfg *config.Config) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dial = sqlite.Open(cfg.SQLitePath)
	case "mysql":
		dial = mysql.Open(cfg.MySQLDSN())
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}

	lvl := logger.Warn
	if cfg.LogLevel == "debug" {
		lvl = logger.Info
	}
	return OpenGormWithDialector(dial, lvl)
}

func OpenGormWithDialector(dial gorm.Dialector, lvl logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(dial, &gorm.Config{
		Logger:               logger.Default.LogMode(lvl),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}
