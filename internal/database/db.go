package database

import (
	"fmt"
	"log/slog"
	"time"

	"secbank-cbs/internal/config"
	"secbank-cbs/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(cfg config.DatabaseConfig, devMode bool) (*gorm.DB, error) {
	level := logger.Error
	if devMode {
		level = logger.Warn
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := Migrate(db); err != nil {
		slog.Warn("Failed to auto-migrate models", "error", err)
	}

	return db, nil
}

// Migrate creates or updates the core banking tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Permission{},
		&model.Role{},
		&model.Branch{},
		&model.User{},
		&model.Customer{},
		&model.AccountType{},
		&model.Account{},
		&model.AuditLog{},
	)
}
