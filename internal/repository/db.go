package repository

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"keep_up_backend/internal/config"
	"keep_up_backend/internal/model"

	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens the Postgres store and verifies the connection.
func NewDB(cfg config.DatabaseConfig, appLogger *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		Logger: NewGormLogger(appLogger),
	})
	if err != nil {
		appLogger.Error("Failed to connect to database with GORM", slog.Any("error", err))
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		appLogger.Error("Error getting underlying sql.DB from GORM", slog.Any("error", err))
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = sqlDB.PingContext(pingCtx); err != nil {
		appLogger.Error("Error pinging database", slog.Any("error", err))
		sqlDB.Close()
		return nil, err
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	appLogger.Info("Database connection established with GORM")
	return db, nil
}

// NewGormLogger routes GORM's logs through slog. APP_ENV=dev logs every query.
func NewGormLogger(appLogger *slog.Logger) gormlogger.Interface {
	level := gormlogger.Warn
	if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		level = gormlogger.Info
	}
	l := slogGorm.New(
		slogGorm.WithHandler(appLogger.Handler()),
		slogGorm.WithTraceAll(),
		slogGorm.WithSlowThreshold(500*time.Millisecond),
	)
	return l.LogMode(level)
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.CacheEntry{},
		&model.UserProgress{},
		&model.Bookmark{},
		&model.NewsItem{},
		&model.Report{},
	); err != nil {
		return fmt.Errorf("repository.Migrate: %w", err)
	}
	return nil
}
