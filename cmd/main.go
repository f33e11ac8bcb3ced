// cmd/main.go
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"keep_up_backend/internal/config"
	"keep_up_backend/internal/generator"
	"keep_up_backend/internal/handlers"
	"keep_up_backend/internal/lock"
	"keep_up_backend/internal/metrics"
	"keep_up_backend/internal/repository"
	"keep_up_backend/internal/scheduler"
	"keep_up_backend/internal/service"
)

func main() {
	// 設定ファイル読み込み用の一時的なロガー設定
	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(tempLogger)
	log.Println("Log Config Loading...")

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		slog.Error("Error loading configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := newLogger(cfg.Log.Level, tempLogger)
	slog.SetDefault(logger)
	slog.Info("Application starting...", slog.String("app", config.AppName), slog.String("version", config.AppVersion))

	// 1. Database
	db, err := repository.NewDB(cfg.Database, logger)
	if err != nil {
		slog.Error("Error initializing database", slog.Any("error", err))
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Error getting underlying sql.DB from GORM", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			slog.Error("Error closing database connection", slog.Any("error", err))
		} else {
			slog.Info("Database connection closed.")
		}
	}()
	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(db); err != nil {
			slog.Error("Error migrating database", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// 2. Lock: Redisがあれば複数インスタンス間で直列化する
	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.Redis.Addr != "" {
		rdb, err := lock.NewRedisClient(context.Background(), cfg.Redis)
		if err != nil {
			slog.Error("Error connecting to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, cfg.Redis, logger)
		slog.Info("Using redis locker", slog.String("addr", cfg.Redis.Addr))
	}

	// 3. Generator
	gen, err := generator.NewGeminiGenerator(context.Background(), cfg.Gemini, logger)
	if err != nil {
		slog.Error("Error initializing generator", slog.Any("error", err))
		os.Exit(1)
	}
	defer gen.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// 4. Dependency Injection
	contentRepo := repository.NewGormContentRepository()
	progressRepo := repository.NewGormProgressRepository()
	bookmarkRepo := repository.NewGormBookmarkRepository()
	newsRepo := repository.NewGormNewsRepository()
	reportRepo := repository.NewGormReportRepository()

	loc := cfg.Progression.Location()
	cache := service.NewContentCache(db, contentRepo, service.NewRepositoryContentIndex(db, newsRepo), gen, m)
	catchUpService := service.NewCatchUpService(cache, cfg.CatchUp, loc)
	quizService := service.NewQuizService(cache, loc)
	newsService := service.NewNewsService(db, newsRepo, gen, cfg.News.ListLimit, loc)
	progressionService := service.NewProgressionService(db, progressRepo, bookmarkRepo, locker, cfg.Progression, m)
	reportService := service.NewReportService(db, reportRepo)

	defaultRegion := ""
	if len(cfg.CatchUp.Regions) > 0 {
		defaultRegion = cfg.CatchUp.Regions[0]
	}
	router := handlers.NewRouter(cfg, handlers.Handlers{
		User:    handlers.NewUserHandler(progressionService, logger),
		Content: handlers.NewContentHandler(catchUpService, quizService, newsService, defaultRegion),
		Admin:   handlers.NewAdminHandler(progressionService, newsService, catchUpService, cfg.CatchUp.Regions),
		Report:  handlers.NewReportHandler(reportService),
	}, db, m, logger)

	// 5. Scheduler
	sched := scheduler.New(catchUpService, newsService, cfg, logger)
	if err := sched.Register(); err != nil {
		slog.Error("Error registering scheduled jobs", slog.Any("error", err))
		os.Exit(1)
	}
	sched.Start()

	// 6. Start Server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", slog.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen on port", slog.String("port", cfg.Server.Port), slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", slog.Any("error", err))
	}
	sched.Stop(ctx)

	log.Println("Server exiting")
}

// newLogger は APP_ENV=dev なら tint、それ以外は JSON ハンドラを使う
func newLogger(level string, tempLogger *slog.Logger) *slog.Logger {
	logLevel := new(slog.LevelVar)
	switch strings.ToLower(level) {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "info":
		logLevel.Set(slog.LevelInfo)
	case "warn", "warning":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
		tempLogger.Warn("Unknown log level specified in config, defaulting to INFO", slog.String("level", level))
	}

	var handler slog.Handler
	appEnv := os.Getenv("APP_ENV")
	if strings.ToLower(appEnv) == "dev" {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.RFC3339,
		})
		tempLogger.Info("Using TINT log handler", slog.String("APP_ENV", appEnv))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		})
		tempLogger.Info("Using JSON log handler", slog.String("APP_ENV", appEnv))
	}
	return slog.New(handler)
}
