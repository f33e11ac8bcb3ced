package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"keep_up_backend/internal/config"
	"keep_up_backend/internal/metrics"
	"keep_up_backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"gorm.io/gorm"
)

// Handlers bundles everything NewRouter mounts.
type Handlers struct {
	User    *UserHandler
	Content *ContentHandler
	Admin   *AdminHandler
	Report  *ReportHandler
}

// NewRouter builds the chi router with the standard middleware chain.
// db is only used by /health and may be nil.
func NewRouter(cfg *config.Config, h Handlers, db *gorm.DB, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware(logger))
	if m != nil {
		r.Use(middleware.MetricsMiddleware(m))
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
		Debug:            false,
	})
	r.Use(corsHandler.Handler)

	r.Use(chimiddleware.Recoverer)
	// 生成AIの呼び出しを含むので長め
	r.Use(chimiddleware.Timeout(120 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users", h.User.Register)
		r.Route("/users/{user_id}", func(r chi.Router) {
			r.Get("/", h.User.GetProfile)
			r.Delete("/", h.User.DeleteUser)
			r.Post("/xp", h.User.AddPoints)
			r.Post("/streak/restore", h.User.RestoreStreak)
			r.Post("/unlock", h.User.UnlockCategory)
			r.Get("/bookmarks", h.User.ListBookmarks)
			r.Post("/bookmarks", h.User.AddBookmark)
			r.Delete("/bookmarks/{content_id}", h.User.RemoveBookmark)
		})
		r.Get("/leaderboard", h.User.GetLeaderboard)

		r.Get("/catchup", h.Content.GetCatchUp)
		// daily は {category} より先に登録する
		r.Get("/quizzes/daily", h.Content.GetDailyQuiz)
		r.Get("/quizzes/{category}", h.Content.GetCategoryQuiz)
		r.Get("/news", h.Content.GetNews)

		r.Post("/reports", h.Report.PostReport)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AdminKeyMiddleware(cfg.Admin.APIKey))
		r.Post("/season/promote", h.Admin.PromoteSeason)
		r.Post("/news/generate", h.Admin.GenerateNews)
		r.Post("/catchup/backfill", h.Admin.Backfill)
	})

	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if db != nil {
			sqlDB, err := db.DB()
			if err != nil {
				slog.ErrorContext(ctx, "Health check failed: could not get DB object", slog.Any("error", err))
				http.Error(w, "Health check failed", http.StatusServiceUnavailable)
				return
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				slog.ErrorContext(ctx, "Health check failed: could not ping DB", slog.Any("error", err))
				http.Error(w, "Health check failed", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
