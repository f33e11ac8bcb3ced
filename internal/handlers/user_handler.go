// internal/handlers/user_handler.go
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"keep_up_backend/internal/middleware"
	"keep_up_backend/internal/model"
	"keep_up_backend/internal/service"
	"keep_up_backend/internal/webutil"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	service service.ProgressionService
	logger  *slog.Logger
}

func NewUserHandler(s service.ProgressionService, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{service: s, logger: logger}
}

func (h *UserHandler) requestLogger(r *http.Request, handler string) *slog.Logger {
	return middleware.GetLogger(r.Context()).With(slog.String("handler", handler))
}

// Register は POST /users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r, "Register")

	var req model.RegisterRequest
	if err := webutil.DecodeAndValidate(w, r, &req); err != nil {
		logger.Warn("Invalid register request", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}

	progress, created, err := h.service.Register(r.Context(), req.UserID, req.DisplayName)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	webutil.RespondWithJSON(w, status, progress)
}

// GetProfile は GET /users/{user_id}。初回アクセスならユーザーを作成する
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r, "GetProfile")
	userID := chi.URLParam(r, "user_id")

	profile, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, profile)
}

// AddPoints は POST /users/{user_id}/xp
func (h *UserHandler) AddPoints(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r, "AddPoints")
	userID := chi.URLParam(r, "user_id")

	var req model.AddPointsRequest
	if err := webutil.DecodeAndValidate(w, r, &req); err != nil {
		logger.Warn("Invalid add points request", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}

	result, err := h.service.AddPoints(r.Context(), userID, req.Points, req.Category)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, result)
}

// RestoreStreak は POST /users/{user_id}/streak/restore
func (h *UserHandler) RestoreStreak(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r, "RestoreStreak")
	userID := chi.URLParam(r, "user_id")

	progress, err := h.service.RestoreStreak(r.Context(), userID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, progress)
}

// UnlockCategory は POST /users/{user_id}/unlock
func (h *UserHandler) UnlockCategory(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r, "UnlockCategory")
	userID := chi.URLParam(r, "user_id")

	var req model.UnlockCategoryRequest
	if err := webutil.DecodeAndValidate(w, r, &req); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	progress, err := h.service.UnlockCategory(r.Context(), userID, req.Category)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, progress)
}

// DeleteUser は DELETE /users/{user_id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r, "DeleteUser")
	userID := chi.URLParam(r, "user_id")

	if err := h.service.DeleteUser(r.Context(), userID); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListBookmarks は GET /users/{user_id}/bookmarks
func (h *UserHandler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r, "ListBookmarks")
	userID := chi.URLParam(r, "user_id")

	bookmarks, err := h.service.ListBookmarks(r.Context(), userID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	if bookmarks == nil {
		bookmarks = []*model.Bookmark{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, bookmarks)
}

// AddBookmark は POST /users/{user_id}/bookmarks
func (h *UserHandler) AddBookmark(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r, "AddBookmark")
	userID := chi.URLParam(r, "user_id")

	var req model.BookmarkRequest
	if err := webutil.DecodeAndValidate(w, r, &req); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	bookmark := &model.Bookmark{
		UserID:      userID,
		ContentID:   req.ContentID,
		Title:       req.Title,
		Topic:       req.Topic,
		Description: req.Description,
		URL:         req.URL,
	}
	created, err := h.service.AddBookmark(r.Context(), bookmark)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	webutil.RespondWithJSON(w, status, bookmark)
}

// RemoveBookmark は DELETE /users/{user_id}/bookmarks/{content_id}
func (h *UserHandler) RemoveBookmark(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r, "RemoveBookmark")

	if err := h.service.RemoveBookmark(r.Context(), chi.URLParam(r, "user_id"), chi.URLParam(r, "content_id")); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetLeaderboard は GET /leaderboard?limit=&league=
func (h *UserHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r, "GetLeaderboard")

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var entries []model.LeaderboardEntry
	if league := r.URL.Query().Get("league"); league != "" {
		entries, err = h.service.LeagueLeaderboard(r.Context(), model.League(league), limit)
	} else {
		entries, err = h.service.Leaderboard(r.Context(), limit)
	}
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, entries)
}

const maxListLimit = 100

// parseLimit returns 0 (use the default) for an empty value.
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxListLimit {
		return 0, model.NewAppError("INVALID_INPUT", "limit must be between 1 and 100", "limit", model.ErrInvalidInput)
	}
	return n, nil
}
