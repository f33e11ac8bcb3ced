package handlers

import (
	"log/slog"
	"net/http"

	"keep_up_backend/internal/middleware"
	"keep_up_backend/internal/model"
	"keep_up_backend/internal/service"
	"keep_up_backend/internal/webutil"

	"github.com/go-chi/chi/v5"
)

// ContentHandler serves generated content: catch-up recaps, quizzes and news.
type ContentHandler struct {
	catchUp       service.CatchUpService
	quiz          service.QuizService
	news          service.NewsService
	defaultRegion string
}

func NewContentHandler(catchUp service.CatchUpService, quiz service.QuizService, news service.NewsService, defaultRegion string) *ContentHandler {
	return &ContentHandler{catchUp: catchUp, quiz: quiz, news: news, defaultRegion: defaultRegion}
}

// GetCatchUp は GET /catchup?region=
func (h *ContentHandler) GetCatchUp(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context()).With(slog.String("handler", "GetCatchUp"))

	region := r.URL.Query().Get("region")
	if region == "" {
		region = h.defaultRegion
	}

	recaps, err := h.catchUp.WeeklyCatchUp(r.Context(), region)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, recaps)
}

// GetCategoryQuiz は GET /quizzes/{category}?date=
func (h *ContentHandler) GetCategoryQuiz(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context()).With(slog.String("handler", "GetCategoryQuiz"))

	questions, err := h.quiz.CategoryQuiz(r.Context(), r.URL.Query().Get("date"), chi.URLParam(r, "category"))
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, questions)
}

// GetDailyQuiz は GET /quizzes/daily?date=
func (h *ContentHandler) GetDailyQuiz(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context()).With(slog.String("handler", "GetDailyQuiz"))

	questions, err := h.quiz.DailyQuiz(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, questions)
}

// GetNews は GET /news?date=
func (h *ContentHandler) GetNews(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context()).With(slog.String("handler", "GetNews"))

	items, err := h.news.List(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	if items == nil {
		items = []*model.NewsItem{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, items)
}
