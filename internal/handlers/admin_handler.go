package handlers

import (
	"log/slog"
	"net/http"

	"keep_up_backend/internal/middleware"
	"keep_up_backend/internal/model"
	"keep_up_backend/internal/service"
	"keep_up_backend/internal/webutil"
)

// AdminHandler exposes operator actions behind AdminKeyMiddleware.
type AdminHandler struct {
	progression service.ProgressionService
	news        service.NewsService
	catchUp     service.CatchUpService
	regions     []string
}

func NewAdminHandler(progression service.ProgressionService, news service.NewsService, catchUp service.CatchUpService, regions []string) *AdminHandler {
	return &AdminHandler{progression: progression, news: news, catchUp: catchUp, regions: regions}
}

// PromoteSeason は POST /admin/season/promote
func (h *AdminHandler) PromoteSeason(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context()).With(slog.String("handler", "PromoteSeason"))

	result, err := h.progression.PromoteSeason(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, result)
}

// GenerateNews は POST /admin/news/generate?region=
func (h *AdminHandler) GenerateNews(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context()).With(slog.String("handler", "GenerateNews"))

	region := r.URL.Query().Get("region")
	if region == "" {
		webutil.HandleError(w, logger, model.NewAppError("INVALID_INPUT", "region is required", "region", model.ErrInvalidInput))
		return
	}

	items, err := h.news.GenerateAndIndex(r.Context(), region)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusCreated, items)
}

type backfillRegionResult struct {
	Outcomes    map[model.Day]service.EnsureOutcome `json:"outcomes"`
	FailedDates []model.Day                         `json:"failed_dates"`
}

// Backfill は POST /admin/catchup/backfill?region=。regionが無ければ設定の全リージョン
func (h *AdminHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	regions := h.regions
	if region := r.URL.Query().Get("region"); region != "" {
		regions = []string{region}
	}

	reports := h.catchUp.Backfill(r.Context(), regions)
	out := make(map[string]backfillRegionResult, len(reports))
	for region, rep := range reports {
		out[region] = backfillRegionResult{Outcomes: rep.Outcomes, FailedDates: rep.FailedDates()}
	}
	webutil.RespondWithJSON(w, http.StatusOK, out)
}
