package handlers

import (
	"log/slog"
	"net/http"

	"keep_up_backend/internal/middleware"
	"keep_up_backend/internal/model"
	"keep_up_backend/internal/service"
	"keep_up_backend/internal/webutil"
)

type ReportHandler struct {
	service service.ReportService
}

func NewReportHandler(s service.ReportService) *ReportHandler {
	return &ReportHandler{service: s}
}

// PostReport は POST /reports
func (h *ReportHandler) PostReport(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context()).With(slog.String("handler", "PostReport"))

	var req model.ReportRequest
	if err := webutil.DecodeAndValidate(w, r, &req); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	report, err := h.service.Submit(r.Context(), &req)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusCreated, report)
}
