package service

import (
	"context"
	"strings"

	"keep_up_backend/internal/middleware"
	"keep_up_backend/internal/model"
	"keep_up_backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReportService interface {
	Submit(ctx context.Context, req *model.ReportRequest) (*model.Report, error)
}

type reportService struct {
	db         *gorm.DB
	reportRepo repository.ReportRepository
}

func NewReportService(db *gorm.DB, reportRepo repository.ReportRepository) ReportService {
	return &reportService{db: db, reportRepo: reportRepo}
}

func (s *reportService) Submit(ctx context.Context, req *model.ReportRequest) (*model.Report, error) {
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.ContentID) == "" || strings.TrimSpace(req.Reason) == "" {
		return nil, model.NewAppError("INVALID_INPUT", "user_id, content_id and reason are required", "", model.ErrInvalidInput)
	}

	report := &model.Report{
		ReportID:     uuid.New(),
		UserID:       req.UserID,
		ContentID:    req.ContentID,
		ReportedText: req.ReportedText,
		Reason:       req.Reason,
	}
	if err := s.reportRepo.Create(ctx, s.db, report); err != nil {
		return nil, storageError("create report", err)
	}

	middleware.GetLogger(ctx).Info("Content reported",
		"report_id", report.ReportID.String(),
		"content_id", report.ContentID,
	)
	return report, nil
}
