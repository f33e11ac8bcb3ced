package repository

import (
	"context"
	"fmt"

	"keep_up_backend/internal/middleware"
	"keep_up_backend/internal/model"

	"gorm.io/gorm"
)

type ReportRepository interface {
	Create(ctx context.Context, tx *gorm.DB, report *model.Report) error
}

type gormReportRepository struct{}

func NewGormReportRepository() ReportRepository {
	return &gormReportRepository{}
}

func (r *gormReportRepository) Create(ctx context.Context, tx *gorm.DB, report *model.Report) error {
	if err := tx.WithContext(ctx).Create(report).Error; err != nil {
		middleware.GetLogger(ctx).Error("Error creating report in DB",
			"error", err,
			"user_id", report.UserID,
			"content_id", report.ContentID,
		)
		return fmt.Errorf("gormReportRepository.Create: %w", err)
	}
	return nil
}
