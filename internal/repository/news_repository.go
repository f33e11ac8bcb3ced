package repository

import (
	"context"
	"fmt"

	"keep_up_backend/internal/middleware"
	"keep_up_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewsRepository stores indexed news cards, the source material of every
// generated recap and quiz.
type NewsRepository interface {
	// ItemsForDate returns the items published on date. A non-empty scope
	// matches either the item's region or its topic, case-insensitively.
	ItemsForDate(ctx context.Context, db *gorm.DB, date model.Day, scope string) ([]*model.NewsItem, error)
	SaveAll(ctx context.Context, tx *gorm.DB, items []*model.NewsItem) error
	ListRecent(ctx context.Context, db *gorm.DB, limit int) ([]*model.NewsItem, error)
	ListByDate(ctx context.Context, db *gorm.DB, date model.Day) ([]*model.NewsItem, error)
}

type gormNewsRepository struct{}

func NewGormNewsRepository() NewsRepository {
	return &gormNewsRepository{}
}

func (r *gormNewsRepository) ItemsForDate(ctx context.Context, db *gorm.DB, date model.Day, scope string) ([]*model.NewsItem, error) {
	var items []*model.NewsItem

	q := db.WithContext(ctx).Where("published_date = ?", date)
	if s := model.NormalizeScope(scope); s != "" {
		q = q.Where("(LOWER(region) = ? OR LOWER(topic) = ?)", s, s)
	}
	if err := q.Order("published_ts DESC, id ASC").Find(&items).Error; err != nil {
		middleware.GetLogger(ctx).Error("Error finding news items for date",
			"error", err,
			"date", date,
			"scope", scope,
		)
		return nil, fmt.Errorf("gormNewsRepository.ItemsForDate: %w", err)
	}
	return items, nil
}

func (r *gormNewsRepository) SaveAll(ctx context.Context, tx *gorm.DB, items []*model.NewsItem) error {
	if len(items) == 0 {
		return nil
	}
	// 同じIDで再インデックスされた場合は上書き
	if err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(items, 100).Error; err != nil {
		middleware.GetLogger(ctx).Error("Error saving news items", "error", err, "count", len(items))
		return fmt.Errorf("gormNewsRepository.SaveAll: %w", err)
	}
	return nil
}

func (r *gormNewsRepository) ListRecent(ctx context.Context, db *gorm.DB, limit int) ([]*model.NewsItem, error) {
	var items []*model.NewsItem
	if err := db.WithContext(ctx).Order("published_ts DESC, id ASC").Limit(limit).Find(&items).Error; err != nil {
		middleware.GetLogger(ctx).Error("Error listing recent news", "error", err, "limit", limit)
		return nil, fmt.Errorf("gormNewsRepository.ListRecent: %w", err)
	}
	return items, nil
}

func (r *gormNewsRepository) ListByDate(ctx context.Context, db *gorm.DB, date model.Day) ([]*model.NewsItem, error) {
	return r.ItemsForDate(ctx, db, date, "")
}
