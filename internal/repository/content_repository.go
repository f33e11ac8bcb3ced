//go:generate mockery --name ContentRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"

	"keep_up_backend/internal/middleware"
	"keep_up_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContentRepository stores generated payloads. Entries are write-once.
type ContentRepository interface {
	FindByKey(ctx context.Context, db *gorm.DB, key model.CacheKey) (*model.CacheEntry, error)
	// CreateIfAbsent inserts entry unless its key already exists.
	// created is false when another writer got there first.
	CreateIfAbsent(ctx context.Context, db *gorm.DB, entry *model.CacheEntry) (created bool, err error)
	ListRecent(ctx context.Context, db *gorm.DB, kind model.ContentKind, scope string, limit int) ([]*model.CacheEntry, error)
}

type gormContentRepository struct{}

func NewGormContentRepository() ContentRepository {
	return &gormContentRepository{}
}

func (r *gormContentRepository) FindByKey(ctx context.Context, db *gorm.DB, key model.CacheKey) (*model.CacheEntry, error) {
	logger := middleware.GetLogger(ctx)
	var entry model.CacheEntry

	result := db.WithContext(ctx).Where("cache_key = ?", key.String()).First(&entry)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding cache entry in DB",
			"error", result.Error,
			"key", key.String(),
		)
		return nil, fmt.Errorf("gormContentRepository.FindByKey: %w", result.Error)
	}
	return &entry, nil
}

func (r *gormContentRepository) CreateIfAbsent(ctx context.Context, db *gorm.DB, entry *model.CacheEntry) (bool, error) {
	logger := middleware.GetLogger(ctx)

	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry)
	if result.Error != nil {
		logger.Error("Error creating cache entry in DB",
			"error", result.Error,
			"key", entry.Key,
		)
		return false, fmt.Errorf("gormContentRepository.CreateIfAbsent: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *gormContentRepository) ListRecent(ctx context.Context, db *gorm.DB, kind model.ContentKind, scope string, limit int) ([]*model.CacheEntry, error) {
	logger := middleware.GetLogger(ctx)
	var entries []*model.CacheEntry

	q := db.WithContext(ctx).
		Where("kind = ? AND scope = ?", kind, model.NormalizeScope(scope)).
		Order("date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		logger.Error("Error listing cache entries in DB",
			"error", err,
			"kind", kind,
			"scope", scope,
		)
		return nil, fmt.Errorf("gormContentRepository.ListRecent: %w", err)
	}
	return entries, nil
}
