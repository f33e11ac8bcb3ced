package repository

import (
	"context"
	"fmt"

	"keep_up_backend/internal/middleware"
	"keep_up_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookmarkRepository interface {
	Create(ctx context.Context, tx *gorm.DB, bookmark *model.Bookmark) (created bool, err error)
	Delete(ctx context.Context, tx *gorm.DB, userID, contentID string) (deleted bool, err error)
	ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]*model.Bookmark, error)
	DeleteByUser(ctx context.Context, tx *gorm.DB, userID string) error
}

type gormBookmarkRepository struct{}

func NewGormBookmarkRepository() BookmarkRepository {
	return &gormBookmarkRepository{}
}

func (r *gormBookmarkRepository) Create(ctx context.Context, tx *gorm.DB, bookmark *model.Bookmark) (bool, error) {
	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(bookmark)
	if result.Error != nil {
		middleware.GetLogger(ctx).Error("Error creating bookmark in DB",
			"error", result.Error,
			"user_id", bookmark.UserID,
			"content_id", bookmark.ContentID,
		)
		return false, fmt.Errorf("gormBookmarkRepository.Create: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *gormBookmarkRepository) Delete(ctx context.Context, tx *gorm.DB, userID, contentID string) (bool, error) {
	result := tx.WithContext(ctx).
		Where("user_id = ? AND content_id = ?", userID, contentID).
		Delete(&model.Bookmark{})
	if result.Error != nil {
		middleware.GetLogger(ctx).Error("Error deleting bookmark in DB",
			"error", result.Error,
			"user_id", userID,
			"content_id", contentID,
		)
		return false, fmt.Errorf("gormBookmarkRepository.Delete: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *gormBookmarkRepository) ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]*model.Bookmark, error) {
	var bookmarks []*model.Bookmark
	if err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, content_id ASC").
		Find(&bookmarks).Error; err != nil {
		middleware.GetLogger(ctx).Error("Error listing bookmarks in DB", "error", err, "user_id", userID)
		return nil, fmt.Errorf("gormBookmarkRepository.ListByUser: %w", err)
	}
	return bookmarks, nil
}

func (r *gormBookmarkRepository) DeleteByUser(ctx context.Context, tx *gorm.DB, userID string) error {
	if err := tx.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Bookmark{}).Error; err != nil {
		middleware.GetLogger(ctx).Error("Error deleting bookmarks of user", "error", err, "user_id", userID)
		return fmt.Errorf("gormBookmarkRepository.DeleteByUser: %w", err)
	}
	return nil
}
