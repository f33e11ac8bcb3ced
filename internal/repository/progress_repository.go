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

type ProgressRepository interface {
	// Create inserts progress unless the user already exists.
	Create(ctx context.Context, tx *gorm.DB, progress *model.UserProgress) (created bool, err error)
	FindByID(ctx context.Context, db *gorm.DB, userID string) (*model.UserProgress, error)
	// Update writes the whole record if its stored version still equals
	// progress.Version, then bumps progress.Version. A stale version returns
	// model.ErrConflict and writes nothing.
	Update(ctx context.Context, tx *gorm.DB, progress *model.UserProgress) error
	CountXPGreaterThan(ctx context.Context, db *gorm.DB, xp int) (int64, error)
	TopByXP(ctx context.Context, db *gorm.DB, limit int) ([]*model.UserProgress, error)
	TopByLeague(ctx context.Context, db *gorm.DB, league model.League, limit int) ([]*model.UserProgress, error)
	SetLeague(ctx context.Context, tx *gorm.DB, userIDs []string, league model.League) (int64, error)
	Delete(ctx context.Context, tx *gorm.DB, userID string) error
}

type gormProgressRepository struct{}

func NewGormProgressRepository() ProgressRepository {
	return &gormProgressRepository{}
}

func (r *gormProgressRepository) Create(ctx context.Context, tx *gorm.DB, progress *model.UserProgress) (bool, error) {
	logger := middleware.GetLogger(ctx)

	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(progress)
	if result.Error != nil {
		logger.Error("Error creating user progress in DB",
			"error", result.Error,
			"user_id", progress.UserID,
		)
		return false, fmt.Errorf("gormProgressRepository.Create: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *gormProgressRepository) FindByID(ctx context.Context, db *gorm.DB, userID string) (*model.UserProgress, error) {
	logger := middleware.GetLogger(ctx)
	var progress model.UserProgress

	result := db.WithContext(ctx).Where("user_id = ?", userID).First(&progress)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrUserNotFound
		}
		logger.Error("Error finding user progress in DB",
			"error", result.Error,
			"user_id", userID,
		)
		return nil, fmt.Errorf("gormProgressRepository.FindByID: %w", result.Error)
	}
	return &progress, nil
}

func (r *gormProgressRepository) Update(ctx context.Context, tx *gorm.DB, progress *model.UserProgress) error {
	logger := middleware.GetLogger(ctx)

	// mapで渡すのはゼロ値(xp=0など)も確実に更新するため
	result := tx.WithContext(ctx).
		Model(&model.UserProgress{}).
		Where("user_id = ? AND version = ?", progress.UserID, progress.Version).
		Updates(map[string]interface{}{
			"display_name":     progress.DisplayName,
			"xp":               progress.XP,
			"league":           progress.League,
			"streak":           progress.Streak,
			"last_active_date": progress.LastActiveDate,
			"last_played":      progress.LastPlayed,
			"version":          progress.Version + 1,
		})
	if result.Error != nil {
		logger.Error("Error updating user progress in DB",
			"error", result.Error,
			"user_id", progress.UserID,
		)
		return fmt.Errorf("gormProgressRepository.Update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		logger.Warn("Stale version on user progress update",
			"user_id", progress.UserID,
			"version", progress.Version,
		)
		return model.ErrConflict
	}
	progress.Version++
	return nil
}

func (r *gormProgressRepository) CountXPGreaterThan(ctx context.Context, db *gorm.DB, xp int) (int64, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&model.UserProgress{}).Where("xp > ?", xp).Count(&count).Error; err != nil {
		middleware.GetLogger(ctx).Error("Error counting users by xp", "error", err, "xp", xp)
		return 0, fmt.Errorf("gormProgressRepository.CountXPGreaterThan: %w", err)
	}
	return count, nil
}

func (r *gormProgressRepository) TopByXP(ctx context.Context, db *gorm.DB, limit int) ([]*model.UserProgress, error) {
	var users []*model.UserProgress
	if err := db.WithContext(ctx).Order("xp DESC, user_id ASC").Limit(limit).Find(&users).Error; err != nil {
		middleware.GetLogger(ctx).Error("Error listing top users", "error", err, "limit", limit)
		return nil, fmt.Errorf("gormProgressRepository.TopByXP: %w", err)
	}
	return users, nil
}

func (r *gormProgressRepository) TopByLeague(ctx context.Context, db *gorm.DB, league model.League, limit int) ([]*model.UserProgress, error) {
	var users []*model.UserProgress
	if err := db.WithContext(ctx).
		Where("league = ?", league).
		Order("xp DESC, user_id ASC").
		Limit(limit).
		Find(&users).Error; err != nil {
		middleware.GetLogger(ctx).Error("Error listing top users in league", "error", err, "league", league)
		return nil, fmt.Errorf("gormProgressRepository.TopByLeague: %w", err)
	}
	return users, nil
}

func (r *gormProgressRepository) SetLeague(ctx context.Context, tx *gorm.DB, userIDs []string, league model.League) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	// version も上げて、並行中の addPoints を競合として検出させる
	result := tx.WithContext(ctx).
		Model(&model.UserProgress{}).
		Where("user_id IN ?", userIDs).
		Updates(map[string]interface{}{
			"league":  league,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		middleware.GetLogger(ctx).Error("Error setting league", "error", result.Error, "league", league, "count", len(userIDs))
		return 0, fmt.Errorf("gormProgressRepository.SetLeague: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *gormProgressRepository) Delete(ctx context.Context, tx *gorm.DB, userID string) error {
	result := tx.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.UserProgress{})
	if result.Error != nil {
		middleware.GetLogger(ctx).Error("Error deleting user progress", "error", result.Error, "user_id", userID)
		return fmt.Errorf("gormProgressRepository.Delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrUserNotFound
	}
	return nil
}
