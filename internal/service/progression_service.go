package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"keep_up_backend/internal/config"
	"keep_up_backend/internal/lock"
	"keep_up_backend/internal/metrics"
	"keep_up_backend/internal/middleware"
	"keep_up_backend/internal/model"
	"keep_up_backend/internal/repository"

	"gorm.io/gorm"
)

const maxUserIDLength = 128

type ProgressionService interface {
	// Register creates the user if absent. created is false for an existing user.
	Register(ctx context.Context, userID, displayName string) (progress *model.UserProgress, created bool, err error)
	AddPoints(ctx context.Context, userID string, points int, category string) (*model.PointsResult, error)
	RestoreStreak(ctx context.Context, userID string) (*model.UserProgress, error)
	UnlockCategory(ctx context.Context, userID, category string) (*model.UserProgress, error)
	Rank(ctx context.Context, userID string) (int64, error)
	// Profile registers the user on first read.
	Profile(ctx context.Context, userID string) (*model.UserProfile, error)
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
	LeagueLeaderboard(ctx context.Context, league model.League, limit int) ([]model.LeaderboardEntry, error)
	PromoteSeason(ctx context.Context) (*model.SeasonResult, error)
	AddBookmark(ctx context.Context, bookmark *model.Bookmark) (created bool, err error)
	RemoveBookmark(ctx context.Context, userID, contentID string) error
	ListBookmarks(ctx context.Context, userID string) ([]*model.Bookmark, error)
	DeleteUser(ctx context.Context, userID string) error
}

type progressionService struct {
	db           *gorm.DB
	progRepo     repository.ProgressRepository
	bookmarkRepo repository.BookmarkRepository
	locker       lock.Locker
	cfg          config.ProgressionConfig
	thresholds   model.LeagueThresholds
	loc          *time.Location
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewProgressionService(
	db *gorm.DB,
	progRepo repository.ProgressRepository,
	bookmarkRepo repository.BookmarkRepository,
	locker lock.Locker,
	cfg config.ProgressionConfig,
	m *metrics.Metrics,
) ProgressionService {
	if cfg.MaxUpdateRetries <= 0 {
		cfg.MaxUpdateRetries = 5
	}
	if cfg.LeaderboardLimit <= 0 {
		cfg.LeaderboardLimit = 10
	}
	if cfg.LeagueBoardLimit <= 0 {
		cfg.LeagueBoardLimit = 20
	}
	th := model.DefaultLeagueThresholds
	if cfg.SilverThreshold > 0 && cfg.GoldThreshold > cfg.SilverThreshold {
		th = model.LeagueThresholds{Silver: cfg.SilverThreshold, Gold: cfg.GoldThreshold}
	}
	return &progressionService{
		db:           db,
		progRepo:     progRepo,
		bookmarkRepo: bookmarkRepo,
		locker:       locker,
		cfg:          cfg,
		thresholds:   th,
		loc:          cfg.Location(),
		metrics:      m,
		now:          time.Now,
	}
}

func (s *progressionService) today() model.Day {
	return model.DayOf(s.now().In(s.loc))
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" || len(userID) > maxUserIDLength {
		return model.NewAppError("INVALID_INPUT", "user_id is required and must be at most 128 characters", "user_id", model.ErrInvalidInput)
	}
	return nil
}

func userNotFound(userID string) error {
	return model.NewAppError("USER_NOT_FOUND", fmt.Sprintf("user %q not found", userID), "user_id", model.ErrUserNotFound)
}

// progressError maps repository errors to client-facing errors.
func progressError(op, userID string, err error) error {
	if errors.Is(err, model.ErrUserNotFound) {
		return userNotFound(userID)
	}
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return storageError(op, err)
}

func (s *progressionService) Register(ctx context.Context, userID, displayName string) (*model.UserProgress, bool, error) {
	if err := validateUserID(userID); err != nil {
		return nil, false, err
	}
	logger := middleware.GetLogger(ctx)

	progress := model.NewUserProgress(userID, strings.TrimSpace(displayName), s.today())
	created, err := s.progRepo.Create(ctx, s.db, progress)
	if err != nil {
		return nil, false, storageError("create user progress", err)
	}
	if created {
		logger.Info("User registered", "user_id", userID)
		return progress, true, nil
	}

	existing, err := s.progRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, false, progressError("find user progress", userID, err)
	}
	return existing, false, nil
}

// mutate runs a locked, version-checked read-modify-write on one user.
// fn reports whether it changed the record; unchanged records are not written.
func (s *progressionService) mutate(ctx context.Context, userID string, fn func(p *model.UserProgress) (bool, error)) (*model.UserProgress, error) {
	logger := middleware.GetLogger(ctx)

	unlock, err := s.locker.Lock(ctx, "progress:"+userID)
	if err != nil {
		return nil, model.NewAppError("STORAGE_UNAVAILABLE", "could not acquire user lock", "",
			fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err))
	}
	defer unlock()

	for attempt := 1; attempt <= s.cfg.MaxUpdateRetries; attempt++ {
		p, err := s.progRepo.FindByID(ctx, s.db, userID)
		if err != nil {
			return nil, progressError("find user progress", userID, err)
		}

		changed, err := fn(p)
		if err != nil {
			return nil, err
		}
		if !changed {
			return p, nil
		}

		err = s.progRepo.Update(ctx, s.db, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, model.ErrConflict) {
			return nil, storageError("update user progress", err)
		}
		// 別インスタンス(またはシーズン昇格)が先に書いた。最新を読み直して再評価する
		logger.Warn("Version conflict on user progress, retrying", "user_id", userID, "attempt", attempt)
	}
	return nil, model.NewAppError("CONFLICT", "too many concurrent updates, please retry", "", model.ErrConflict)
}

func (s *progressionService) AddPoints(ctx context.Context, userID string, points int, categoryName string) (*model.PointsResult, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if points <= 0 {
		return nil, model.NewAppError("INVALID_POINTS", "points must be positive", "points", model.ErrInvalidPoints)
	}
	category, err := model.ParseCategory(categoryName)
	if err != nil {
		return nil, model.NewAppError("INVALID_CATEGORY", err.Error(), "category", err)
	}

	today := s.today()
	p, err := s.mutate(ctx, userID, func(p *model.UserProgress) (bool, error) {
		if err := applyPoints(p, points, category, today, s.thresholds); err != nil {
			if errors.Is(err, model.ErrCooldownActive) {
				return false, model.NewAppError("COOLDOWN_ACTIVE",
					fmt.Sprintf("%s was already played today", category), "category", err)
			}
			return false, err
		}
		return true, nil
	})
	if err != nil {
		if errors.Is(err, model.ErrCooldownActive) {
			s.metrics.ObserveCooldownRejection(string(category))
		}
		return nil, err
	}

	s.metrics.ObservePoints(points)
	middleware.GetLogger(ctx).Info("Points awarded",
		"user_id", userID,
		"points", points,
		"category", category,
		"xp", p.XP,
		"league", p.League,
		"streak", p.Streak,
	)
	return &model.PointsResult{XP: p.XP, League: p.League, Streak: p.Streak}, nil
}

func (s *progressionService) RestoreStreak(ctx context.Context, userID string) (*model.UserProgress, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	today := s.today()
	return s.mutate(ctx, userID, func(p *model.UserProgress) (bool, error) {
		return restoreStreak(p, today), nil
	})
}

func (s *progressionService) UnlockCategory(ctx context.Context, userID, categoryName string) (*model.UserProgress, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	category, err := model.ParseCategory(categoryName)
	if err != nil {
		return nil, model.NewAppError("INVALID_CATEGORY", err.Error(), "category", err)
	}
	return s.mutate(ctx, userID, func(p *model.UserProgress) (bool, error) {
		cooldowns, err := p.Cooldowns()
		if err != nil {
			return false, err
		}
		if _, ok := cooldowns[category]; !ok {
			return false, nil
		}
		delete(cooldowns, category)
		return true, p.SetCooldowns(cooldowns)
	})
}

func (s *progressionService) Rank(ctx context.Context, userID string) (int64, error) {
	p, err := s.progRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return 0, progressError("find user progress", userID, err)
	}
	return s.rankOf(ctx, p)
}

func (s *progressionService) rankOf(ctx context.Context, p *model.UserProgress) (int64, error) {
	above, err := s.progRepo.CountXPGreaterThan(ctx, s.db, p.XP)
	if err != nil {
		return 0, storageError("count users above", err)
	}
	return above + 1, nil
}

func (s *progressionService) Profile(ctx context.Context, userID string) (*model.UserProfile, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	p, err := s.progRepo.FindByID(ctx, s.db, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		p, _, err = s.Register(ctx, userID, "")
	}
	if err != nil {
		return nil, progressError("find user progress", userID, err)
	}

	rank, err := s.rankOf(ctx, p)
	if err != nil {
		return nil, err
	}
	return &model.UserProfile{Progress: p, Rank: rank}, nil
}

func toLeaderboard(users []*model.UserProgress) []model.LeaderboardEntry {
	entries := make([]model.LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = model.LeaderboardEntry{
			Rank:        i + 1,
			UserID:      u.UserID,
			DisplayName: u.DisplayName,
			XP:          u.XP,
			League:      u.League,
		}
	}
	return entries
}

func (s *progressionService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = s.cfg.LeaderboardLimit
	}
	users, err := s.progRepo.TopByXP(ctx, s.db, limit)
	if err != nil {
		return nil, storageError("list leaderboard", err)
	}
	return toLeaderboard(users), nil
}

func (s *progressionService) LeagueLeaderboard(ctx context.Context, league model.League, limit int) ([]model.LeaderboardEntry, error) {
	if !league.Valid() {
		return nil, model.NewAppError("INVALID_INPUT", fmt.Sprintf("unknown league %q", league), "league", model.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = s.cfg.LeagueBoardLimit
	}
	users, err := s.progRepo.TopByLeague(ctx, s.db, league, limit)
	if err != nil {
		return nil, storageError("list league leaderboard", err)
	}
	return toLeaderboard(users), nil
}

func userIDs(users []*model.UserProgress) []string {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.UserID
	}
	return ids
}

func (s *progressionService) PromoteSeason(ctx context.Context) (*model.SeasonResult, error) {
	logger := middleware.GetLogger(ctx)
	result := &model.SeasonResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Silver→Gold を先に行い、Bronzeが1回でGoldまで上がらないようにする
		silvers, err := s.progRepo.TopByLeague(ctx, tx, model.LeagueSilver, s.cfg.PromoteGoldCount)
		if err != nil {
			return err
		}
		n, err := s.progRepo.SetLeague(ctx, tx, userIDs(silvers), model.LeagueGold)
		if err != nil {
			return err
		}
		result.PromotedToGold = int(n)

		bronzes, err := s.progRepo.TopByLeague(ctx, tx, model.LeagueBronze, s.cfg.PromoteSilverCount)
		if err != nil {
			return err
		}
		n, err = s.progRepo.SetLeague(ctx, tx, userIDs(bronzes), model.LeagueSilver)
		if err != nil {
			return err
		}
		result.PromotedToSilver = int(n)
		return nil
	})
	if err != nil {
		logger.Error("Season promotion failed, rolled back", "error", err)
		return nil, storageError("promote season", err)
	}

	logger.Info("Season promotion completed",
		"promoted_to_gold", result.PromotedToGold,
		"promoted_to_silver", result.PromotedToSilver,
	)
	return result, nil
}

func (s *progressionService) AddBookmark(ctx context.Context, bookmark *model.Bookmark) (bool, error) {
	if err := validateUserID(bookmark.UserID); err != nil {
		return false, err
	}
	if strings.TrimSpace(bookmark.ContentID) == "" {
		return false, model.NewAppError("INVALID_INPUT", "content_id is required", "content_id", model.ErrInvalidInput)
	}
	if _, err := s.progRepo.FindByID(ctx, s.db, bookmark.UserID); err != nil {
		return false, progressError("find user progress", bookmark.UserID, err)
	}

	created, err := s.bookmarkRepo.Create(ctx, s.db, bookmark)
	if err != nil {
		return false, storageError("create bookmark", err)
	}
	return created, nil
}

func (s *progressionService) RemoveBookmark(ctx context.Context, userID, contentID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	deleted, err := s.bookmarkRepo.Delete(ctx, s.db, userID, contentID)
	if err != nil {
		return storageError("delete bookmark", err)
	}
	if !deleted {
		middleware.GetLogger(ctx).Debug("Bookmark already absent", "user_id", userID, "content_id", contentID)
	}
	return nil
}

func (s *progressionService) ListBookmarks(ctx context.Context, userID string) ([]*model.Bookmark, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	bookmarks, err := s.bookmarkRepo.ListByUser(ctx, s.db, userID)
	if err != nil {
		return nil, storageError("list bookmarks", err)
	}
	return bookmarks, nil
}

func (s *progressionService) DeleteUser(ctx context.Context, userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	unlock, err := s.locker.Lock(ctx, "progress:"+userID)
	if err != nil {
		return model.NewAppError("STORAGE_UNAVAILABLE", "could not acquire user lock", "",
			fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err))
	}
	defer unlock()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.bookmarkRepo.DeleteByUser(ctx, tx, userID); err != nil {
			return err
		}
		return s.progRepo.Delete(ctx, tx, userID)
	})
	if err != nil {
		return progressError("delete user", userID, err)
	}
	middleware.GetLogger(ctx).Info("User erased", "user_id", userID)
	return nil
}
