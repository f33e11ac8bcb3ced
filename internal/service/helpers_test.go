package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"keep_up_backend/internal/model"
	"keep_up_backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB はテストごとに独立したインメモリDBを用意します。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open sqlite")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repository.Migrate(db))
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// fixedClock returns a now func pinned to the given day at noon UTC.
func fixedClock(day string) func() time.Time {
	ts, err := time.Parse(model.DayLayout, day)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return ts.Add(12 * time.Hour) }
}

// stubIndex serves news items from memory, keyed by date.
type stubIndex struct {
	mu    sync.Mutex
	items map[model.Day][]*model.NewsItem
	err   error
	calls int
}

func (s *stubIndex) ItemsForDate(ctx context.Context, date model.Day, scope string) ([]*model.NewsItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.items[date], nil
}

func newsItem(id string, date model.Day) *model.NewsItem {
	return &model.NewsItem{ID: id, Title: "Headline " + id, Topic: "World", Region: "india", PublishedDate: date}
}
