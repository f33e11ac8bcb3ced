package repository

import (
	"context"
	"testing"

	"keep_up_backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB はテストごとに独立したインメモリDBを用意します。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestContentRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewGormContentRepository()
	key := model.CacheKey{Kind: model.KindRecap, Date: "2024-05-10", Scope: "India"}

	_, err := repo.FindByKey(ctx, db, key)
	assert.ErrorIs(t, err, model.ErrNotFound)

	created, err := repo.CreateIfAbsent(ctx, db, model.NewCacheEntry(key, `[{"v":"first"}]`))
	require.NoError(t, err)
	assert.True(t, created)

	// 2回目の書き込みは何もしない (write-once)
	created, err = repo.CreateIfAbsent(ctx, db, model.NewCacheEntry(key, `[{"v":"second"}]`))
	require.NoError(t, err)
	assert.False(t, created)

	entry, err := repo.FindByKey(ctx, db, model.CacheKey{Kind: model.KindRecap, Date: "2024-05-10", Scope: "INDIA"})
	require.NoError(t, err)
	assert.Equal(t, `[{"v":"first"}]`, entry.Content)

	_, err = repo.CreateIfAbsent(ctx, db, model.NewCacheEntry(model.CacheKey{Kind: model.KindRecap, Date: "2024-05-08", Scope: "india"}, `[1]`))
	require.NoError(t, err)
	_, err = repo.CreateIfAbsent(ctx, db, model.NewCacheEntry(model.CacheKey{Kind: model.KindDailyQuiz, Date: "2024-05-11"}, `[1]`))
	require.NoError(t, err)

	recent, err := repo.ListRecent(ctx, db, model.KindRecap, "india", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, model.Day("2024-05-10"), recent[0].Date)
	assert.Equal(t, model.Day("2024-05-08"), recent[1].Date)

	recent, err = repo.ListRecent(ctx, db, model.KindRecap, "india", 1)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestProgressRepository_OptimisticUpdate(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewGormProgressRepository()

	created, err := repo.Create(ctx, db, model.NewUserProgress("alice", "Alice", "2024-05-10"))
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.Create(ctx, db, model.NewUserProgress("alice", "Other", "2024-05-11"))
	require.NoError(t, err)
	assert.False(t, created)

	a, err := repo.FindByID(ctx, db, "alice")
	require.NoError(t, err)
	b, err := repo.FindByID(ctx, db, "alice")
	require.NoError(t, err)

	a.XP = 50
	require.NoError(t, repo.Update(ctx, db, a))
	assert.Equal(t, int64(2), a.Version)

	// 古いバージョンからの書き込みは競合になり、何も書かれない
	b.XP = 999
	assert.ErrorIs(t, repo.Update(ctx, db, b), model.ErrConflict)

	stored, err := repo.FindByID(ctx, db, "alice")
	require.NoError(t, err)
	assert.Equal(t, 50, stored.XP)
	assert.Equal(t, "Alice", stored.DisplayName)

	// ゼロ値も書き込まれる
	stored.XP = 0
	require.NoError(t, repo.Update(ctx, db, stored))
	stored, err = repo.FindByID(ctx, db, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.XP)

	_, err = repo.FindByID(ctx, db, "ghost")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestProgressRepository_LeaguesAndRanking(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewGormProgressRepository()

	for _, u := range []struct {
		id     string
		xp     int
		league model.League
	}{
		{"b1", 10, model.LeagueBronze},
		{"b2", 40, model.LeagueBronze},
		{"s1", 150, model.LeagueSilver},
		{"s2", 150, model.LeagueSilver},
		{"g1", 900, model.LeagueGold},
	} {
		p := model.NewUserProgress(u.id, "", "2024-05-10")
		p.XP, p.League = u.xp, u.league
		_, err := repo.Create(ctx, db, p)
		require.NoError(t, err)
	}

	n, err := repo.CountXPGreaterThan(ctx, db, 150)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	top, err := repo.TopByXP(ctx, db, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"g1", "s1", "s2"}, []string{top[0].UserID, top[1].UserID, top[2].UserID})

	bronze, err := repo.TopByLeague(ctx, db, model.LeagueBronze, 1)
	require.NoError(t, err)
	require.Len(t, bronze, 1)
	assert.Equal(t, "b2", bronze[0].UserID)

	moved, err := repo.SetLeague(ctx, db, []string{"b2"}, model.LeagueSilver)
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved)
	moved, err = repo.SetLeague(ctx, db, nil, model.LeagueSilver)
	require.NoError(t, err)
	assert.Zero(t, moved)

	b2, err := repo.FindByID(ctx, db, "b2")
	require.NoError(t, err)
	assert.Equal(t, model.LeagueSilver, b2.League)
	assert.Equal(t, int64(2), b2.Version, "league changes bump the version")

	require.NoError(t, repo.Delete(ctx, db, "b1"))
	assert.ErrorIs(t, repo.Delete(ctx, db, "b1"), model.ErrUserNotFound)
}

func TestBookmarkRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewGormBookmarkRepository()

	created, err := repo.Create(ctx, db, &model.Bookmark{UserID: "u1", ContentID: "c1", Title: "first"})
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.Create(ctx, db, &model.Bookmark{UserID: "u1", ContentID: "c1", Title: "dup"})
	require.NoError(t, err)
	assert.False(t, created)
	_, err = repo.Create(ctx, db, &model.Bookmark{UserID: "u1", ContentID: "c2", Title: "second"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, db, &model.Bookmark{UserID: "u2", ContentID: "c1", Title: "other user"})
	require.NoError(t, err)

	list, err := repo.ListByUser(ctx, db, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	deleted, err := repo.Delete(ctx, db, "u1", "c1")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = repo.Delete(ctx, db, "u1", "c1")
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, repo.DeleteByUser(ctx, db, "u1"))
	list, err = repo.ListByUser(ctx, db, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = repo.ListByUser(ctx, db, "u2")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestNewsRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewGormNewsRepository()

	items := []*model.NewsItem{
		{ID: "n1", Title: "Chips", Topic: "Technology", Region: "india", PublishedDate: "2024-05-10", Timestamp: 100, Keywords: datatypes.JSON(`[]`)},
		{ID: "n2", Title: "Cup", Topic: "Sports", Region: "india", PublishedDate: "2024-05-10", Timestamp: 200, Keywords: datatypes.JSON(`[]`)},
		{ID: "n3", Title: "Yen", Topic: "Business", Region: "japan", PublishedDate: "2024-05-10", Timestamp: 300, Keywords: datatypes.JSON(`[]`)},
		{ID: "n4", Title: "Old", Topic: "Technology", Region: "india", PublishedDate: "2024-05-09", Timestamp: 50, Keywords: datatypes.JSON(`[]`)},
	}
	require.NoError(t, repo.SaveAll(ctx, db, items))

	// 同じIDの再保存は上書き
	items[0].Title = "Chips (updated)"
	require.NoError(t, repo.SaveAll(ctx, db, items[:1]))

	all, err := repo.ItemsForDate(ctx, db, "2024-05-10", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "n3", all[0].ID, "newest first")

	india, err := repo.ItemsForDate(ctx, db, "2024-05-10", "India")
	require.NoError(t, err)
	assert.Len(t, india, 2)

	tech, err := repo.ItemsForDate(ctx, db, "2024-05-10", "technology")
	require.NoError(t, err)
	require.Len(t, tech, 1)
	assert.Equal(t, "Chips (updated)", tech[0].Title)

	recent, err := repo.ListRecent(ctx, db, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	byDate, err := repo.ListByDate(ctx, db, "2024-05-09")
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, "n4", byDate[0].ID)

	require.NoError(t, repo.SaveAll(ctx, db, nil))
}

func TestReportRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	report := &model.Report{ReportID: uuid.New(), UserID: "u1", ContentID: "c1", Reason: "wrong"}
	require.NoError(t, NewGormReportRepository().Create(ctx, db, report))

	var n int64
	require.NoError(t, db.Model(&model.Report{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}
