// internal/handlers/main_test.go
package handlers_test

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"keep_up_backend/internal/config"
	"keep_up_backend/internal/handlers"
	"keep_up_backend/internal/lock"
	"keep_up_backend/internal/repository"
	"keep_up_backend/internal/service"
)

const testAdminKey = "test-admin-key"

var (
	testDB     *gorm.DB
	testServer *httptest.Server
	testGen    = &stubGenerator{}
	testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// stubGenerator returns a canned quiz-shaped payload and counts calls.
type stubGenerator struct {
	calls atomic.Int64
}

const stubPayload = `[{"question":"Which team won?","options":["A","B","C"],"correctIndex":1,"explanation":"B won the final."}]`

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	return "```json\n" + stubPayload + "\n```", nil
}

// TestMain はパッケージ全体で共有するDBとサーバーをセットアップします。
func TestMain(m *testing.M) {
	log.Println("Setting up handlers test environment...")

	var err error
	testDB, err = gorm.Open(sqlite.Open("file:handlers_test?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := testDB.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}
	// sqlite の共有インメモリDBは同時書き込みに弱いので1接続に絞る
	sqlDB.SetMaxOpenConns(1)
	if err := repository.Migrate(testDB); err != nil {
		log.Fatalf("failed to migrate test database: %v", err)
	}

	cfg := &config.Config{
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE"},
		},
		CatchUp: config.CatchUpConfig{WindowDays: 3, FetchLimit: 7, Regions: []string{"india"}},
		Progression: config.ProgressionConfig{
			SilverThreshold:    100,
			GoldThreshold:      500,
			PromoteGoldCount:   5,
			PromoteSilverCount: 10,
			Timezone:           "UTC",
		},
		Admin: config.AdminConfig{APIKey: testAdminKey},
	}

	newsRepo := repository.NewGormNewsRepository()
	cache := service.NewContentCache(testDB, repository.NewGormContentRepository(), service.NewRepositoryContentIndex(testDB, newsRepo), testGen, nil)
	catchUp := service.NewCatchUpService(cache, cfg.CatchUp, nil)
	quiz := service.NewQuizService(cache, nil)
	news := service.NewNewsService(testDB, newsRepo, testGen, 50, nil)
	progression := service.NewProgressionService(testDB, repository.NewGormProgressRepository(), repository.NewGormBookmarkRepository(),
		lock.NewLocalLocker(), cfg.Progression, nil)
	reports := service.NewReportService(testDB, repository.NewGormReportRepository())

	router := handlers.NewRouter(cfg, handlers.Handlers{
		User:    handlers.NewUserHandler(progression, testLogger),
		Content: handlers.NewContentHandler(catchUp, quiz, news, "india"),
		Admin:   handlers.NewAdminHandler(progression, news, catchUp, cfg.CatchUp.Regions),
		Report:  handlers.NewReportHandler(reports),
	}, testDB, nil, testLogger)
	testServer = httptest.NewServer(router)

	exitCode := m.Run()

	testServer.Close()
	sqlDB.Close()
	os.Exit(exitCode)
}
