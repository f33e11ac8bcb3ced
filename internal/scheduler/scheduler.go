// Package scheduler runs the periodic content jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"keep_up_backend/internal/config"
	"keep_up_backend/internal/middleware"
	"keep_up_backend/internal/service"

	"github.com/robfig/cron/v3"
)

// jobTimeout bounds one run so a hung LLM call cannot pile up runs.
const jobTimeout = 30 * time.Minute

type Scheduler struct {
	cron    *cron.Cron
	catchUp service.CatchUpService
	news    service.NewsService
	cfg     *config.Config
	logger  *slog.Logger
}

func New(catchUp service.CatchUpService, news service.NewsService, cfg *config.Config, logger *slog.Logger) *Scheduler {
	c := cron.New(
		cron.WithLocation(cfg.Progression.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &Scheduler{cron: c, catchUp: catchUp, news: news, cfg: cfg, logger: logger.With("component", "scheduler")}
}

// Register adds the jobs without starting them.
func (s *Scheduler) Register() error {
	if s.cfg.News.Schedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.News.Schedule, s.RunNewsIndexing); err != nil {
			return fmt.Errorf("schedule news indexing %q: %w", s.cfg.News.Schedule, err)
		}
	}
	if s.cfg.CatchUp.Schedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.CatchUp.Schedule, s.RunBackfill); err != nil {
			return fmt.Errorf("schedule catch-up backfill %q: %w", s.cfg.CatchUp.Schedule, err)
		}
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", "entries", len(s.cron.Entries()))
}

// Stop waits for running jobs, up to ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out with jobs still running")
	}
}

func (s *Scheduler) jobContext(job string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	return middleware.WithLogger(ctx, s.logger.With("job", job)), cancel
}

// RunBackfill ensures the recap window for every configured region.
func (s *Scheduler) RunBackfill() {
	ctx, cancel := s.jobContext("catchup_backfill")
	defer cancel()
	logger := middleware.GetLogger(ctx)

	logger.Info("Running scheduled catch-up backfill", "regions", s.cfg.CatchUp.Regions)
	reports := s.catchUp.Backfill(ctx, s.cfg.CatchUp.Regions)
	for region, r := range reports {
		logger.Info("Backfill finished for region",
			"region", region,
			"outcomes", len(r.Outcomes),
			"failed_dates", r.FailedDates(),
		)
	}
}

// RunNewsIndexing generates today's news for every configured region.
func (s *Scheduler) RunNewsIndexing() {
	ctx, cancel := s.jobContext("news_indexing")
	defer cancel()
	logger := middleware.GetLogger(ctx)

	for _, region := range s.cfg.CatchUp.Regions {
		items, err := s.news.GenerateAndIndex(ctx, region)
		if err != nil {
			logger.Error("Scheduled news indexing failed", "region", region, "error", err)
			continue
		}
		logger.Info("Scheduled news indexing done", "region", region, "count", len(items))
	}
}
