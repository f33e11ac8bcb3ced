package service

import (
	"context"
	"sync"
	"time"

	"keep_up_backend/internal/config"
	"keep_up_backend/internal/middleware"
	"keep_up_backend/internal/model"

	"golang.org/x/sync/errgroup"
)

// maxParallelRegions bounds concurrent backfills. Generation is rate limited
// anyway, so more only queues on the limiter.
const maxParallelRegions = 4

type CatchUpService interface {
	// WeeklyCatchUp backfills the recent recap window for region, then returns
	// the newest recaps.
	WeeklyCatchUp(ctx context.Context, region string) ([]model.DailyRecap, error)
	// Backfill ensures the recap window for every region and reports per region.
	Backfill(ctx context.Context, regions []string) map[string]RangeReport
}

type catchUpService struct {
	cache ContentCache
	cfg   config.CatchUpConfig
	loc   *time.Location
	now   func() time.Time
}

func NewCatchUpService(cache ContentCache, cfg config.CatchUpConfig, loc *time.Location) CatchUpService {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = config.DefaultCatchUpWindowDays
	}
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = config.DefaultCatchUpFetchLimit
	}
	if loc == nil {
		loc = time.UTC
	}
	return &catchUpService{cache: cache, cfg: cfg, loc: loc, now: time.Now}
}

func (s *catchUpService) today() model.Day {
	return model.DayOf(s.now().In(s.loc))
}

func (s *catchUpService) WeeklyCatchUp(ctx context.Context, region string) ([]model.DailyRecap, error) {
	logger := middleware.GetLogger(ctx)

	report := s.cache.EnsureRange(ctx, model.KindRecap, s.today(), s.cfg.WindowDays, region, BuildRecapContext)
	if failed := report.FailedDates(); len(failed) > 0 {
		// 失敗した日は次回また生成を試みる。取得済みの分は返す
		logger.Warn("Some recap dates could not be generated", "region", region, "dates", failed)
	}

	entries, err := s.cache.FetchRange(ctx, model.KindRecap, region, s.cfg.FetchLimit)
	if err != nil {
		return nil, err
	}

	recaps := make([]model.DailyRecap, 0, len(entries))
	for _, e := range entries {
		recaps = append(recaps, model.DailyRecap{Date: e.Entry.Date, Scope: e.Entry.Scope, Items: e.Items})
	}
	return recaps, nil
}

func (s *catchUpService) Backfill(ctx context.Context, regions []string) map[string]RangeReport {
	var (
		mu      sync.Mutex
		reports = make(map[string]RangeReport, len(regions))
	)
	today := s.today()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelRegions)
	for _, region := range regions {
		region := region
		g.Go(func() error {
			report := s.cache.EnsureRange(gctx, model.KindRecap, today, s.cfg.WindowDays, region, BuildRecapContext)
			mu.Lock()
			reports[region] = report
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return reports
}
