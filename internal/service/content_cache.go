package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"keep_up_backend/internal/generator"
	"keep_up_backend/internal/metrics"
	"keep_up_backend/internal/middleware"
	"keep_up_backend/internal/model"
	"keep_up_backend/internal/repository"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// ContextBuilder renders the prompt for key from its source items.
type ContextBuilder func(key model.CacheKey, items []*model.NewsItem) string

// EnsureOutcome says how Ensure satisfied a request.
type EnsureOutcome string

const (
	OutcomeHit       EnsureOutcome = "hit"       // already cached, generator not called
	OutcomeGenerated EnsureOutcome = "generated" // generated and published by this call
	OutcomeNoData    EnsureOutcome = "no_data"   // no source items yet; nothing cached
	OutcomeRaced     EnsureOutcome = "raced"     // generated, but another writer published first
	outcomeFailed    EnsureOutcome = "failed"    // metrics label only
)

// ContentIndex supplies the source material for a date and scope.
type ContentIndex interface {
	ItemsForDate(ctx context.Context, date model.Day, scope string) ([]*model.NewsItem, error)
}

type repositoryContentIndex struct {
	db   *gorm.DB
	repo repository.NewsRepository
}

// NewRepositoryContentIndex reads source items from the news table.
func NewRepositoryContentIndex(db *gorm.DB, repo repository.NewsRepository) ContentIndex {
	return &repositoryContentIndex{db: db, repo: repo}
}

func (i *repositoryContentIndex) ItemsForDate(ctx context.Context, date model.Day, scope string) ([]*model.NewsItem, error) {
	return i.repo.ItemsForDate(ctx, i.db, date, scope)
}

// RangeReport is the per-date result of EnsureRange.
type RangeReport struct {
	Outcomes map[model.Day]EnsureOutcome
	Failed   map[model.Day]error
}

// FailedDates returns the dates that errored, oldest first.
func (r RangeReport) FailedDates() []model.Day {
	out := make([]model.Day, 0, len(r.Failed))
	for d := range r.Failed {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type ContentCache interface {
	// Ensure returns the entry for key, generating and publishing it on a miss.
	// A nil entry with OutcomeNoData means there is nothing to generate from yet.
	Ensure(ctx context.Context, key model.CacheKey, build ContextBuilder) (*model.CacheEntry, EnsureOutcome, error)
	// EnsureRange runs Ensure for every date in [start-window+1, start] and
	// keeps going past failures.
	EnsureRange(ctx context.Context, kind model.ContentKind, start model.Day, window int, scope string, build ContextBuilder) RangeReport
	// FetchRange returns up to maxCount entries newest first with their payload
	// items decoded, skipping entries that do not decode to a non-empty array.
	FetchRange(ctx context.Context, kind model.ContentKind, scope string, maxCount int) ([]DecodedEntry, error)
}

// DecodedEntry is a cache entry together with its decoded payload items.
type DecodedEntry struct {
	Entry *model.CacheEntry
	Items []json.RawMessage
}

type contentCache struct {
	db      *gorm.DB
	repo    repository.ContentRepository
	index   ContentIndex
	gen     generator.Generator
	metrics *metrics.Metrics
	group   singleflight.Group
}

func NewContentCache(db *gorm.DB, repo repository.ContentRepository, index ContentIndex, gen generator.Generator, m *metrics.Metrics) ContentCache {
	return &contentCache{
		db:      db,
		repo:    repo,
		index:   index,
		gen:     gen,
		metrics: m,
	}
}

type ensureResult struct {
	entry   *model.CacheEntry
	outcome EnsureOutcome
}

func storageError(op string, err error) error {
	return model.NewAppError("STORAGE_UNAVAILABLE", "content store is unavailable", "",
		fmt.Errorf("%s: %w: %v", op, model.ErrStorageUnavailable, err))
}

func generationError(msg string, err error) error {
	if !errors.Is(err, model.ErrGenerationFailed) {
		err = fmt.Errorf("%w: %v", model.ErrGenerationFailed, err)
	}
	return model.NewAppError("GENERATION_FAILED", msg, "", err)
}

func (c *contentCache) Ensure(ctx context.Context, key model.CacheKey, build ContextBuilder) (*model.CacheEntry, EnsureOutcome, error) {
	if err := key.Validate(); err != nil {
		return nil, "", model.NewAppError("INVALID_INPUT", err.Error(), "date", err)
	}

	// 同一プロセス内の同じキーへの同時呼び出しは1回の生成にまとめる
	v, err, shared := c.group.Do(key.String(), func() (interface{}, error) {
		entry, outcome, err := c.ensure(ctx, key, build)
		return ensureResult{entry: entry, outcome: outcome}, err
	})
	res, _ := v.(ensureResult)
	if shared {
		middleware.GetLogger(ctx).Debug("Joined in-flight ensure", "key", key.String())
	}

	label := string(res.outcome)
	if err != nil {
		label = string(outcomeFailed)
	}
	c.metrics.ObserveCacheLookup(string(key.Kind), label)
	return res.entry, res.outcome, err
}

func (c *contentCache) ensure(ctx context.Context, key model.CacheKey, build ContextBuilder) (*model.CacheEntry, EnsureOutcome, error) {
	logger := middleware.GetLogger(ctx).With("key", key.String())

	entry, err := c.repo.FindByKey(ctx, c.db, key)
	if err == nil {
		return entry, OutcomeHit, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, "", storageError("find cache entry", err)
	}

	items, err := c.index.ItemsForDate(ctx, key.Date, key.Scope)
	if err != nil {
		return nil, "", storageError("load source items", err)
	}
	if len(items) == 0 {
		logger.Info("No source items for date, skipping generation")
		return nil, OutcomeNoData, nil
	}

	prompt := build(key, items)

	start := time.Now()
	raw, err := c.gen.Generate(ctx, prompt)
	c.metrics.ObserveGeneration(string(key.Kind), time.Since(start))
	if err != nil {
		logger.Error("Content generation failed", "error", err)
		return nil, "", generationError("content generation failed", err)
	}

	payload := generator.StripCodeFences(raw)
	if err := model.ValidatePayload(payload); err != nil {
		logger.Warn("Generated payload rejected", "error", err, "bytes", len(payload))
		return nil, "", generationError("generated content was not usable", err)
	}

	candidate := model.NewCacheEntry(key, payload)
	created, err := c.repo.CreateIfAbsent(ctx, c.db, candidate)
	if err != nil {
		return nil, "", storageError("publish cache entry", err)
	}
	if created {
		logger.Info("Published generated content", "items", len(items), "bytes", len(payload))
		return candidate, OutcomeGenerated, nil
	}

	// 他のインスタンスが先に書き込んだ。こちらの結果は捨てて勝者を返す
	winner, err := c.repo.FindByKey(ctx, c.db, key)
	if err != nil {
		return nil, "", storageError("reload cache entry after race", err)
	}
	logger.Warn("Lost publish race, discarding local generation")
	return winner, OutcomeRaced, nil
}

func (c *contentCache) EnsureRange(ctx context.Context, kind model.ContentKind, start model.Day, window int, scope string, build ContextBuilder) RangeReport {
	report := RangeReport{
		Outcomes: make(map[model.Day]EnsureOutcome, window),
		Failed:   make(map[model.Day]error),
	}
	logger := middleware.GetLogger(ctx)

	for i := 0; i < window; i++ {
		date := start.AddDays(-i)
		if ctx.Err() != nil {
			report.Failed[date] = ctx.Err()
			continue
		}
		_, outcome, err := c.Ensure(ctx, model.CacheKey{Kind: kind, Date: date, Scope: scope}, build)
		if err != nil {
			logger.Warn("Ensure failed for date", "kind", kind, "date", date, "scope", scope, "error", err)
			report.Failed[date] = err
			continue
		}
		report.Outcomes[date] = outcome
	}
	return report
}

func (c *contentCache) FetchRange(ctx context.Context, kind model.ContentKind, scope string, maxCount int) ([]DecodedEntry, error) {
	entries, err := c.repo.ListRecent(ctx, c.db, kind, scope, maxCount)
	if err != nil {
		return nil, storageError("list cache entries", err)
	}

	out := make([]DecodedEntry, 0, len(entries))
	for _, e := range entries {
		items, err := model.DecodePayloadItems(e.Content)
		if err != nil {
			middleware.GetLogger(ctx).Warn("Skipping undecodable cache entry",
				slog.String("key", e.Key),
				slog.Any("error", err),
			)
			continue
		}
		out = append(out, DecodedEntry{Entry: e, Items: items})
	}
	return out, nil
}
