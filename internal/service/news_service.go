package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"keep_up_backend/internal/generator"
	"keep_up_backend/internal/middleware"
	"keep_up_backend/internal/model"
	"keep_up_backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NewsService interface {
	// GenerateAndIndex researches today's headlines for region and stores
	// them as news items, the source material of recaps and quizzes.
	GenerateAndIndex(ctx context.Context, region string) ([]*model.NewsItem, error)
	// List returns the newest items, or the items of date when date is set.
	List(ctx context.Context, date string) ([]*model.NewsItem, error)
}

type newsService struct {
	db        *gorm.DB
	newsRepo  repository.NewsRepository
	gen       generator.Generator
	listLimit int
	loc       *time.Location
	now       func() time.Time
}

func NewNewsService(db *gorm.DB, newsRepo repository.NewsRepository, gen generator.Generator, listLimit int, loc *time.Location) NewsService {
	if listLimit <= 0 {
		listLimit = 50
	}
	if loc == nil {
		loc = time.UTC
	}
	return &newsService{
		db:        db,
		newsRepo:  newsRepo,
		gen:       gen,
		listLimit: listLimit,
		loc:       loc,
		now:       time.Now,
	}
}

// newsCard is one element of the formatter's JSON output.
type newsCard struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Topic       string   `json:"topic"`
	ContentLine string   `json:"contentLine"`
	Keywords    []string `json:"keywords"`
	ImageURL    string   `json:"imageUrl"`
}

func (s *newsService) GenerateAndIndex(ctx context.Context, region string) ([]*model.NewsItem, error) {
	region = strings.TrimSpace(region)
	if region == "" {
		return nil, model.NewAppError("INVALID_INPUT", "region is required", "region", model.ErrInvalidInput)
	}
	logger := middleware.GetLogger(ctx).With("region", region)

	facts, err := s.gen.Generate(ctx, buildResearchPrompt(region))
	if err != nil {
		logger.Error("News research failed", "error", err)
		return nil, generationError("news research failed", err)
	}

	formatted, err := s.gen.Generate(ctx, buildFormatPrompt(facts))
	if err != nil {
		logger.Error("News formatting failed", "error", err)
		return nil, generationError("news formatting failed", err)
	}

	items, err := s.parseCards(generator.StripCodeFences(formatted), region)
	if err != nil {
		logger.Warn("Formatter returned unusable cards", "error", err)
		return nil, generationError("formatted news was not usable", err)
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.newsRepo.SaveAll(ctx, tx, items)
	}); err != nil {
		return nil, storageError("save news items", err)
	}

	logger.Info("News indexed", "count", len(items))
	return items, nil
}

func (s *newsService) parseCards(payload, region string) ([]*model.NewsItem, error) {
	var cards []newsCard
	if err := json.Unmarshal([]byte(payload), &cards); err != nil {
		return nil, fmt.Errorf("decode cards: %w", err)
	}

	now := s.now().In(s.loc)
	today := model.DayOf(now)
	items := make([]*model.NewsItem, 0, len(cards))
	for _, c := range cards {
		title := strings.TrimSpace(c.Title)
		if title == "" {
			title = strings.TrimSpace(c.ContentLine)
		}
		if title == "" {
			continue
		}
		topic := strings.TrimSpace(c.Topic)
		if cat, err := model.ParseCategory(topic); err == nil {
			topic = string(cat)
		}
		keywords := c.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		kw, err := json.Marshal(keywords)
		if err != nil {
			return nil, fmt.Errorf("encode keywords: %w", err)
		}
		items = append(items, &model.NewsItem{
			ID:            uuid.NewString(),
			Title:         title,
			Description:   c.Description,
			ImageURL:      c.ImageURL,
			Time:          now.Format("15:04"),
			Topic:         topic,
			ContentLine:   c.ContentLine,
			Keywords:      datatypes.JSON(kw),
			Region:        model.NormalizeScope(region),
			PublishedDate: today,
			Timestamp:     now.UnixMilli(),
		})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no usable cards in %d results", len(cards))
	}
	return items, nil
}

func (s *newsService) List(ctx context.Context, date string) ([]*model.NewsItem, error) {
	if date == "" {
		items, err := s.newsRepo.ListRecent(ctx, s.db, s.listLimit)
		if err != nil {
			return nil, storageError("list recent news", err)
		}
		return items, nil
	}

	day, err := model.ParseDay(date)
	if err != nil {
		return nil, model.NewAppError("INVALID_INPUT", err.Error(), "date", err)
	}
	items, err := s.newsRepo.ListByDate(ctx, s.db, day)
	if err != nil {
		return nil, storageError("list news by date", err)
	}
	return items, nil
}
