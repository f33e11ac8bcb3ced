package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"keep_up_backend/internal/model"
)

type QuizService interface {
	// CategoryQuiz returns the quiz for category on date (today when empty).
	// An empty slice means there is no news to build one from yet.
	CategoryQuiz(ctx context.Context, date, category string) ([]model.QuizQuestion, error)
	DailyQuiz(ctx context.Context, date string) ([]model.QuizQuestion, error)
}

type quizService struct {
	cache ContentCache
	loc   *time.Location
	now   func() time.Time
}

func NewQuizService(cache ContentCache, loc *time.Location) QuizService {
	if loc == nil {
		loc = time.UTC
	}
	return &quizService{cache: cache, loc: loc, now: time.Now}
}

func (s *quizService) resolveDate(date string) (model.Day, error) {
	if date == "" {
		return model.DayOf(s.now().In(s.loc)), nil
	}
	day, err := model.ParseDay(date)
	if err != nil {
		return "", model.NewAppError("INVALID_INPUT", err.Error(), "date", err)
	}
	return day, nil
}

func (s *quizService) CategoryQuiz(ctx context.Context, date, categoryName string) ([]model.QuizQuestion, error) {
	day, err := s.resolveDate(date)
	if err != nil {
		return nil, err
	}
	category, err := model.ParseCategory(categoryName)
	if err != nil {
		return nil, model.NewAppError("INVALID_CATEGORY", err.Error(), "category", err)
	}
	key := model.CacheKey{Kind: model.KindCategoryQuiz, Date: day, Scope: string(category)}
	return s.quiz(ctx, key, BuildCategoryQuizContext)
}

func (s *quizService) DailyQuiz(ctx context.Context, date string) ([]model.QuizQuestion, error) {
	day, err := s.resolveDate(date)
	if err != nil {
		return nil, err
	}
	key := model.CacheKey{Kind: model.KindDailyQuiz, Date: day}
	return s.quiz(ctx, key, BuildDailyQuizContext)
}

func (s *quizService) quiz(ctx context.Context, key model.CacheKey, build ContextBuilder) ([]model.QuizQuestion, error) {
	entry, outcome, err := s.cache.Ensure(ctx, key, build)
	if err != nil {
		return nil, err
	}
	if outcome == OutcomeNoData || entry == nil {
		return []model.QuizQuestion{}, nil
	}

	var questions []model.QuizQuestion
	if err := json.Unmarshal([]byte(entry.Content), &questions); err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "stored quiz could not be decoded", "",
			fmt.Errorf("%w: %v", model.ErrInternalServer, err))
	}
	return questions, nil
}
