package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	genmocks "keep_up_backend/internal/generator/mocks"
	"keep_up_backend/internal/model"
	"keep_up_backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const formattedCards = "```json\n" + `[
  {"title":"Chip export rules eased","description":"New rules.","topic":"technology","contentLine":"Chips flow again.","keywords":["chips","trade"]},
  {"title":"","description":"missing title","topic":"Sports","contentLine":"Final goes to extra time."},
  {"title":"   ","description":"dropped","topic":"World","contentLine":""}
]` + "\n```"

func isResearchPrompt(p string) bool { return strings.HasPrefix(p, "Find 5 distinct") }

func TestNewsService_GenerateAndIndex(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.NewGormNewsRepository()

	gen := genmocks.NewGenerator(t)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return isResearchPrompt(p) && strings.Contains(p, "India")
	})).Return("1. Chip rules eased\n2. Cup final", nil).Once()
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return !isResearchPrompt(p) && strings.Contains(p, "Cup final")
	})).Return(formattedCards, nil).Once()

	svc := NewNewsService(db, repo, gen, 10, nil).(*newsService)
	svc.now = fixedClock("2024-05-10")

	items, err := svc.GenerateAndIndex(ctx, "India")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Technology", items[0].Topic)
	assert.Equal(t, []string{"chips", "trade"}, items[0].KeywordList())
	assert.Equal(t, "Final goes to extra time.", items[1].Title, "contentLine fills a missing title")
	assert.Equal(t, "india", items[1].Region)
	assert.Equal(t, "12:00", items[1].Time)

	stored, err := svc.List(ctx, "2024-05-10")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	// 保存したニュースはキャッシュのソースとして読める
	index := NewRepositoryContentIndex(db, repo)
	tech, err := index.ItemsForDate(ctx, "2024-05-10", "TECHNOLOGY")
	require.NoError(t, err)
	assert.Len(t, tech, 1)
	regional, err := index.ItemsForDate(ctx, "2024-05-10", "india")
	require.NoError(t, err)
	assert.Len(t, regional, 2)
}

func TestNewsService_GenerateAndIndex_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		region  string
		setup   func(g *genmocks.Generator)
		wantErr error
	}{
		{
			name:    "異常系: リージョン未指定",
			region:  " ",
			setup:   func(g *genmocks.Generator) {},
			wantErr: model.ErrInvalidInput,
		},
		{
			name:   "異常系: 調査の生成に失敗",
			region: "india",
			setup: func(g *genmocks.Generator) {
				g.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("unavailable")).Once()
			},
			wantErr: model.ErrGenerationFailed,
		},
		{
			name:   "異常系: 整形結果がJSONでない",
			region: "india",
			setup: func(g *genmocks.Generator) {
				g.On("Generate", mock.Anything, mock.MatchedBy(isResearchPrompt)).Return("facts", nil).Once()
				g.On("Generate", mock.Anything, mock.Anything).Return("not json", nil).Once()
			},
			wantErr: model.ErrGenerationFailed,
		},
		{
			name:   "異常系: 使えるカードが無い",
			region: "india",
			setup: func(g *genmocks.Generator) {
				g.On("Generate", mock.Anything, mock.MatchedBy(isResearchPrompt)).Return("facts", nil).Once()
				g.On("Generate", mock.Anything, mock.Anything).Return(`[{"title":" ","contentLine":""}]`, nil).Once()
			},
			wantErr: model.ErrGenerationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			gen := genmocks.NewGenerator(t)
			tt.setup(gen)
			svc := NewNewsService(db, repository.NewGormNewsRepository(), gen, 10, nil)

			_, err := svc.GenerateAndIndex(ctx, tt.region)
			assert.ErrorIs(t, err, tt.wantErr)

			var n int64
			require.NoError(t, db.Model(&model.NewsItem{}).Count(&n).Error)
			assert.Zero(t, n)
		})
	}
}

func TestNewsService_List_InvalidDate(t *testing.T) {
	svc := NewNewsService(setupTestDB(t), repository.NewGormNewsRepository(), genmocks.NewGenerator(t), 10, nil)
	_, err := svc.List(context.Background(), "10/05/2024")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}
