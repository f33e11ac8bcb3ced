package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ContentKind identifies what a cached payload contains.
type ContentKind string

const (
	KindRecap        ContentKind = "recap"
	KindCategoryQuiz ContentKind = "category_quiz"
	KindDailyQuiz    ContentKind = "daily_quiz"
)

func (k ContentKind) Valid() bool {
	switch k {
	case KindRecap, KindCategoryQuiz, KindDailyQuiz:
		return true
	}
	return false
}

// NormalizeScope is the stored form of a scope: trimmed and lower-cased.
func NormalizeScope(scope string) string {
	return strings.ToLower(strings.TrimSpace(scope))
}

// CacheKey addresses exactly one CacheEntry.
type CacheKey struct {
	Kind  ContentKind
	Date  Day
	Scope string
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Kind, k.Date, NormalizeScope(k.Scope))
}

func (k CacheKey) Validate() error {
	if !k.Kind.Valid() {
		return fmt.Errorf("%w: unknown content kind %q", ErrInvalidInput, k.Kind)
	}
	if _, err := ParseDay(string(k.Date)); err != nil {
		return err
	}
	return nil
}

// CacheEntry はLLMが生成したコンテンツのキャッシュ。一度書かれたら更新・削除しない
type CacheEntry struct {
	Key       string      `gorm:"column:cache_key;type:varchar(255);primaryKey" json:"key"`
	Kind      ContentKind `gorm:"type:varchar(32);not null;index:idx_cache_kind_scope_date,priority:1" json:"kind"`
	Scope     string      `gorm:"type:varchar(64);not null;index:idx_cache_kind_scope_date,priority:2" json:"scope"`
	Date      Day         `gorm:"type:varchar(10);not null;index:idx_cache_kind_scope_date,priority:3" json:"date"`
	Content   string      `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

func (CacheEntry) TableName() string {
	return "content_cache"
}

// NewCacheEntry builds the entry stored under key.
func NewCacheEntry(key CacheKey, content string) *CacheEntry {
	return &CacheEntry{
		Key:     key.String(),
		Kind:    key.Kind,
		Scope:   NormalizeScope(key.Scope),
		Date:    key.Date,
		Content: content,
	}
}

// DecodePayloadItems parses a cached payload that must be a non-empty JSON array.
func DecodePayloadItems(content string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("decode payload: empty array")
	}
	return items, nil
}

// ValidatePayload reports whether content is a usable generated payload:
// longer than 10 bytes and a non-empty JSON array, the shape every reader
// decodes with DecodePayloadItems.
func ValidatePayload(content string) error {
	content = strings.TrimSpace(content)
	if len(content) <= 10 {
		return fmt.Errorf("payload too short (%d bytes)", len(content))
	}
	if _, err := DecodePayloadItems(content); err != nil {
		return err
	}
	return nil
}

// NewsItem is one indexed news card. Items are the source material for
// every generated recap and quiz.
type NewsItem struct {
	ID            string         `gorm:"type:varchar(64);primaryKey" json:"id"`
	Title         string         `gorm:"type:text;not null" json:"title"`
	Description   string         `gorm:"type:text" json:"description"`
	ImageURL      string         `gorm:"type:text" json:"image_url"`
	Time          string         `gorm:"type:varchar(64)" json:"time"`
	Topic         string         `gorm:"type:varchar(64);index" json:"topic"`
	ContentLine   string         `gorm:"type:text" json:"content_line"`
	Keywords      datatypes.JSON `json:"keywords"`
	Region        string         `gorm:"type:varchar(64);index" json:"region"`
	PublishedDate Day            `gorm:"type:varchar(10);not null;index" json:"published_date"`
	Timestamp     int64          `gorm:"column:published_ts;not null;index" json:"timestamp"`
}

func (NewsItem) TableName() string {
	return "news_items"
}

// KeywordList decodes Keywords, returning nil on malformed data.
func (n *NewsItem) KeywordList() []string {
	if len(n.Keywords) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(n.Keywords, &out); err != nil {
		return nil
	}
	return out
}

// RecapItem is one line of a daily recap payload.
type RecapItem struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	TimeAgo  string `json:"timeAgo"`
}

// QuizQuestion is one question of a quiz payload.
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

// DailyRecap is a decoded recap entry as served to clients.
type DailyRecap struct {
	Date  Day               `json:"date"`
	Scope string            `json:"scope,omitempty"`
	Items []json.RawMessage `json:"items"`
}
