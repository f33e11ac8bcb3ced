// internal/model/progress.go
package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// CooldownMap は最後に報酬を受け取ったカテゴリごとの日付
type CooldownMap map[Category]Day

// UserProgress はユーザーの進捗（XP・リーグ・ストリーク）を表します
type UserProgress struct {
	UserID         string         `gorm:"type:varchar(128);primaryKey" json:"user_id"`
	DisplayName    string         `gorm:"type:varchar(255);not null" json:"display_name"`
	XP             int            `gorm:"not null;index" json:"xp"`
	League         League         `gorm:"type:varchar(16);not null;index" json:"league"`
	Streak         int            `gorm:"not null" json:"streak"`
	LastActiveDate Day            `gorm:"type:varchar(10);not null" json:"last_active_date"`
	LastPlayed     datatypes.JSON `json:"last_played"`
	// Version は楽観ロック用。書き込みのたびに+1される
	Version   int64     `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}

// Cooldowns decodes LastPlayed. The returned map is never nil and is safe to
// modify; call SetCooldowns to persist changes.
func (p *UserProgress) Cooldowns() (CooldownMap, error) {
	m := CooldownMap{}
	if len(p.LastPlayed) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(p.LastPlayed, &m); err != nil {
		return nil, fmt.Errorf("decode last_played for %s: %w", p.UserID, err)
	}
	if m == nil {
		m = CooldownMap{}
	}
	return m, nil
}

func (p *UserProgress) SetCooldowns(m CooldownMap) error {
	if m == nil {
		m = CooldownMap{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode last_played for %s: %w", p.UserID, err)
	}
	p.LastPlayed = datatypes.JSON(b)
	return nil
}

// NewUserProgress returns a fresh Bronze record active on today.
func NewUserProgress(userID, displayName string, today Day) *UserProgress {
	if displayName == "" {
		displayName = userID
	}
	return &UserProgress{
		UserID:         userID,
		DisplayName:    displayName,
		XP:             0,
		League:         LeagueBronze,
		Streak:         1,
		LastActiveDate: today,
		LastPlayed:     datatypes.JSON([]byte(`{}`)),
		Version:        1,
	}
}

// Bookmark is a saved news card snapshot.
type Bookmark struct {
	UserID      string    `gorm:"type:varchar(128);primaryKey" json:"user_id"`
	ContentID   string    `gorm:"type:varchar(128);primaryKey" json:"content_id"`
	Title       string    `gorm:"type:text" json:"title"`
	Topic       string    `gorm:"type:varchar(64)" json:"topic"`
	Description string    `gorm:"type:text" json:"description"`
	URL         string    `gorm:"type:text" json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Bookmark) TableName() string {
	return "bookmarks"
}

// PointsResult is returned by a successful addPoints.
type PointsResult struct {
	XP     int    `json:"xp"`
	League League `json:"league"`
	Streak int    `json:"streak"`
}

// UserProfile is a progress record with its current rank.
type UserProfile struct {
	Progress *UserProgress `json:"progress"`
	Rank     int64         `json:"rank"`
}

// LeaderboardEntry は1行分のランキング
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	XP          int    `json:"xp"`
	League      League `json:"league"`
}

// SeasonResult reports how many users each promotion phase moved.
type SeasonResult struct {
	PromotedToGold   int `json:"promoted_to_gold"`
	PromotedToSilver int `json:"promoted_to_silver"`
}
