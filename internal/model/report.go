package model

import (
	"time"

	"github.com/google/uuid"
)

// Report is a user flag on a piece of generated content.
type Report struct {
	ReportID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"report_id"`
	UserID       string    `gorm:"type:varchar(128);not null;index" json:"user_id"`
	ContentID    string    `gorm:"type:varchar(255);not null;index" json:"content_id"`
	ReportedText string    `gorm:"type:text" json:"reported_text"`
	Reason       string    `gorm:"type:text;not null" json:"reason"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Report) TableName() string {
	return "reports"
}
