package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SummaryStatus represents the status of lecture summarization
type SummaryStatus string

const (
	SummaryStatusNotStarted SummaryStatus = "not_started"
	SummaryStatusInProgress SummaryStatus = "in_progress"
	SummaryStatusCompleted  SummaryStatus = "completed"
	SummaryStatusFailed     SummaryStatus = "failed"
)

// Lecture represents an uploaded lecture material and its generated artifacts
type Lecture struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CourseID     uint   `gorm:"not null;index" json:"course_id"`
	UserID       string `gorm:"type:varchar(64);index" json:"user_id"`
	Title        string `gorm:"type:varchar(255);not null" json:"title"`
	MaterialPath string `gorm:"type:varchar(500)" json:"material_path"` // Object storage key of the source PDF

	// ParsedText holds the page-aligned extraction produced by the upstream parser
	ParsedText datatypes.JSON `gorm:"type:jsonb" json:"parsed_text,omitempty"`

	Summary       datatypes.JSON `gorm:"type:jsonb" json:"summary,omitempty"`
	SummaryStatus SummaryStatus  `gorm:"type:varchar(20);default:'not_started'" json:"summary_status"`

	// Relationships
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}

// TableName specifies the table name for Lecture
func (Lecture) TableName() string {
	return "lectures"
}
