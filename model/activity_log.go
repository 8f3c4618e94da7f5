package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CourseActivityLog records user-visible activity on a course (summary
// generated, quiz graded, analysis updated). Non-critical: writers log and
// continue on failure.
type CourseActivityLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	CourseID     uint           `gorm:"not null;index" json:"course_id"`
	UserID       string         `gorm:"type:varchar(64);index" json:"user_id"`
	ActivityType string         `gorm:"type:varchar(50);not null" json:"activity_type"` // create, update, delete
	ContentsType string         `gorm:"type:varchar(50);not null" json:"contents_type"` // lecture, quiz, exam, course
	Details      datatypes.JSON `gorm:"type:jsonb" json:"activity_details,omitempty"`
}

// TableName specifies the table name for CourseActivityLog
func (CourseActivityLog) TableName() string {
	return "course_activity_logs"
}

// BeforeCreate assigns a fresh UUID when none is set
func (l *CourseActivityLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
