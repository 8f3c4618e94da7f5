package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Course represents a course a user is enrolled in
type Course struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID      string `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	// WeaknessAnalysis accumulates per-user weakness/suggestion text across
	// graded quizzes and exams. Mutated by merge-append only.
	WeaknessAnalysis datatypes.JSON `gorm:"type:jsonb" json:"course_weakness_analysis,omitempty"`

	// Relationships
	Lectures []Lecture `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"lectures,omitempty"`
}

// TableName specifies the table name for Course
func (Course) TableName() string {
	return "courses"
}
