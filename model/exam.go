package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ExamStatus represents the lifecycle of an exam's generation and grading
type ExamStatus string

const (
	ExamStatusNotStarted ExamStatus = "not_started"
	ExamStatusInProgress ExamStatus = "in_progress"
	ExamStatusCompleted  ExamStatus = "completed"
	ExamStatusGraded     ExamStatus = "graded"
	ExamStatusFailed     ExamStatus = "failed"
)

// Exam represents a generated mock exam over a lecture
type Exam struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	LectureID uint       `gorm:"not null;index" json:"lecture_id"`
	UserID    string     `gorm:"type:varchar(64);index" json:"user_id"`
	Title     string     `gorm:"type:varchar(255)" json:"title"`
	Status    ExamStatus `gorm:"type:varchar(20);default:'not_started'" json:"status"`

	ContentsGeneratedAt *time.Time `json:"contents_generated_at,omitempty"`

	// Relationships
	Lecture Lecture    `gorm:"foreignKey:LectureID;constraint:OnDelete:CASCADE" json:"lecture,omitempty"`
	Items   []ExamItem `gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// TableName specifies the table name for Exam
func (Exam) TableName() string {
	return "exams"
}

// ExamItem mirrors QuizItem for exams; exam questions always carry points.
type ExamItem struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ExamID       uint    `gorm:"not null;index" json:"exam_id"`
	QuestionType string  `gorm:"type:varchar(20);not null" json:"question_type"`
	Question     string  `gorm:"type:text;not null" json:"question"`
	Explanation  string  `gorm:"type:text" json:"explanation"`
	Points       float64 `gorm:"default:0" json:"points"`
	DisplayOrder int     `gorm:"default:0" json:"display_order"`

	IsTrueAnswer  *bool          `json:"is_true_answer,omitempty"`
	Choices       datatypes.JSON `gorm:"type:jsonb" json:"choices,omitempty"`
	AnswerIndices datatypes.JSON `gorm:"type:jsonb" json:"answer_indices,omitempty"`
	TextAnswer    string         `gorm:"type:text" json:"text_answer,omitempty"`

	// Relationships
	Exam Exam `gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for ExamItem
func (ExamItem) TableName() string {
	return "exam_items"
}

// ExamResponse represents a user's answer to an exam item
type ExamResponse struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	UserID     string `gorm:"type:varchar(64);not null;index" json:"user_id"`

	SelectedBool    *bool          `json:"selected_bool,omitempty"`
	SelectedIndices datatypes.JSON `gorm:"type:jsonb" json:"selected_indices,omitempty"`
	TextAnswer      string         `gorm:"type:text" json:"text_answer,omitempty"`
	IsCorrect       *bool          `json:"is_correct,omitempty"`

	Score                 *float64       `json:"score,omitempty"`
	EssayCriteriaAnalysis datatypes.JSON `gorm:"type:jsonb" json:"essay_criteria_analysis,omitempty"`

	// Relationships
	Question ExamItem `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for ExamResponse
func (ExamResponse) TableName() string {
	return "exam_responses"
}

// ExamResult represents a user's aggregate score for an exam
type ExamResult struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ExamID uint    `gorm:"not null;index" json:"exam_id"`
	UserID string  `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Score  float64 `gorm:"default:0" json:"score"`

	// Relationships
	Exam Exam `gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for ExamResult
func (ExamResult) TableName() string {
	return "exam_results"
}
