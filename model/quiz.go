package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuizStatus represents the lifecycle of a quiz's generation and grading
type QuizStatus string

const (
	QuizStatusNotStarted QuizStatus = "not_started"
	QuizStatusInProgress QuizStatus = "in_progress"
	QuizStatusCompleted  QuizStatus = "completed"
	QuizStatusGraded     QuizStatus = "graded"
	QuizStatusFailed     QuizStatus = "failed"
)

// Quiz represents a generated quiz over a lecture
type Quiz struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	LectureID uint       `gorm:"not null;index" json:"lecture_id"`
	UserID    string     `gorm:"type:varchar(64);index" json:"user_id"`
	Title     string     `gorm:"type:varchar(255)" json:"title"`
	Status    QuizStatus `gorm:"type:varchar(20);default:'not_started'" json:"status"`

	ContentsGeneratedAt *time.Time `json:"contents_generated_at,omitempty"`

	// Relationships
	Lecture Lecture    `gorm:"foreignKey:LectureID;constraint:OnDelete:CASCADE" json:"lecture,omitempty"`
	Items   []QuizItem `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// TableName specifies the table name for Quiz
func (Quiz) TableName() string {
	return "quizzes"
}

// QuizItem represents a single question in a quiz. The question variants
// (true/false, multiple choice, short answer, essay) share one row shape with
// a QuestionType discriminator; variant-specific fields are nullable.
type QuizItem struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	QuizID       uint    `gorm:"not null;index" json:"quiz_id"`
	QuestionType string  `gorm:"type:varchar(20);not null" json:"question_type"`
	Question     string  `gorm:"type:text;not null" json:"question"`
	Explanation  string  `gorm:"type:text" json:"explanation"`
	Points       float64 `gorm:"default:0" json:"points"`
	DisplayOrder int     `gorm:"default:0" json:"display_order"`

	// true_or_false
	IsTrueAnswer *bool `json:"is_true_answer,omitempty"`
	// multiple_choice
	Choices       datatypes.JSON `gorm:"type:jsonb" json:"choices,omitempty"`
	AnswerIndices datatypes.JSON `gorm:"type:jsonb" json:"answer_indices,omitempty"`
	// short_answer / essay
	TextAnswer string `gorm:"type:text" json:"text_answer,omitempty"`

	// Relationships
	Quiz Quiz `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for QuizItem
func (QuizItem) TableName() string {
	return "quiz_items"
}

// QuizResponse represents a user's answer to a quiz item, including essay
// grading output once the grading job has run.
type QuizResponse struct {
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
	Question QuizItem `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for QuizResponse
func (QuizResponse) TableName() string {
	return "quiz_responses"
}

// QuizResult represents a user's aggregate score for a quiz
type QuizResult struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	QuizID uint    `gorm:"not null;index" json:"quiz_id"`
	UserID string  `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Score  float64 `gorm:"default:0" json:"score"`

	// Relationships
	Quiz Quiz `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for QuizResult
func (QuizResult) TableName() string {
	return "quiz_results"
}
