package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GenerationJobType represents the type of generation job
type GenerationJobType string

const (
	GenerationJobTypeSummarizeLecture GenerationJobType = "summarize_lecture"
	GenerationJobTypeGenerateQuiz     GenerationJobType = "generate_quiz"
	GenerationJobTypeGenerateExam     GenerationJobType = "generate_exam"
	GenerationJobTypeGradeQuizEssay   GenerationJobType = "grade_quiz_essay"
	GenerationJobTypeGradeExamEssay   GenerationJobType = "grade_exam_essay"
	GenerationJobTypeWeaknessAnalysis GenerationJobType = "course_weakness_analysis"
)

// GenerationJobStatus represents the status of a generation job
type GenerationJobStatus string

const (
	GenerationJobStatusNotStarted GenerationJobStatus = "not_started"
	GenerationJobStatusInProgress GenerationJobStatus = "in_progress"
	GenerationJobStatusCompleted  GenerationJobStatus = "completed"
	GenerationJobStatusFailed     GenerationJobStatus = "failed"
)

// GenerationJob is a queued unit of asynchronous generation work. Jobs are
// claimed by the dispatcher with at-least-once semantics; handlers carry
// their own idempotency guards.
type GenerationJob struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Type    GenerationJobType   `gorm:"type:varchar(50);not null;index" json:"type"`
	Payload datatypes.JSON      `gorm:"type:jsonb;not null" json:"payload"`
	Status  GenerationJobStatus `gorm:"type:varchar(20);default:'not_started';index" json:"status"`

	Attempts    int        `gorm:"default:0" json:"attempts"`
	MaxAttempts int        `gorm:"default:3" json:"max_attempts"`
	LastError   string     `gorm:"type:text" json:"last_error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TableName specifies the table name for GenerationJob
func (GenerationJob) TableName() string {
	return "generation_jobs"
}
