package job

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/studyaid/lecture-jobs/model"
	"github.com/studyaid/lecture-jobs/services"
	"github.com/studyaid/lecture-jobs/utils/response"
	"github.com/studyaid/lecture-jobs/utils/validation"
	"gorm.io/gorm"
)

// JobHandler enqueues generation jobs and reports their status
type JobHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewJobHandler creates a new job handler
func NewJobHandler(db *gorm.DB) *JobHandler {
	return &JobHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// enqueue parses the request body into the payload, validates it and
// inserts the job row. The payload struct carries the validate tags.
func (h *JobHandler) enqueue(c *fiber.Ctx, jobType model.GenerationJobType, payload interface{}) error {
	if err := c.BodyParser(payload); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(payload); err != nil {
		fieldErrors := validation.FormatValidationErrors(err)
		return response.ErrorWithDetails(c, fiber.StatusUnprocessableEntity,
			"Validation failed", "VALIDATION_ERROR", fmt.Sprintf("%v", fieldErrors))
	}

	job, err := services.EnqueueJob(h.db, jobType, payload)
	if err != nil {
		return response.InternalServerError(c, "Failed to enqueue job")
	}

	return response.Accepted(c, "Job queued", fiber.Map{
		"job_id": job.ID,
		"type":   job.Type,
		"status": job.Status,
	})
}

// EnqueueSummarizeLecture handles POST /api/v1/jobs/summarize-lecture
func (h *JobHandler) EnqueueSummarizeLecture(c *fiber.Ctx) error {
	var payload services.SummarizeLecturePayload
	return h.enqueue(c, model.GenerationJobTypeSummarizeLecture, &payload)
}

// EnqueueGenerateQuiz handles POST /api/v1/jobs/generate-quiz
func (h *JobHandler) EnqueueGenerateQuiz(c *fiber.Ctx) error {
	var payload services.GenerateQuizPayload
	return h.enqueue(c, model.GenerationJobTypeGenerateQuiz, &payload)
}

// EnqueueGenerateExam handles POST /api/v1/jobs/generate-exam
func (h *JobHandler) EnqueueGenerateExam(c *fiber.Ctx) error {
	var payload services.GenerateExamPayload
	return h.enqueue(c, model.GenerationJobTypeGenerateExam, &payload)
}

// EnqueueGradeQuizEssay handles POST /api/v1/jobs/grade-quiz-essay
func (h *JobHandler) EnqueueGradeQuizEssay(c *fiber.Ctx) error {
	var payload services.GradeQuizEssayPayload
	return h.enqueue(c, model.GenerationJobTypeGradeQuizEssay, &payload)
}

// EnqueueGradeExamEssay handles POST /api/v1/jobs/grade-exam-essay
func (h *JobHandler) EnqueueGradeExamEssay(c *fiber.Ctx) error {
	var payload services.GradeExamEssayPayload
	return h.enqueue(c, model.GenerationJobTypeGradeExamEssay, &payload)
}

// EnqueueWeaknessAnalysis handles POST /api/v1/jobs/course-weakness-analysis
func (h *JobHandler) EnqueueWeaknessAnalysis(c *fiber.Ctx) error {
	var payload services.WeaknessAnalysisPayload
	return h.enqueue(c, model.GenerationJobTypeWeaknessAnalysis, &payload)
}

// GetJob handles GET /api/v1/jobs/:id
func (h *JobHandler) GetJob(c *fiber.Ctx) error {
	id := c.Params("id")

	var j model.GenerationJob
	if err := h.db.First(&j, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Job not found")
		}
		return response.InternalServerError(c, "Failed to fetch job")
	}

	return response.Success(c, fiber.Map{
		"job_id":       j.ID,
		"type":         j.Type,
		"status":       j.Status,
		"attempts":     j.Attempts,
		"max_attempts": j.MaxAttempts,
		"last_error":   j.LastError,
		"created_at":   j.CreatedAt,
		"started_at":   j.StartedAt,
		"completed_at": j.CompletedAt,
	})
}

// ListJobs handles GET /api/v1/jobs with an optional status filter
func (h *JobHandler) ListJobs(c *fiber.Ctx) error {
	status := c.Query("status", "")

	query := h.db.Model(&model.GenerationJob{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var jobs []model.GenerationJob
	if err := query.Order("created_at DESC").Limit(50).Find(&jobs).Error; err != nil {
		return response.InternalServerError(c, "Failed to list jobs")
	}

	return response.Success(c, jobs)
}
