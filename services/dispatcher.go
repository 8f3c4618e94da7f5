package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/studyaid/lecture-jobs/model"
	"github.com/studyaid/lecture-jobs/utils/cache"
	"github.com/studyaid/lecture-jobs/utils/validation"
)

// claimTTL bounds how long a Redis claim mark can shadow a job. Sized above
// the longest expected job so a crashed worker's mark expires before the
// stale-job sweep requeues the row.
const claimTTL = 30 * time.Minute

// DispatcherConfig tunes the polling loop
type DispatcherConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

func (cfg DispatcherConfig) withDefaults() DispatcherConfig {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return cfg
}

// Dispatcher polls the generation_jobs table and routes claimed jobs to
// their handlers. Claims are optimistic row updates backed by a Redis
// idempotency mark; handlers must tolerate at-least-once delivery.
type Dispatcher struct {
	db        *gorm.DB
	cache     *cache.RedisCache
	validator *validation.Validator
	cfg       DispatcherConfig

	summaries *SummaryService
	quizzes   *QuizService
	exams     *ExamService
	grading   *GradingService
	weakness  *WeaknessService
}

func NewDispatcher(db *gorm.DB, redisCache *cache.RedisCache, cfg DispatcherConfig,
	summaries *SummaryService, quizzes *QuizService, exams *ExamService,
	grading *GradingService, weakness *WeaknessService) *Dispatcher {
	return &Dispatcher{
		db:        db,
		cache:     redisCache,
		validator: validation.NewValidator(),
		cfg:       cfg.withDefaults(),
		summaries: summaries,
		quizzes:   quizzes,
		exams:     exams,
		grading:   grading,
		weakness:  weakness,
	}
}

// Run polls until the context is cancelled
func (d *Dispatcher) Run(ctx context.Context) error {
	log.Printf("[DISPATCHER] Starting, polling every %s", d.cfg.PollInterval)
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[DISPATCHER] Stopping: %v", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := d.Poll(ctx); err != nil {
				log.Printf("[DISPATCHER] Poll failed: %v", err)
			}
		}
	}
}

// Poll claims and processes one batch of pending jobs
func (d *Dispatcher) Poll(ctx context.Context) error {
	var candidates []model.GenerationJob
	err := d.db.WithContext(ctx).
		Where("status = ?", model.GenerationJobStatusNotStarted).
		Order("created_at").
		Limit(d.cfg.BatchSize).
		Find(&candidates).Error
	if err != nil {
		return fmt.Errorf("failed to list pending jobs: %w", err)
	}

	for _, job := range candidates {
		claimed, err := d.claim(ctx, &job)
		if err != nil {
			log.Printf("[DISPATCHER] Failed to claim job %d: %v", job.ID, err)
			continue
		}
		if !claimed {
			continue
		}
		d.process(ctx, &job)
	}
	return nil
}

// claim takes ownership of a job. The row update is the authority; the
// Redis mark only short-circuits duplicate claims across workers.
func (d *Dispatcher) claim(ctx context.Context, job *model.GenerationJob) (bool, error) {
	if d.cache != nil {
		ok, err := d.cache.SetNX(ctx, fmt.Sprintf("generation_job:claim:%d", job.ID), "1", claimTTL)
		if err != nil {
			log.Printf("[DISPATCHER] Redis claim mark failed for job %d, relying on row claim: %v", job.ID, err)
		} else if !ok {
			return false, nil
		}
	}

	now := time.Now()
	res := d.db.WithContext(ctx).Model(&model.GenerationJob{}).
		Where("id = ? AND status = ?", job.ID, model.GenerationJobStatusNotStarted).
		Updates(map[string]interface{}{
			"status":     model.GenerationJobStatusInProgress,
			"attempts":   gorm.Expr("attempts + 1"),
			"started_at": &now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	job.Status = model.GenerationJobStatusInProgress
	job.Attempts++
	job.StartedAt = &now
	return true, nil
}

// process runs the job through its handler and records the outcome
func (d *Dispatcher) process(ctx context.Context, job *model.GenerationJob) {
	log.Printf("[DISPATCHER] Processing job %d (%s), attempt %d/%d",
		job.ID, job.Type, job.Attempts, job.MaxAttempts)

	start := time.Now()
	err := d.handle(ctx, job)
	elapsed := time.Since(start)

	if err != nil {
		log.Printf("[DISPATCHER] Job %d (%s) failed after %s: %v", job.ID, job.Type, elapsed, err)
		d.finishFailed(ctx, job, err)
		return
	}

	now := time.Now()
	updateErr := d.db.WithContext(ctx).Model(&model.GenerationJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"status":       model.GenerationJobStatusCompleted,
			"completed_at": &now,
			"last_error":   "",
		}).Error
	if updateErr != nil {
		log.Printf("[DISPATCHER] Failed to mark job %d completed: %v", job.ID, updateErr)
		return
	}
	d.releaseClaim(ctx, job.ID)
	log.Printf("[DISPATCHER] Job %d (%s) completed in %s", job.ID, job.Type, elapsed)
}

// finishFailed either requeues the job for another attempt or marks it
// terminally failed once attempts are exhausted.
func (d *Dispatcher) finishFailed(ctx context.Context, job *model.GenerationJob, jobErr error) {
	status := model.GenerationJobStatusNotStarted
	if job.Attempts >= job.MaxAttempts {
		status = model.GenerationJobStatusFailed
	}

	err := d.db.WithContext(ctx).Model(&model.GenerationJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"status":     status,
			"last_error": jobErr.Error(),
		}).Error
	if err != nil {
		log.Printf("[DISPATCHER] Failed to record failure for job %d: %v", job.ID, err)
		return
	}
	d.releaseClaim(ctx, job.ID)

	if status == model.GenerationJobStatusFailed {
		log.Printf("[DISPATCHER] Job %d (%s) permanently failed after %d attempts", job.ID, job.Type, job.Attempts)
	} else {
		log.Printf("[DISPATCHER] Job %d (%s) requeued, attempt %d/%d", job.ID, job.Type, job.Attempts, job.MaxAttempts)
	}
}

func (d *Dispatcher) releaseClaim(ctx context.Context, jobID uint) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Delete(ctx, fmt.Sprintf("generation_job:claim:%d", jobID)); err != nil {
		log.Printf("[DISPATCHER] Failed to release claim mark for job %d: %v", jobID, err)
	}
}

// RunJob executes a single job synchronously without touching the queue.
// The runjob CLI uses it to replay or debug individual jobs.
func (d *Dispatcher) RunJob(ctx context.Context, jobType model.GenerationJobType, payload []byte) error {
	job := model.GenerationJob{
		Type:    jobType,
		Payload: payload,
	}
	return d.handle(ctx, &job)
}

// handle decodes and validates the payload, then routes to the service
func (d *Dispatcher) handle(ctx context.Context, job *model.GenerationJob) error {
	switch job.Type {
	case model.GenerationJobTypeSummarizeLecture:
		var payload SummarizeLecturePayload
		if err := d.decodePayload(job, &payload); err != nil {
			return err
		}
		return d.summaries.SummarizeLecture(ctx, payload)

	case model.GenerationJobTypeGenerateQuiz:
		var payload GenerateQuizPayload
		if err := d.decodePayload(job, &payload); err != nil {
			return err
		}
		return d.quizzes.GenerateQuiz(ctx, payload)

	case model.GenerationJobTypeGenerateExam:
		var payload GenerateExamPayload
		if err := d.decodePayload(job, &payload); err != nil {
			return err
		}
		return d.exams.GenerateExam(ctx, payload)

	case model.GenerationJobTypeGradeQuizEssay:
		var payload GradeQuizEssayPayload
		if err := d.decodePayload(job, &payload); err != nil {
			return err
		}
		return d.grading.GradeQuizEssays(ctx, payload)

	case model.GenerationJobTypeGradeExamEssay:
		var payload GradeExamEssayPayload
		if err := d.decodePayload(job, &payload); err != nil {
			return err
		}
		return d.grading.GradeExamEssays(ctx, payload)

	case model.GenerationJobTypeWeaknessAnalysis:
		var payload WeaknessAnalysisPayload
		if err := d.decodePayload(job, &payload); err != nil {
			return err
		}
		return d.weakness.AnalyzeCourseWeakness(ctx, payload)

	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
}

func (d *Dispatcher) decodePayload(job *model.GenerationJob, target interface{}) error {
	if err := json.Unmarshal(job.Payload, target); err != nil {
		return fmt.Errorf("malformed payload for job %d: %w", job.ID, err)
	}
	if err := d.validator.ValidateStruct(target); err != nil {
		return fmt.Errorf("invalid payload for job %d: %v", job.ID, validation.FormatValidationErrors(err))
	}
	return nil
}

// EnqueueJob inserts a new generation job
func EnqueueJob(db *gorm.DB, jobType model.GenerationJobType, payload interface{}) (*model.GenerationJob, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize job payload: %w", err)
	}

	job := model.GenerationJob{
		Type:        jobType,
		Payload:     payloadJSON,
		Status:      model.GenerationJobStatusNotStarted,
		MaxAttempts: 3,
	}
	if err := db.Create(&job).Error; err != nil {
		return nil, fmt.Errorf("failed to enqueue %s job: %w", jobType, err)
	}
	log.Printf("[DISPATCHER] Enqueued job %d (%s)", job.ID, job.Type)
	return &job, nil
}
