package cron

import (
	"fmt"
	"time"

	"github.com/studyaid/lecture-jobs/model"
)

// RequeueStaleJobs returns generation jobs stuck in_progress to the queue.
// A job older than StaleJobTimeout is assumed to belong to a dead worker;
// jobs out of attempts go straight to failed.
func (m *CronManager) RequeueStaleJobs() {
	jobName := "requeue_stale_jobs"
	cutoff := time.Now().Add(-m.StaleJobTimeout)

	res := m.db.Model(&model.GenerationJob{}).
		Where("status = ? AND started_at < ? AND attempts < max_attempts",
			model.GenerationJobStatusInProgress, cutoff).
		Updates(map[string]interface{}{
			"status":     model.GenerationJobStatusNotStarted,
			"last_error": "requeued: worker timed out",
		})
	if res.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to requeue stale jobs: %w", res.Error))
		return
	}
	requeued := res.RowsAffected

	res = m.db.Model(&model.GenerationJob{}).
		Where("status = ? AND started_at < ? AND attempts >= max_attempts",
			model.GenerationJobStatusInProgress, cutoff).
		Updates(map[string]interface{}{
			"status":     model.GenerationJobStatusFailed,
			"last_error": "failed: worker timed out on final attempt",
		})
	if res.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to fail exhausted jobs: %w", res.Error))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("requeued %d, failed %d stale jobs", requeued, res.RowsAffected))
}

// ReportQueueDepth records how many jobs are waiting or running
func (m *CronManager) ReportQueueDepth() {
	jobName := "report_queue_depth"

	var pending, running int64
	if err := m.db.Model(&model.GenerationJob{}).
		Where("status = ?", model.GenerationJobStatusNotStarted).
		Count(&pending).Error; err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to count pending jobs: %w", err))
		return
	}
	if err := m.db.Model(&model.GenerationJob{}).
		Where("status = ?", model.GenerationJobStatusInProgress).
		Count(&running).Error; err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to count running jobs: %w", err))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("%d pending, %d running", pending, running))
}

// CleanupOldData prunes finished generation jobs and cron logs past the
// retention window.
func (m *CronManager) CleanupOldData() {
	jobName := "cleanup_old_data"
	cutoff := time.Now().AddDate(0, 0, -m.RetentionDays)

	res := m.db.Unscoped().
		Where("status IN ? AND updated_at < ?",
			[]string{string(model.GenerationJobStatusCompleted), string(model.GenerationJobStatusFailed)},
			cutoff).
		Delete(&model.GenerationJob{})
	if res.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to prune generation jobs: %w", res.Error))
		return
	}
	prunedJobs := res.RowsAffected

	res = m.db.Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&model.CronJobLog{})
	if res.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to prune cron logs: %w", res.Error))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("pruned %d jobs, %d cron logs", prunedJobs, res.RowsAffected))
}
