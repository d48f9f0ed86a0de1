package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
)

type jobPostgres struct {
	db *gorm.DB
}

func (j *jobPostgres) Create(ctx context.Context, job *models.ScheduledJob) error {
	if err := j.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create scheduled job: %w", err)
	}
	return nil
}

func (j *jobPostgres) GetByID(ctx context.Context, id uint) (*models.ScheduledJob, error) {
	var job models.ScheduledJob
	if err := j.db.WithContext(ctx).First(&job, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("scheduled job %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get scheduled job: %w", err)
	}
	return &job, nil
}

func (j *jobPostgres) FetchDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledJob, error) {
	var jobs []*models.ScheduledJob
	if err := j.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", models.JobPending, now).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch due jobs: %w", err)
	}
	return jobs, nil
}

// ClaimIf moves pending -> processing conditionally. Overlapping sweeps
// race on the status column; only one claims each job.
func (j *jobPostgres) ClaimIf(ctx context.Context, id uint) (bool, error) {
	res := j.db.WithContext(ctx).
		Model(&models.ScheduledJob{}).
		Where("id = ? AND status = ?", id, models.JobPending).
		Updates(map[string]interface{}{
			"status":   models.JobProcessing,
			"attempts": gorm.Expr("attempts + 1"),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim job: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (j *jobPostgres) MarkDone(ctx context.Context, id uint) error {
	if err := j.db.WithContext(ctx).
		Model(&models.ScheduledJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.JobDone,
			"last_error": nil,
		}).Error; err != nil {
		return fmt.Errorf("failed to mark job done: %w", err)
	}
	return nil
}

func (j *jobPostgres) MarkFailed(ctx context.Context, id uint, jobErr string) error {
	if err := j.db.WithContext(ctx).
		Model(&models.ScheduledJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.JobFailed,
			"last_error": jobErr,
		}).Error; err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return nil
}

func (j *jobPostgres) RequeueIf(ctx context.Context, id uint) (bool, error) {
	res := j.db.WithContext(ctx).
		Model(&models.ScheduledJob{}).
		Where("id = ? AND status = ?", id, models.JobFailed).
		Update("status", models.JobPending)
	if res.Error != nil {
		return false, fmt.Errorf("failed to requeue job: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
