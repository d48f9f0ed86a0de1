package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evalforge/assessment-platform/internal/events"
	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
)

// sweepBatchSize bounds how many jobs one sweep pass claims.
const sweepBatchSize = 50

const (
	JobTypeBillingOverdue = "billing.mark_overdue"
	JobTypeExpireAttempts = "attempts.expire"
)

// JobExecutor runs one claimed job to completion.
type JobExecutor func(ctx context.Context, job *models.ScheduledJob) error

type jobService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	publisher events.EventPublisher
	executors map[string]JobExecutor
	now       func() time.Time
}

func NewJobService(repo repositories.Repository, logger *slog.Logger, publisher events.EventPublisher) JobService {
	s := &jobService{
		repo:      repo,
		logger:    logger,
		publisher: publisher,
		executors: make(map[string]JobExecutor),
		now:       time.Now,
	}
	s.executors[JobTypeBillingOverdue] = s.markOverdueInvoices
	s.executors[JobTypeExpireAttempts] = s.expireStaleAttempts
	return s
}

func (s *jobService) Schedule(ctx context.Context, jobType string, payload map[string]interface{}, runAt time.Time) (*models.ScheduledJob, error) {
	if jobType == "" {
		return nil, NewValidationError("type", "is required", nil)
	}

	job := &models.ScheduledJob{
		Type:        jobType,
		Payload:     jsonField(payload),
		Status:      models.JobPending,
		ScheduledAt: runAt.UTC(),
	}
	if err := s.repo.Job().Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to schedule job: %w", err)
	}

	s.logger.Info("job scheduled", "job_id", job.ID, "type", jobType, "run_at", job.ScheduledAt)
	return job, nil
}

// Sweep claims and executes every due job. Claims are conditional
// writes, so overlapping sweeps split the batch instead of double
// processing. A job failure is recorded on that job and the pass moves
// on; failed jobs stay failed until an operator requeues them.
func (s *jobService) Sweep(ctx context.Context) (*SweepResult, error) {
	due, err := s.repo.Job().FetchDue(ctx, s.now().UTC(), sweepBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due jobs: %w", err)
	}

	result := &SweepResult{}
	for _, job := range due {
		claimed, err := s.repo.Job().ClaimIf(ctx, job.ID)
		if err != nil {
			s.logger.Error("failed to claim job", "job_id", job.ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}
		result.Claimed++

		if err := s.execute(ctx, job); err != nil {
			result.Failed++
			s.logger.Error("job failed", "job_id", job.ID, "type", job.Type, "error", err)
			if markErr := s.repo.Job().MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
				s.logger.Error("failed to record job failure", "job_id", job.ID, "error", markErr)
			}
			continue
		}

		result.Succeeded++
		if err := s.repo.Job().MarkDone(ctx, job.ID); err != nil {
			s.logger.Error("failed to mark job done", "job_id", job.ID, "error", err)
		}
	}

	if result.Claimed > 0 {
		s.logger.Info("sweep finished",
			"claimed", result.Claimed,
			"succeeded", result.Succeeded,
			"failed", result.Failed)
	}
	return result, nil
}

func (s *jobService) execute(ctx context.Context, job *models.ScheduledJob) error {
	exec, ok := s.executors[job.Type]
	if !ok {
		return fmt.Errorf("no executor registered for job type %q", job.Type)
	}
	return exec(ctx, job)
}

// Requeue moves a failed job back to pending. Deliberately manual and
// restricted: automatic retries of a failing job would just fail again.
func (s *jobService) Requeue(ctx context.Context, principal models.Principal, id uint) (*models.ScheduledJob, error) {
	if !principal.IsSuperAdmin() {
		return nil, NewPermissionError(principal.ID, id, "job", "requeue", "only super admins requeue jobs")
	}

	requeued, err := s.repo.Job().RequeueIf(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to requeue job: %w", err)
	}
	if !requeued {
		if _, getErr := s.repo.Job().GetByID(ctx, id); getErr != nil {
			return nil, wrapNotFound(getErr, "job", id)
		}
		return nil, NewConflictError("job", "only failed jobs can be requeued")
	}

	job, err := s.repo.Job().GetByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, "job", id)
	}

	s.logger.Info("job requeued", "job_id", id, "type", job.Type)
	publishAudit(s.logger, s.publisher, events.Event{
		Type:    "job.requeued",
		ActorID: principal.ID,
		Data:    map[string]interface{}{"job_id": id, "type": job.Type},
	})
	return job, nil
}

func (s *jobService) GetByID(ctx context.Context, principal models.Principal, id uint) (*models.ScheduledJob, error) {
	if !principal.IsSuperAdmin() {
		return nil, NewPermissionError(principal.ID, id, "job", "read", "only super admins inspect jobs")
	}
	job, err := s.repo.Job().GetByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, "job", id)
	}
	return job, nil
}

func (s *jobService) markOverdueInvoices(ctx context.Context, _ *models.ScheduledJob) error {
	changed, err := s.repo.Billing().MarkOverdueDue(ctx, s.now().UTC())
	if err != nil {
		return err
	}
	if changed > 0 {
		s.logger.Info("invoices marked overdue", "count", changed)
	}
	return nil
}

func (s *jobService) expireStaleAttempts(ctx context.Context, _ *models.ScheduledJob) error {
	changed, err := s.repo.Attempt().ExpireOverdue(ctx, s.now().UTC())
	if err != nil {
		return err
	}
	if changed > 0 {
		s.logger.Info("stale attempts expired", "count", changed)
	}
	return nil
}
