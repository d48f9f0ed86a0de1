package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/evalforge/assessment-platform/internal/authz"
	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
)

var attemptSortable = map[string]bool{
	"created_at":   true,
	"submitted_at": true,
	"percentage":   true,
	"status":       true,
}

type attemptPostgres struct {
	db *gorm.DB
}

func (a *attemptPostgres) Create(ctx context.Context, attempt *models.TestAttempt) error {
	if err := a.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

func (a *attemptPostgres) GetByID(ctx context.Context, id uint) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	if err := a.db.WithContext(ctx).Preload("Test").First(&attempt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attempt %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return &attempt, nil
}

func (a *attemptPostgres) CountForUser(ctx context.Context, testID uint, userID string) (int64, error) {
	var count int64
	if err := a.db.WithContext(ctx).
		Model(&models.TestAttempt{}).
		Where("test_id = ? AND user_id = ?", testID, userID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}

// FinalizeIf writes the result while the attempt is still in progress. The
// conditional on status serializes concurrent double-submissions: the loser
// matches no row.
func (a *attemptPostgres) FinalizeIf(ctx context.Context, attempt *models.TestAttempt) (bool, error) {
	res := a.db.WithContext(ctx).
		Model(&models.TestAttempt{}).
		Where("id = ? AND status = ?", attempt.ID, models.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":          attempt.Status,
			"answers":         attempt.Answers,
			"correct_count":   attempt.CorrectCount,
			"total_questions": attempt.TotalQuestions,
			"earned_points":   attempt.EarnedPoints,
			"total_points":    attempt.TotalPoints,
			"percentage":      attempt.Percentage,
			"passed":          attempt.Passed,
			"submitted_at":    attempt.SubmittedAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to finalize attempt: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ExpireOverdue closes abandoned attempts. The deadline is the start
// time plus the owning test's duration plus the submission grace
// window, so the sweep never expires an attempt that Submit would
// still accept.
func (a *attemptPostgres) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-models.AttemptSubmitGrace)
	res := a.db.WithContext(ctx).Exec(`
		UPDATE test_attempts
		SET status = ?, updated_at = ?
		FROM tests
		WHERE test_attempts.test_id = tests.id
		  AND test_attempts.status = ?
		  AND test_attempts.started_at + tests.duration_minutes * INTERVAL '1 minute' < ?`,
		models.AttemptExpired, now, models.AttemptInProgress, cutoff)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire overdue attempts: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (a *attemptPostgres) List(ctx context.Context, principal models.Principal, filters repositories.AttemptFilters) ([]*models.TestAttempt, int64, error) {
	params := filters.List.Normalize(10, attemptSortable)

	// Attempts are never public: scope strictly to the principal's tenant,
	// and candidates only ever see their own rows.
	base := a.db.WithContext(ctx).
		Model(&models.TestAttempt{}).
		Scopes(authz.TenantOnlyScope(principal))
	if principal.Role == models.RoleCandidate {
		base = base.Where("user_id = ?", principal.ID)
	}

	if filters.Status != nil {
		base = base.Where("status = ?", *filters.Status)
	}
	if filters.TestID != nil {
		base = base.Where("test_id = ?", *filters.TestID)
	}
	if filters.UserID != nil {
		base = base.Where("user_id = ?", *filters.UserID)
	}
	if filters.DateFrom != nil {
		base = base.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		base = base.Where("created_at <= ?", *filters.DateTo)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	var attempts []*models.TestAttempt
	if err := base.Scopes(authz.PageScope(params)).Find(&attempts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, total, nil
}
