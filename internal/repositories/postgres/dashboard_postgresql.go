package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/evalforge/assessment-platform/internal/cache"
	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
)

type dashboardPostgres struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

// TenantOverview collects the per-tenant counters shown on the dashboard.
// Each count is an independent read-only query; there is no ordering
// requirement between them.
func (d *dashboardPostgres) TenantOverview(ctx context.Context, tenantID string) (*repositories.TenantOverview, error) {
	cacheKey := fmt.Sprintf("overview:%s", tenantID)
	var overview repositories.TenantOverview

	err := d.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &overview, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var result repositories.TenantOverview

		counts := []struct {
			dest  *int64
			query *gorm.DB
		}{
			{&result.QuestionCount, d.db.WithContext(ctx).Model(&models.Question{}).Where("tenant_id = ? AND is_active = ?", tenantID, true)},
			{&result.TestCount, d.db.WithContext(ctx).Model(&models.Test{}).Where("tenant_id = ?", tenantID)},
			{&result.PublishedTests, d.db.WithContext(ctx).Model(&models.Test{}).Where("tenant_id = ? AND status = ?", tenantID, models.TestStatusPublished)},
			{&result.AttemptCount, d.db.WithContext(ctx).Model(&models.TestAttempt{}).Where("tenant_id = ?", tenantID)},
			{&result.CandidateCount, d.db.WithContext(ctx).Model(&models.User{}).Where("tenant_id = ? AND role = ?", tenantID, models.RoleCandidate)},
			{&result.PendingInvoices, d.db.WithContext(ctx).Model(&models.BillingRecord{}).Where("tenant_id = ? AND status IN ?", tenantID, []models.BillingStatus{models.BillingPending, models.BillingOverdue})},
		}
		for _, c := range counts {
			if err := c.query.Count(c.dest).Error; err != nil {
				return nil, fmt.Errorf("failed to aggregate tenant overview: %w", err)
			}
		}
		return &result, nil
	})
	if err != nil {
		return nil, err
	}
	return &overview, nil
}

// AttemptAverages returns the average completed-attempt percentage and the
// pass rate for a tenant.
func (d *dashboardPostgres) AttemptAverages(ctx context.Context, tenantID string) (float64, float64, error) {
	type agg struct {
		AvgPercentage *float64
		Completed     int64
		Passed        int64
	}
	var result agg
	if err := d.db.WithContext(ctx).
		Model(&models.TestAttempt{}).
		Select("AVG(percentage) AS avg_percentage, COUNT(*) AS completed, COUNT(*) FILTER (WHERE passed) AS passed").
		Where("tenant_id = ? AND status = ?", tenantID, models.AttemptCompleted).
		Scan(&result).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate attempt averages: %w", err)
	}

	avg := 0.0
	if result.AvgPercentage != nil {
		avg = *result.AvgPercentage
	}
	passRate := 0.0
	if result.Completed > 0 {
		passRate = float64(result.Passed) / float64(result.Completed) * 100
	}
	return avg, passRate, nil
}
