package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
)

type dashboardService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewDashboardService(repo repositories.Repository, logger *slog.Logger) DashboardService {
	return &dashboardService{repo: repo, logger: logger}
}

// Overview aggregates the tenant's headline numbers. Revenue is only
// included for admin-level principals; regular users see activity
// counters without the billing figures.
func (s *dashboardService) Overview(ctx context.Context, principal models.Principal) (*DashboardOverviewResponse, error) {
	if !models.RoleAtLeast(principal.Role, models.RoleUser) {
		return nil, NewPermissionError(principal.ID, 0, "dashboard", "read", "insufficient role")
	}
	tenantID := principal.Tenant()

	overview, err := s.repo.Dashboard().TenantOverview(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant overview: %w", err)
	}

	avg, passRate, err := s.repo.Dashboard().AttemptAverages(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt averages: %w", err)
	}

	resp := &DashboardOverviewResponse{
		TenantOverview: overview,
		AverageScore:   avg,
		PassRate:       passRate,
	}

	if models.RoleAtLeast(principal.Role, models.RoleAdmin) {
		revenue, err := s.repo.Billing().Revenue(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to load revenue summary: %w", err)
		}
		resp.Revenue = revenue
	}

	return resp, nil
}
