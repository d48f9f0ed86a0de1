package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evalforge/assessment-platform/internal/authz"
	"github.com/evalforge/assessment-platform/internal/events"
	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
	"github.com/evalforge/assessment-platform/internal/validator"
)

type billingService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	jobs      JobService
}

func NewBillingService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher, jobs JobService) BillingService {
	return &billingService{
		repo:      repo,
		logger:    logger,
		validator: v,
		publisher: publisher,
		jobs:      jobs,
	}
}

// Create issues an invoice. Only super admins invoice arbitrary tenants;
// everyone else is pinned to their own.
func (s *billingService) Create(ctx context.Context, principal models.Principal, req *CreateBillingRequest) (*models.BillingRecord, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, toValidationError(err)
	}
	if !principal.IsSuperAdmin() && req.TenantID != principal.Tenant() {
		return nil, NewPermissionError(principal.ID, 0, "billing", "create", "cannot invoice another tenant")
	}
	if !models.RoleAtLeast(principal.Role, models.RoleAdmin) {
		return nil, NewPermissionError(principal.ID, 0, "billing", "create", "insufficient role")
	}

	record := &models.BillingRecord{
		TenantID:  req.TenantID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Status:    models.BillingPending,
		DueDate:   req.DueDate,
		Items:     jsonField(req.Items),
		CreatedBy: principal.ID,
	}
	if err := s.repo.Billing().Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create billing record: %w", err)
	}

	// Queue the overdue check for the due date. Best-effort: the periodic
	// sweep catches invoices whose job could not be scheduled.
	if s.jobs != nil {
		if _, err := s.jobs.Schedule(ctx, JobTypeBillingOverdue, map[string]interface{}{"billing_id": record.ID}, req.DueDate); err != nil {
			s.logger.Warn("failed to schedule overdue check", "billing_id", record.ID, "error", err)
		}
	}

	s.logger.Info("billing record created", "billing_id", record.ID, "tenant_id", record.TenantID, "amount", record.Amount)
	publishAudit(s.logger, s.publisher, events.Event{
		Type:     "billing.created",
		TenantID: record.TenantID,
		ActorID:  principal.ID,
		Data:     map[string]interface{}{"billing_id": record.ID, "amount": record.Amount, "currency": record.Currency},
	})
	return record, nil
}

func (s *billingService) GetByID(ctx context.Context, principal models.Principal, id uint) (*models.BillingRecord, error) {
	record, err := s.repo.Billing().GetByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, "billing record", id)
	}
	if !authz.CanRead(principal, billingResource(record)) {
		return nil, NewPermissionError(principal.ID, id, "billing record", "read", "outside principal tenant")
	}
	return record, nil
}

func (s *billingService) List(ctx context.Context, principal models.Principal, filters repositories.BillingFilters) (*BillingListResponse, error) {
	records, total, err := s.repo.Billing().List(ctx, principal, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list billing records: %w", err)
	}

	params := filters.List.Normalize(authz.DefaultPageSize, nil)
	return &BillingListResponse{
		Records: records,
		Total:   total,
		Page:    params.Page,
		Size:    params.Limit,
	}, nil
}

// Pay settles an invoice. The conditional write makes the transition
// one-way: a second payment attempt conflicts instead of re-paying, and
// the payment audit event is emitted at most once.
func (s *billingService) Pay(ctx context.Context, principal models.Principal, id uint) (*models.BillingRecord, error) {
	record, err := s.repo.Billing().GetByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, "billing record", id)
	}
	if !authz.CanWrite(principal, billingResource(record)) {
		return nil, NewPermissionError(principal.ID, id, "billing record", "pay", "outside principal tenant")
	}

	paidDate := nowUTC()
	paid, err := s.repo.Billing().MarkPaidIf(ctx, id, paidDate)
	if err != nil {
		return nil, fmt.Errorf("failed to mark billing record paid: %w", err)
	}
	if !paid {
		return nil, NewConflictError("billing record", "invoice is already paid")
	}

	record.Status = models.BillingPaid
	record.PaidDate = &paidDate

	s.logger.Info("billing record paid", "billing_id", id, "tenant_id", record.TenantID)
	publishAudit(s.logger, s.publisher, events.Event{
		Type:     "billing.paid",
		TenantID: record.TenantID,
		ActorID:  principal.ID,
		Data:     map[string]interface{}{"billing_id": id, "amount": record.Amount, "currency": record.Currency},
	})
	return record, nil
}

func (s *billingService) Revenue(ctx context.Context, principal models.Principal) ([]*repositories.RevenueSummary, error) {
	if !models.RoleAtLeast(principal.Role, models.RoleAdmin) {
		return nil, NewPermissionError(principal.ID, 0, "billing", "read", "insufficient role")
	}
	return s.repo.Billing().Revenue(ctx, principal.Tenant())
}

func billingResource(r *models.BillingRecord) authz.Resource {
	// Invoices are always tenant-private.
	return authz.Resource{OwnerID: r.CreatedBy, TenantID: r.TenantID, Visibility: models.VisibilityPrivate}
}
