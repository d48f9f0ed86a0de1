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

var billingSortable = map[string]bool{
	"created_at": true,
	"due_date":   true,
	"amount":     true,
	"status":     true,
}

type billingPostgres struct {
	db *gorm.DB
}

func (b *billingPostgres) Create(ctx context.Context, record *models.BillingRecord) error {
	if err := b.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create billing record: %w", err)
	}
	return nil
}

func (b *billingPostgres) GetByID(ctx context.Context, id uint) (*models.BillingRecord, error) {
	var record models.BillingRecord
	if err := b.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("billing record %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get billing record: %w", err)
	}
	return &record, nil
}

func (b *billingPostgres) Update(ctx context.Context, record *models.BillingRecord) error {
	if err := b.db.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("failed to update billing record: %w", err)
	}
	return nil
}

func (b *billingPostgres) List(ctx context.Context, principal models.Principal, filters repositories.BillingFilters) ([]*models.BillingRecord, int64, error) {
	params := filters.List.Normalize(10, billingSortable)

	// Billing records are never public.
	base := b.db.WithContext(ctx).
		Model(&models.BillingRecord{}).
		Scopes(authz.TenantOnlyScope(principal))

	if filters.Status != nil {
		base = base.Where("status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		base = base.Where("due_date >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		base = base.Where("due_date <= ?", *filters.DateTo)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count billing records: %w", err)
	}

	var records []*models.BillingRecord
	if err := base.Scopes(authz.PageScope(params)).Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list billing records: %w", err)
	}
	return records, total, nil
}

// MarkPaidIf is the conditional write that makes the pending/overdue ->
// paid transition one-way even under concurrent submissions.
func (b *billingPostgres) MarkPaidIf(ctx context.Context, id uint, paidDate time.Time) (bool, error) {
	res := b.db.WithContext(ctx).
		Model(&models.BillingRecord{}).
		Where("id = ? AND status IN ?", id, []models.BillingStatus{models.BillingPending, models.BillingOverdue}).
		Updates(map[string]interface{}{
			"status":    models.BillingPaid,
			"paid_date": paidDate,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark billing record paid: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MarkOverdueDue is run by the scheduled sweep. It only touches pending
// invoices; paid records are never revisited.
func (b *billingPostgres) MarkOverdueDue(ctx context.Context, now time.Time) (int64, error) {
	res := b.db.WithContext(ctx).
		Model(&models.BillingRecord{}).
		Where("status = ? AND due_date < ?", models.BillingPending, now).
		Update("status", models.BillingOverdue)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark overdue invoices: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Revenue groups invoice totals by currency for a tenant.
func (b *billingPostgres) Revenue(ctx context.Context, tenantID string) ([]*repositories.RevenueSummary, error) {
	var summaries []*repositories.RevenueSummary
	if err := b.db.WithContext(ctx).
		Model(&models.BillingRecord{}).
		Select("currency, "+
			"SUM(amount) FILTER (WHERE status = ?) AS paid_total, "+
			"SUM(amount) FILTER (WHERE status = ?) AS pending_due, "+
			"SUM(amount) FILTER (WHERE status = ?) AS overdue_due, "+
			"COUNT(*) AS invoice_count",
			models.BillingPaid, models.BillingPending, models.BillingOverdue).
		Where("tenant_id = ?", tenantID).
		Group("currency").
		Scan(&summaries).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue: %w", err)
	}
	return summaries, nil
}
