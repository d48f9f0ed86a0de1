package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/evalforge/assessment-platform/internal/events"
	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/validator"
)

func newBillingServiceForTest(repo *mockRepository, publisher events.EventPublisher) BillingService {
	return NewBillingService(repo, testLogger(), validator.New(), publisher, nil)
}

// stubJobService records Schedule calls; other operations are unused in
// billing tests.
type stubJobService struct {
	JobService
	scheduled []string
	runAt     []time.Time
}

func (s *stubJobService) Schedule(ctx context.Context, jobType string, payload map[string]interface{}, runAt time.Time) (*models.ScheduledJob, error) {
	s.scheduled = append(s.scheduled, jobType)
	s.runAt = append(s.runAt, runAt)
	return &models.ScheduledJob{Type: jobType}, nil
}

func TestPay_Succeeds(t *testing.T) {
	repo := newMockRepository()
	repo.billing.getByID = func(ctx context.Context, id uint) (*models.BillingRecord, error) {
		return &models.BillingRecord{ID: id, TenantID: "tenant-1", Status: models.BillingPending, Amount: 5000, Currency: "USD"}, nil
	}
	repo.billing.markPaidIf = func(ctx context.Context, id uint, paidDate time.Time) (bool, error) {
		return true, nil
	}

	publisher := events.NewMockEventPublisher(testLogger())
	svc := newBillingServiceForTest(repo, publisher)

	record, err := svc.Pay(context.Background(), companyPrincipal("tenant-1"), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != models.BillingPaid {
		t.Errorf("status = %s, want paid", record.Status)
	}
	if record.PaidDate == nil {
		t.Error("paid date not set")
	}
	if got := publisher.GetPublishedEvents(); len(got) != 1 || got[0].Type != "billing.paid" {
		t.Fatalf("published events = %+v, want one billing.paid", got)
	}
}

// A second payment attempt must conflict and must not emit a second
// payment event.
func TestPay_AlreadyPaid(t *testing.T) {
	repo := newMockRepository()
	repo.billing.getByID = func(ctx context.Context, id uint) (*models.BillingRecord, error) {
		return &models.BillingRecord{ID: id, TenantID: "tenant-1", Status: models.BillingPaid}, nil
	}
	repo.billing.markPaidIf = func(ctx context.Context, id uint, paidDate time.Time) (bool, error) {
		return false, nil
	}

	publisher := events.NewMockEventPublisher(testLogger())
	svc := newBillingServiceForTest(repo, publisher)

	_, err := svc.Pay(context.Background(), companyPrincipal("tenant-1"), 1)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("got error %v, want conflict", err)
	}
	if got := publisher.GetPublishedEvents(); len(got) != 0 {
		t.Fatalf("published events = %+v, want none", got)
	}
}

func TestPay_CrossTenantDenied(t *testing.T) {
	repo := newMockRepository()
	repo.billing.getByID = func(ctx context.Context, id uint) (*models.BillingRecord, error) {
		return &models.BillingRecord{ID: id, TenantID: "tenant-1", Status: models.BillingPending}, nil
	}

	svc := newBillingServiceForTest(repo, nil)
	_, err := svc.Pay(context.Background(), companyPrincipal("tenant-2"), 1)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("got error %v, want forbidden", err)
	}
}

func TestCreateBilling_SchedulesOverdueCheck(t *testing.T) {
	repo := newMockRepository()
	repo.billing.create = func(ctx context.Context, r *models.BillingRecord) error {
		r.ID = 7
		return nil
	}

	jobs := &stubJobService{}
	svc := NewBillingService(repo, testLogger(), validator.New(), nil, jobs)

	due := time.Now().Add(14 * 24 * time.Hour)
	_, err := svc.Create(context.Background(), companyPrincipal("tenant-1"), &CreateBillingRequest{
		TenantID: "tenant-1",
		Amount:   1000,
		Currency: "USD",
		DueDate:  due,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs.scheduled) != 1 || jobs.scheduled[0] != JobTypeBillingOverdue {
		t.Fatalf("scheduled jobs = %v, want one %s", jobs.scheduled, JobTypeBillingOverdue)
	}
	if !jobs.runAt[0].Equal(due) {
		t.Errorf("run at = %v, want the invoice due date %v", jobs.runAt[0], due)
	}
}

func TestCreateBilling_TenantPinned(t *testing.T) {
	repo := newMockRepository()
	svc := newBillingServiceForTest(repo, nil)

	req := &CreateBillingRequest{
		TenantID: "tenant-2",
		Amount:   1000,
		Currency: "USD",
		DueDate:  time.Now().Add(24 * time.Hour),
	}
	_, err := svc.Create(context.Background(), companyPrincipal("tenant-1"), req)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("got error %v, want forbidden", err)
	}
}
