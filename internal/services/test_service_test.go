package services

import (
	"context"
	"errors"
	"testing"

	"github.com/evalforge/assessment-platform/internal/events"
	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/validator"
)

func newTestServiceForTest(repo *mockRepository, publisher events.EventPublisher) TestService {
	return NewTestService(repo, testLogger(), validator.New(), publisher)
}

func companyPrincipal(tenant string) models.Principal {
	return models.Principal{ID: tenant, Role: models.RoleCompany}
}

func TestUpdateStatus_Transitions(t *testing.T) {
	tests := []struct {
		name      string
		from      models.TestStatus
		to        models.TestStatus
		questions int
		wantErr   error
	}{
		{"draft to published", models.TestStatusDraft, models.TestStatusPublished, 3, nil},
		{"draft to archived", models.TestStatusDraft, models.TestStatusArchived, 0, nil},
		{"published to archived", models.TestStatusPublished, models.TestStatusArchived, 3, nil},
		{"published back to draft", models.TestStatusPublished, models.TestStatusDraft, 3, ErrConflict},
		{"archived to published", models.TestStatusArchived, models.TestStatusPublished, 3, ErrConflict},
		{"archived to draft", models.TestStatusArchived, models.TestStatusDraft, 3, ErrConflict},
		{"publish with zero questions", models.TestStatusDraft, models.TestStatusPublished, 0, ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepository()
			repo.test.getByID = func(ctx context.Context, id uint) (*models.Test, error) {
				return &models.Test{
					ID:             id,
					Status:         tt.from,
					TenantID:       "tenant-1",
					TotalQuestions: tt.questions,
					CreatedBy:      "tenant-1",
				}, nil
			}
			repo.test.updateStatusIf = func(ctx context.Context, id uint, from, to models.TestStatus) (bool, error) {
				if from != tt.from || to != tt.to {
					t.Fatalf("conditional write got %s -> %s, want %s -> %s", from, to, tt.from, tt.to)
				}
				return true, nil
			}

			svc := newTestServiceForTest(repo, nil)
			resp, err := svc.UpdateStatus(context.Background(), companyPrincipal("tenant-1"), 1, &UpdateTestStatusRequest{Status: tt.to})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got error %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Status != tt.to {
				t.Errorf("status = %s, want %s", resp.Status, tt.to)
			}
		})
	}
}

func TestUpdateStatus_LostRace(t *testing.T) {
	repo := newMockRepository()
	repo.test.getByID = func(ctx context.Context, id uint) (*models.Test, error) {
		return &models.Test{ID: id, Status: models.TestStatusDraft, TenantID: "tenant-1", TotalQuestions: 2}, nil
	}
	repo.test.updateStatusIf = func(ctx context.Context, id uint, from, to models.TestStatus) (bool, error) {
		return false, nil // another writer moved the status first
	}

	svc := newTestServiceForTest(repo, nil)
	_, err := svc.UpdateStatus(context.Background(), companyPrincipal("tenant-1"), 1, &UpdateTestStatusRequest{Status: models.TestStatusPublished})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("got error %v, want conflict", err)
	}
}

func TestUpdateStatus_CrossTenantDenied(t *testing.T) {
	repo := newMockRepository()
	repo.test.getByID = func(ctx context.Context, id uint) (*models.Test, error) {
		return &models.Test{ID: id, Status: models.TestStatusDraft, TenantID: "tenant-1", TotalQuestions: 2}, nil
	}

	svc := newTestServiceForTest(repo, nil)
	_, err := svc.UpdateStatus(context.Background(), companyPrincipal("tenant-2"), 1, &UpdateTestStatusRequest{Status: models.TestStatusPublished})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("got error %v, want forbidden", err)
	}
}

func boolPtr(v bool) *bool { return &v }

// Every settings field accepted on the wire must land on the model.
func TestDefaultTestSettings_AppliesAllFields(t *testing.T) {
	settings := defaultTestSettings(&TestSettingsRequest{
		ShuffleQuestions:    boolPtr(true),
		ShuffleOptions:      boolPtr(true),
		ShowResults:         boolPtr(false),
		AttemptsAllowed:     intPtr(3),
		RequireWebcam:       boolPtr(true),
		PreventTabSwitching: boolPtr(true),
		PreventCopyPaste:    boolPtr(true),
		RequireFullScreen:   boolPtr(true),
	})

	if !settings.ShuffleQuestions || !settings.ShuffleOptions {
		t.Error("shuffle flags not applied")
	}
	if settings.ShowResults {
		t.Error("show_results override not applied")
	}
	if settings.AttemptsAllowed != 3 {
		t.Errorf("attempts_allowed = %d, want 3", settings.AttemptsAllowed)
	}
	if !settings.RequireWebcam || !settings.PreventTabSwitching {
		t.Error("webcam/tab-switch proctoring flags not applied")
	}
	if !settings.PreventCopyPaste {
		t.Error("prevent_copy_paste not applied")
	}
	if !settings.RequireFullScreen {
		t.Error("require_full_screen not applied")
	}
}

func TestDefaultTestSettings_Defaults(t *testing.T) {
	settings := defaultTestSettings(nil)
	if settings.AttemptsAllowed != 1 || !settings.ShowResults {
		t.Errorf("defaults = %+v, want one attempt with visible results", settings)
	}
	if settings.PreventCopyPaste || settings.RequireFullScreen {
		t.Error("proctoring flags must default off")
	}
}

func TestUpdateStatus_PublishEmitsAuditEvent(t *testing.T) {
	repo := newMockRepository()
	repo.test.getByID = func(ctx context.Context, id uint) (*models.Test, error) {
		return &models.Test{ID: id, Status: models.TestStatusDraft, TenantID: "tenant-1", TotalQuestions: 1}, nil
	}
	repo.test.updateStatusIf = func(ctx context.Context, id uint, from, to models.TestStatus) (bool, error) {
		return true, nil
	}

	publisher := events.NewMockEventPublisher(testLogger())
	svc := newTestServiceForTest(repo, publisher)

	if _, err := svc.UpdateStatus(context.Background(), companyPrincipal("tenant-1"), 7, &UpdateTestStatusRequest{Status: models.TestStatusPublished}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != "test.status_changed" {
		t.Fatalf("published events = %+v, want one test.status_changed", published)
	}
}
