package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/evalforge/assessment-platform/internal/events"
	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/utils"
	"github.com/evalforge/assessment-platform/internal/validator"
)

func superAdminPrincipal() models.Principal {
	return models.Principal{ID: "root", Role: models.RoleSuperAdmin}
}

func onboardRequest() *OnboardCompanyRequest {
	return &OnboardCompanyRequest{
		Name:       "Acme Testing",
		Email:      "billing@acme.test",
		AdminName:  "Dana Admin",
		AdminEmail: "dana@acme.test",
	}
}

func newCompanyServiceForTest(repo *mockRepository, publisher events.EventPublisher) CompanyService {
	return NewCompanyService(repo, testLogger(), validator.New(), publisher)
}

func TestOnboard_ProvisionsTenant(t *testing.T) {
	repo := newMockRepository()
	repo.company.existsByEmail = func(ctx context.Context, email string) (bool, error) { return false, nil }
	repo.user.existsByEmail = func(ctx context.Context, email string) (bool, error) { return false, nil }

	var createdCompany *models.Company
	var createdUser *models.User
	var createdInvite *models.InviteToken
	repo.company.create = func(ctx context.Context, c *models.Company) error { createdCompany = c; return nil }
	repo.user.create = func(ctx context.Context, u *models.User) error { createdUser = u; return nil }
	repo.invite.create = func(ctx context.Context, i *models.InviteToken) error { createdInvite = i; return nil }

	publisher := events.NewMockEventPublisher(testLogger())
	svc := newCompanyServiceForTest(repo, publisher)

	resp, err := svc.Onboard(context.Background(), superAdminPrincipal(), onboardRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if createdCompany == nil || createdUser == nil || createdInvite == nil {
		t.Fatal("company, user and invite must all be created")
	}
	if createdUser.Role != models.RoleCompany {
		t.Errorf("admin role = %s, want company", createdUser.Role)
	}
	if createdUser.TenantID == nil || *createdUser.TenantID != createdCompany.ID {
		t.Error("admin user is not bound to the new tenant")
	}
	if !createdUser.MustChangePassword {
		t.Error("admin must be forced to rotate the temporary password")
	}
	if createdUser.PasswordHash == "" || createdUser.PasswordHash == resp.TemporaryPassword {
		t.Fatal("temporary password must be persisted as a hash")
	}
	if !utils.VerifyPassword(createdUser.PasswordHash, resp.TemporaryPassword) {
		t.Error("stored hash does not verify the issued password")
	}
	if utils.VerifyPassword(createdUser.PasswordHash, "some-other-password") {
		t.Error("stored hash verifies an arbitrary password")
	}

	if len(resp.TemporaryPassword) != 12 {
		t.Errorf("temporary password length = %d, want 12", len(resp.TemporaryPassword))
	}
	if len(resp.InviteToken) != 32 {
		t.Errorf("invite token length = %d, want 32", len(resp.InviteToken))
	}
	if !resp.EmailSent {
		t.Error("email_sent = false with a working publisher")
	}

	var sawCredentialMail bool
	for _, e := range publisher.GetPublishedEvents() {
		if e.Type == "email.credentials" {
			sawCredentialMail = true
		}
	}
	if !sawCredentialMail {
		t.Error("credential email event was not queued")
	}
}

func TestOnboard_EmailDeliveryFailureIsFlagged(t *testing.T) {
	repo := newMockRepository()
	repo.company.existsByEmail = func(ctx context.Context, email string) (bool, error) { return false, nil }
	repo.user.existsByEmail = func(ctx context.Context, email string) (bool, error) { return false, nil }
	repo.company.create = func(ctx context.Context, c *models.Company) error { return nil }
	repo.user.create = func(ctx context.Context, u *models.User) error { return nil }
	repo.invite.create = func(ctx context.Context, i *models.InviteToken) error { return nil }

	publisher := events.NewMockEventPublisher(testLogger())
	publisher.FailWith = errors.New("broker down")
	svc := newCompanyServiceForTest(repo, publisher)

	resp, err := svc.Onboard(context.Background(), superAdminPrincipal(), onboardRequest())
	if err != nil {
		t.Fatalf("onboarding must survive a mail failure, got: %v", err)
	}
	if resp.EmailSent {
		t.Error("email_sent = true after a delivery failure")
	}
	if resp.TemporaryPassword == "" {
		t.Error("credentials must still be returned so the operator can relay them")
	}
}

func TestOnboard_NonSuperAdminDenied(t *testing.T) {
	svc := newCompanyServiceForTest(newMockRepository(), nil)
	_, err := svc.Onboard(context.Background(), companyPrincipal("tenant-1"), onboardRequest())
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("got error %v, want forbidden", err)
	}
}

func TestOnboard_DuplicateCompanyEmail(t *testing.T) {
	repo := newMockRepository()
	repo.company.existsByEmail = func(ctx context.Context, email string) (bool, error) { return true, nil }

	svc := newCompanyServiceForTest(repo, nil)
	_, err := svc.Onboard(context.Background(), superAdminPrincipal(), onboardRequest())
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("got error %v, want conflict", err)
	}
}

func TestRedeemInvite_ConsumesOnce(t *testing.T) {
	repo := newMockRepository()
	repo.invite.getByToken = func(ctx context.Context, token string) (*models.InviteToken, error) {
		return &models.InviteToken{ID: 5, TenantID: "tenant-1", Email: "dana@acme.test", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}
	repo.invite.markUsedIf = func(ctx context.Context, id uint, usedAt time.Time) (bool, error) {
		return true, nil
	}
	var updated *models.User
	repo.user.getByEmail = func(ctx context.Context, email string) (*models.User, error) {
		return &models.User{ID: "u-5", Email: email}, nil
	}
	repo.user.update = func(ctx context.Context, u *models.User) error { updated = u; return nil }

	svc := newCompanyServiceForTest(repo, nil)
	user, err := svc.RedeemInvite(context.Background(), "deadbeefdeadbeefdeadbeefdeadbeef")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !user.EmailVerified {
		t.Error("user not marked verified")
	}
	if updated == nil {
		t.Error("user row was not persisted")
	}
}

func TestRedeemInvite_UsedToken(t *testing.T) {
	repo := newMockRepository()
	repo.invite.getByToken = func(ctx context.Context, token string) (*models.InviteToken, error) {
		used := time.Now().Add(-time.Hour)
		return &models.InviteToken{ID: 5, UsedAt: &used, ExpiresAt: time.Now().Add(time.Hour)}, nil
	}
	repo.invite.markUsedIf = func(ctx context.Context, id uint, usedAt time.Time) (bool, error) {
		return false, nil
	}

	svc := newCompanyServiceForTest(repo, nil)
	_, err := svc.RedeemInvite(context.Background(), "deadbeefdeadbeefdeadbeefdeadbeef")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("got error %v, want conflict", err)
	}
}
