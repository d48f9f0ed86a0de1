package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/evalforge/assessment-platform/internal/authz"
	"github.com/evalforge/assessment-platform/internal/events"
	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
	"github.com/evalforge/assessment-platform/internal/utils"
	"github.com/evalforge/assessment-platform/internal/validator"
)

// inviteTTL bounds how long an onboarding invite can be redeemed.
const inviteTTL = 7 * 24 * time.Hour

type companyService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewCompanyService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher) CompanyService {
	return &companyService{
		repo:      repo,
		logger:    logger,
		validator: v,
		publisher: publisher,
	}
}

// Onboard provisions a tenant: company row, admin account with a
// generated temporary password, and a one-time invite token. The
// plaintext credentials appear in the response exactly once; the user
// row carries only the bcrypt hash. Email delivery is asynchronous and
// best-effort; a delivery failure is reported through EmailSent, not
// an error.
func (s *companyService) Onboard(ctx context.Context, principal models.Principal, req *OnboardCompanyRequest) (*OnboardCompanyResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, toValidationError(err)
	}
	if !principal.IsSuperAdmin() {
		return nil, NewPermissionError(principal.ID, 0, "company", "create", "only super admins onboard companies")
	}

	if exists, err := s.repo.Company().ExistsByEmail(ctx, req.Email); err != nil {
		return nil, fmt.Errorf("failed to check company email: %w", err)
	} else if exists {
		return nil, NewConflictError("company", "a company with this email already exists")
	}
	if exists, err := s.repo.User().ExistsByEmail(ctx, req.AdminEmail); err != nil {
		return nil, fmt.Errorf("failed to check admin email: %w", err)
	} else if exists {
		return nil, NewConflictError("user", "a user with this email already exists")
	}

	tempPassword, err := utils.GenerateTemporaryPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate temporary password: %w", err)
	}
	passwordHash, err := utils.HashPassword(tempPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash temporary password: %w", err)
	}
	inviteToken, err := utils.GenerateInviteToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite token: %w", err)
	}

	company := &models.Company{
		ID:       uuid.NewString(),
		Name:     req.Name,
		Email:    req.Email,
		IsActive: true,
	}
	if req.Industry != "" {
		company.Industry = &req.Industry
	}

	admin := &models.User{
		ID:                 uuid.NewString(),
		FullName:           req.AdminName,
		Email:              req.AdminEmail,
		Role:               models.RoleCompany,
		TenantID:           &company.ID,
		PasswordHash:       passwordHash,
		MustChangePassword: true,
	}

	expiresAt := nowUTC().Add(inviteTTL)
	invite := &models.InviteToken{
		Token:     inviteToken,
		TenantID:  company.ID,
		Email:     req.AdminEmail,
		Role:      models.RoleCompany,
		ExpiresAt: expiresAt,
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Company().Create(ctx, company); err != nil {
			return err
		}
		if err := tx.User().Create(ctx, admin); err != nil {
			return err
		}
		return tx.Invite().Create(ctx, invite)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to onboard company: %w", err)
	}

	emailSent := s.sendCredentialEmail(company, admin, tempPassword, inviteToken, expiresAt)

	s.logger.Info("company onboarded",
		"company_id", company.ID,
		"admin_email", admin.Email,
		"email_sent", emailSent)
	publishAudit(s.logger, s.publisher, events.Event{
		Type:     "company.onboarded",
		TenantID: company.ID,
		ActorID:  principal.ID,
		Data:     map[string]interface{}{"company_id": company.ID, "email_sent": emailSent},
	})

	return &OnboardCompanyResponse{
		Company:           company,
		AdminUserID:       admin.ID,
		AdminEmail:        admin.Email,
		TemporaryPassword: tempPassword,
		InviteToken:       inviteToken,
		InviteExpiresAt:   expiresAt,
		EmailSent:         emailSent,
	}, nil
}

// sendCredentialEmail hands the credential mail to the notification
// pipeline. Failure is logged and surfaced as a flag.
func (s *companyService) sendCredentialEmail(company *models.Company, admin *models.User, password, token string, expiresAt time.Time) bool {
	if s.publisher == nil {
		return false
	}
	err := s.publisher.Publish(events.TopicNotifications, events.Event{
		Type:     "email.credentials",
		TenantID: company.ID,
		Data: map[string]interface{}{
			"to":                 admin.Email,
			"company_name":       company.Name,
			"temporary_password": password,
			"invite_token":       token,
			"expires_at":         expiresAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		s.logger.Error("failed to queue credential email", "company_id", company.ID, "error", err)
		return false
	}
	return true
}

func (s *companyService) GetByID(ctx context.Context, principal models.Principal, id string) (*models.Company, error) {
	if !principal.IsSuperAdmin() && principal.Tenant() != id {
		return nil, NewPermissionError(principal.ID, id, "company", "read", "outside principal tenant")
	}
	company, err := s.repo.Company().GetByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, "company", id)
	}
	return company, nil
}

func (s *companyService) List(ctx context.Context, principal models.Principal, params authz.ListParams) (*CompanyListResponse, error) {
	companies, total, err := s.repo.Company().List(ctx, principal, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	params = params.Normalize(authz.DefaultPageSize, nil)
	return &CompanyListResponse{
		Companies: companies,
		Total:     total,
		Page:      params.Page,
		Size:      params.Limit,
	}, nil
}

func (s *companyService) ListUsers(ctx context.Context, principal models.Principal, filters repositories.UserFilters) (*UserListResponse, error) {
	if !models.RoleAtLeast(principal.Role, models.RoleUser) {
		return nil, NewPermissionError(principal.ID, 0, "user", "read", "insufficient role")
	}
	if !principal.IsSuperAdmin() {
		tenant := principal.Tenant()
		filters.TenantID = &tenant
	}

	users, total, err := s.repo.User().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	params := filters.List.Normalize(authz.DefaultPageSize, nil)
	return &UserListResponse{
		Users: users,
		Total: total,
		Page:  params.Page,
		Size:  params.Limit,
	}, nil
}

// RedeemInvite consumes a one-time invite token. The conditional write
// on used_at guarantees a token redeems at most once even under races.
func (s *companyService) RedeemInvite(ctx context.Context, token string) (*models.User, error) {
	invite, err := s.repo.Invite().GetByToken(ctx, token)
	if err != nil {
		return nil, wrapNotFound(err, "invite token", "")
	}

	used, err := s.repo.Invite().MarkUsedIf(ctx, invite.ID, nowUTC())
	if err != nil {
		return nil, fmt.Errorf("failed to redeem invite: %w", err)
	}
	if !used {
		return nil, NewConflictError("invite token", "token is already used or expired")
	}

	user, err := s.repo.User().GetByEmail(ctx, invite.Email)
	if err != nil {
		return nil, wrapNotFound(err, "user", invite.Email)
	}
	if !user.EmailVerified {
		user.EmailVerified = true
		if err := s.repo.User().Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to verify user: %w", err)
		}
	}

	s.logger.Info("invite redeemed", "tenant_id", invite.TenantID, "email", invite.Email)
	return user, nil
}
