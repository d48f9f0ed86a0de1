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

var companySortable = map[string]bool{
	"created_at": true,
	"name":       true,
}

type companyPostgres struct {
	db *gorm.DB
}

func (c *companyPostgres) Create(ctx context.Context, company *models.Company) error {
	if err := c.db.WithContext(ctx).Create(company).Error; err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

func (c *companyPostgres) GetByID(ctx context.Context, id string) (*models.Company, error) {
	var company models.Company
	if err := c.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("company %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &company, nil
}

func (c *companyPostgres) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := c.db.WithContext(ctx).
		Model(&models.Company{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check company email: %w", err)
	}
	return count > 0, nil
}

func (c *companyPostgres) Update(ctx context.Context, company *models.Company) error {
	if err := c.db.WithContext(ctx).Save(company).Error; err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	return nil
}

// List is super_admin-only territory in practice; for everyone else the
// tenant scope collapses the result to their own company.
func (c *companyPostgres) List(ctx context.Context, principal models.Principal, params authz.ListParams) ([]*models.Company, int64, error) {
	params = params.Normalize(10, companySortable)

	base := c.db.WithContext(ctx).Model(&models.Company{})
	if !principal.IsSuperAdmin() {
		base = base.Where("id = ?", principal.Tenant())
	}
	base = base.Scopes(authz.SearchScope(params.Search, "name", "email", "industry"))

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count companies: %w", err)
	}

	var companies []*models.Company
	if err := base.Scopes(authz.PageScope(params)).Find(&companies).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, total, nil
}

type userPostgres struct {
	db *gorm.DB
}

func (u *userPostgres) Create(ctx context.Context, user *models.User) error {
	if err := u.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (u *userPostgres) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (u *userPostgres) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", email, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (u *userPostgres) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check user email: %w", err)
	}
	return count > 0, nil
}

func (u *userPostgres) Update(ctx context.Context, user *models.User) error {
	if err := u.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (u *userPostgres) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	params := filters.List.Normalize(10, map[string]bool{"created_at": true, "full_name": true, "email": true})

	base := u.db.WithContext(ctx).Model(&models.User{})
	if filters.Role != nil {
		base = base.Where("role = ?", *filters.Role)
	}
	if filters.TenantID != nil {
		base = base.Where("tenant_id = ?", *filters.TenantID)
	}
	base = base.Scopes(authz.SearchScope(params.Search, "full_name", "email"))

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []*models.User
	if err := base.Scopes(authz.PageScope(params)).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

type invitePostgres struct {
	db *gorm.DB
}

func (i *invitePostgres) Create(ctx context.Context, invite *models.InviteToken) error {
	if err := i.db.WithContext(ctx).Create(invite).Error; err != nil {
		return fmt.Errorf("failed to create invite token: %w", err)
	}
	return nil
}

func (i *invitePostgres) GetByToken(ctx context.Context, token string) (*models.InviteToken, error) {
	var invite models.InviteToken
	if err := i.db.WithContext(ctx).First(&invite, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invite token: %w", repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get invite token: %w", err)
	}
	return &invite, nil
}

// MarkUsedIf consumes the token once: the conditional on used_at makes a
// second redemption match no row.
func (i *invitePostgres) MarkUsedIf(ctx context.Context, id uint, usedAt time.Time) (bool, error) {
	res := i.db.WithContext(ctx).
		Model(&models.InviteToken{}).
		Where("id = ? AND used_at IS NULL AND expires_at > ?", id, usedAt).
		Update("used_at", usedAt)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark invite used: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
