package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleCandidate  UserRole = "candidate"
	RoleUser       UserRole = "user"
	RoleCompany    UserRole = "company"
	RoleAdmin      UserRole = "admin"
	RoleSuperAdmin UserRole = "super_admin"
)

// roleRanks is the total order used for permission checks.
// Company principals rank with admins.
var roleRanks = map[UserRole]int{
	RoleCandidate:  0,
	RoleUser:       1,
	RoleCompany:    2,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// RoleRank returns the position of a role in the hierarchy.
// Unknown roles rank below candidate.
func RoleRank(role UserRole) int {
	if rank, ok := roleRanks[role]; ok {
		return rank
	}
	return -1
}

// RoleAtLeast reports whether role meets or exceeds the required role.
func RoleAtLeast(role, required UserRole) bool {
	return RoleRank(role) >= RoleRank(required)
}

// Principal is the authenticated actor for the current request. It is
// constructed by the auth middleware from a verified token and never
// persisted.
type Principal struct {
	ID       string   `json:"id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	TenantID string   `json:"tenant_id"` // empty when the principal itself is the tenant
}

// Tenant returns the tenant identity of the principal. Company principals
// carry their own id as tenant.
func (p Principal) Tenant() string {
	if p.TenantID != "" {
		return p.TenantID
	}
	return p.ID
}

// IsSuperAdmin reports whether the principal bypasses tenant isolation.
func (p Principal) IsSuperAdmin() bool {
	return p.Role == RoleSuperAdmin
}

type User struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	FullName string   `json:"full_name" gorm:"not null;size:100"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role     UserRole `json:"role" gorm:"not null;index;size:20"`

	// Tenant the user belongs to. Empty for company principals (they are
	// their own tenant) and for super admins.
	TenantID *string `json:"tenant_id" gorm:"index;size:255"`

	AvatarURL *string `json:"avatar_url" gorm:"size:500"`

	// Bcrypt hash of the current password. The plaintext is never stored.
	PasswordHash string `json:"-" gorm:"size:100"`

	EmailVerified bool `json:"email_verified" gorm:"default:false"`
	// Set when the user still holds a generated temporary password.
	MustChangePassword bool `json:"must_change_password" gorm:"default:false"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// Principal builds the request principal for this user.
func (u *User) Principal() Principal {
	p := Principal{ID: u.ID, Role: u.Role, Email: u.Email}
	if u.TenantID != nil {
		p.TenantID = *u.TenantID
	}
	return p
}
