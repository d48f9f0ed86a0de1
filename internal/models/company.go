package models

import (
	"time"

	"gorm.io/gorm"
)

// Company is the tenant root. Its ID doubles as the tenant id for every
// resource it owns.
type Company struct {
	ID    string `json:"id" gorm:"primaryKey;size:255"`
	Name  string `json:"name" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	Email string `json:"email" gorm:"uniqueIndex;not null;size:255" validate:"required,email"`

	Website  *string `json:"website" gorm:"size:500" validate:"omitempty,url"`
	Industry *string `json:"industry" gorm:"size:100"`

	IsActive bool `json:"is_active" gorm:"default:true;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Company) TableName() string {
	return "companies"
}

// InviteToken is a one-time bearer token issued during onboarding. The token
// value is opaque; nothing can be derived from it without this row.
type InviteToken struct {
	ID    uint   `json:"id" gorm:"primaryKey"`
	Token string `json:"-" gorm:"uniqueIndex;not null;size:64"`

	TenantID string   `json:"tenant_id" gorm:"not null;index;size:255"`
	Email    string   `json:"email" gorm:"not null;size:255"`
	Role     UserRole `json:"role" gorm:"not null;size:20"`

	ExpiresAt time.Time  `json:"expires_at" gorm:"not null;index"`
	UsedAt    *time.Time `json:"used_at"`

	CreatedAt time.Time `json:"created_at"`
}

func (InviteToken) TableName() string {
	return "invite_tokens"
}
