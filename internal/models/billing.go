package models

import (
	"time"

	"gorm.io/datatypes"
)

type BillingStatus string

const (
	BillingPending BillingStatus = "pending"
	BillingPaid    BillingStatus = "paid"
	BillingOverdue BillingStatus = "overdue"
)

// BillingRecord is an invoice for a tenant. The pending/overdue -> paid
// transition is one-way; paid records are immutable.
type BillingRecord struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	TenantID string `json:"tenant_id" gorm:"not null;index;size:255"`

	Amount   int64  `json:"amount" gorm:"not null" validate:"min=0"` // minor units
	Currency string `json:"currency" gorm:"not null;size:3;default:USD" validate:"len=3"`

	Status BillingStatus `json:"status" gorm:"default:pending;index"`

	DueDate  time.Time  `json:"due_date" gorm:"not null;index"`
	PaidDate *time.Time `json:"paid_date"`

	// Line items: []BillingItem
	Items datatypes.JSON `json:"items" gorm:"type:jsonb"`

	CreatedBy string    `json:"created_by" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BillingRecord) TableName() string {
	return "billing_records"
}

type BillingItem struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitAmount  int64  `json:"unit_amount"`
}
