package models

import (
	"time"

	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	JobFailed     JobStatus = "failed"
)

// ScheduledJob is picked up by the cron-triggered sweep. Transitions are
// linear pending -> processing -> done|failed. A failed job is never reset
// to pending automatically; requeue is an explicit admin operation.
type ScheduledJob struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Type string `json:"type" gorm:"not null;index;size:100" validate:"required"`

	Payload datatypes.JSON `json:"payload" gorm:"type:jsonb"`

	Status   JobStatus `json:"status" gorm:"default:pending;index"`
	Attempts int       `json:"attempts" gorm:"default:0"`

	ScheduledAt time.Time `json:"scheduled_at" gorm:"not null;index"`
	LastError   *string   `json:"last_error" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ScheduledJob) TableName() string {
	return "scheduled_jobs"
}
