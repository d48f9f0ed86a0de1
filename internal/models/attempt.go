package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptExpired    AttemptStatus = "expired"
)

// AttemptSubmitGrace is how long past the duration deadline a
// submission is still accepted. Submission and the bulk expiry sweep
// must honor the same window, so the constant lives with the model.
const AttemptSubmitGrace = 30 * time.Second

type TestAttempt struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	TestID uint   `json:"test_id" gorm:"not null;index"`
	UserID string `json:"user_id" gorm:"not null;index;size:255"`

	// Tenant of the test at attempt time, denormalized for scoped listing.
	TenantID string `json:"tenant_id" gorm:"not null;index;size:255"`

	Status AttemptStatus `json:"status" gorm:"default:in_progress;index"`

	// Submitted answers: []SubmittedAnswer, recorded at submission.
	Answers datatypes.JSON `json:"answers,omitempty" gorm:"type:jsonb"`

	// Result fields, written once at finalization. An attempt is immutable
	// after SubmittedAt is set.
	CorrectCount   int  `json:"correct_count" gorm:"default:0"`
	TotalQuestions int  `json:"total_questions" gorm:"default:0"`
	EarnedPoints   int  `json:"earned_points" gorm:"default:0"`
	TotalPoints    int  `json:"total_points" gorm:"default:0"`
	Percentage     int  `json:"percentage" gorm:"default:0"`
	Passed         bool `json:"passed" gorm:"default:false"`

	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Test Test `json:"test,omitempty" gorm:"foreignKey:TestID"`
}

func (TestAttempt) TableName() string {
	return "test_attempts"
}

// SubmittedAnswer is one answer in a submission payload. Value is a string
// or a []string depending on the question type.
type SubmittedAnswer struct {
	QuestionID uint        `json:"question_id" validate:"required"`
	Value      interface{} `json:"answer"`
}
