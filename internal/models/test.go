package models

import (
	"time"

	"gorm.io/gorm"
)

type TestStatus string

const (
	TestStatusDraft     TestStatus = "draft"
	TestStatusPublished TestStatus = "published"
	TestStatusArchived  TestStatus = "archived"
)

// allowedStatusTransitions encodes the one-way test lifecycle:
// draft -> published, published -> archived, draft -> archived.
var allowedStatusTransitions = map[TestStatus][]TestStatus{
	TestStatusDraft:     {TestStatusPublished, TestStatusArchived},
	TestStatusPublished: {TestStatusArchived},
	TestStatusArchived:  {},
}

// CanTransitionTo reports whether the status machine permits moving from the
// current status to target. Backward transitions are never allowed.
func (s TestStatus) CanTransitionTo(target TestStatus) bool {
	for _, next := range allowedStatusTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

type Test struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Title       string  `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	Type        string  `json:"type" gorm:"size:50;index"`

	Difficulty      DifficultyLevel `json:"difficulty" gorm:"default:medium;index"`
	DurationMinutes int             `json:"duration_minutes" gorm:"not null" validate:"required,min=5,max=300"`
	PassingScore    int             `json:"passing_score" gorm:"not null" validate:"min=0,max=100"`

	Status TestStatus `json:"status" gorm:"default:draft;index"`

	// Tenant scoping. TenantID is immutable after creation.
	TenantID   string     `json:"tenant_id" gorm:"not null;index;size:255"`
	Visibility Visibility `json:"visibility" gorm:"default:private;index"`

	// Derived count kept consistent with the question set on every mutation.
	TotalQuestions int `json:"total_questions" gorm:"default:0"`

	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Settings  TestSettings   `json:"settings" gorm:"foreignKey:TestID"`
	Questions []TestQuestion `json:"questions,omitempty" gorm:"foreignKey:TestID"`

	// Computed fields (not stored)
	TotalPoints  int     `json:"total_points" gorm:"-"`
	AttemptCount int     `json:"attempt_count" gorm:"-"`
	AverageScore float64 `json:"average_score" gorm:"-"`
}

func (Test) TableName() string {
	return "tests"
}

type TestSettings struct {
	TestID    uint      `json:"test_id" gorm:"primaryKey;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`

	ShuffleQuestions bool `json:"shuffle_questions" gorm:"not null;default:false"`
	ShuffleOptions   bool `json:"shuffle_options" gorm:"not null;default:false"`
	AttemptsAllowed  int  `json:"attempts_allowed" gorm:"not null;default:1" validate:"min=1,max=10"`
	ShowResults      bool `json:"show_results" gorm:"not null;default:true"`

	// Proctoring sub-config
	RequireWebcam       bool `json:"require_webcam" gorm:"not null;default:false"`
	PreventTabSwitching bool `json:"prevent_tab_switching" gorm:"not null;default:false"`
	PreventCopyPaste    bool `json:"prevent_copy_paste" gorm:"not null;default:false"`
	RequireFullScreen   bool `json:"require_full_screen" gorm:"not null;default:false"`
}

func (TestSettings) TableName() string {
	return "test_settings"
}
