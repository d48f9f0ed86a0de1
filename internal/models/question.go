package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
	Coding         QuestionType = "coding"
)

func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, TrueFalse, ShortAnswer, Essay, Coding:
		return true
	}
	return false
}

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

func (d DifficultyLevel) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

type Question struct {
	ID   uint         `json:"id" gorm:"primaryKey"`
	Type QuestionType `json:"type" gorm:"not null;index" validate:"required,oneof=multiple_choice true_false short_answer essay coding"`
	Text string       `json:"text" gorm:"type:text;not null" validate:"required"`

	Domain    string `json:"domain" gorm:"size:100;index"`
	SubDomain string `json:"sub_domain" gorm:"size:100"`

	Difficulty DifficultyLevel `json:"difficulty" gorm:"default:medium;index"`
	Points     int             `json:"points" gorm:"default:1" validate:"min=0,max=100"`

	// Options and correct answer stored as JSONB for flexibility.
	// Options is []string; CorrectAnswer is a string or []string depending
	// on the question type.
	Options       datatypes.JSON `json:"options" gorm:"type:jsonb"`
	CorrectAnswer datatypes.JSON `json:"correct_answer" gorm:"type:jsonb"`

	Explanation *string        `json:"explanation" gorm:"type:text"`
	Tags        datatypes.JSON `json:"tags" gorm:"type:jsonb"` // []string

	// Tenant scoping. TenantID is immutable after creation.
	TenantID   string     `json:"tenant_id" gorm:"not null;index;size:255"`
	Visibility Visibility `json:"visibility" gorm:"default:private;index"`

	// Version control. Version increments on every content mutation and
	// PreviousVersions keeps the immutable audit trail.
	Version          int            `json:"version" gorm:"default:1"`
	PreviousVersions datatypes.JSON `json:"previous_versions,omitempty" gorm:"type:jsonb"` // []QuestionRevision

	// Soft delete flag. Questions are never hard-deleted.
	IsActive bool `json:"is_active" gorm:"default:true;index"`

	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Statistics (computed)
	UsageCount   int     `json:"usage_count" gorm:"-"`
	AverageScore float64 `json:"average_score" gorm:"-"`
}

func (Question) TableName() string {
	return "questions"
}

// QuestionRevision is a snapshot appended to PreviousVersions before a
// content mutation is applied.
type QuestionRevision struct {
	Version       int            `json:"version"`
	Text          string         `json:"text"`
	Options       datatypes.JSON `json:"options,omitempty"`
	CorrectAnswer datatypes.JSON `json:"correct_answer,omitempty"`
	Explanation   *string        `json:"explanation,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
	UpdatedBy     string         `json:"updated_by"`
}

// TestQuestion links a question into a test with an explicit order.
// (test_id, question_id) is unique so a question appears at most once.
type TestQuestion struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	TestID     uint `json:"test_id" gorm:"not null;index;uniqueIndex:idx_test_question"`
	QuestionID uint `json:"question_id" gorm:"not null;index;uniqueIndex:idx_test_question"`

	Order int `json:"order" gorm:"not null"`
	// Overrides Question.Points when set.
	Points *int `json:"points"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Test     Test     `json:"-" gorm:"foreignKey:TestID"`
	Question Question `json:"question" gorm:"foreignKey:QuestionID"`
}

func (TestQuestion) TableName() string {
	return "test_questions"
}
