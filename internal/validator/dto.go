package validator

import (
	"time"

	"github.com/evalforge/assessment-platform/internal/models"
)

// QuestionCreateRequest is the payload for creating a question.
type QuestionCreateRequest struct {
	Type          models.QuestionType    `json:"type" validate:"required,question_type"`
	Text          string                 `json:"text" validate:"required,min=1,max=2000"`
	Domain        string                 `json:"domain" validate:"omitempty,max=100"`
	SubDomain     string                 `json:"sub_domain" validate:"omitempty,max=100"`
	Difficulty    models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Points        *int                   `json:"points" validate:"omitempty,min=0,max=100"`
	Options       []string               `json:"options" validate:"omitempty,max=10,dive,max=500"`
	CorrectAnswer interface{}            `json:"correct_answer"`
	Explanation   *string                `json:"explanation" validate:"omitempty,max=1000"`
	Tags          []string               `json:"tags" validate:"omitempty,max=10,dive,max=50"`
	Visibility    models.Visibility      `json:"visibility" validate:"omitempty,visibility"`
}

// QuestionUpdateRequest mutates content fields only; tenant and creator
// are immutable.
type QuestionUpdateRequest struct {
	Text          *string                 `json:"text" validate:"omitempty,min=1,max=2000"`
	Domain        *string                 `json:"domain" validate:"omitempty,max=100"`
	SubDomain     *string                 `json:"sub_domain" validate:"omitempty,max=100"`
	Difficulty    *models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Points        *int                    `json:"points" validate:"omitempty,min=0,max=100"`
	Options       []string                `json:"options" validate:"omitempty,max=10,dive,max=500"`
	CorrectAnswer interface{}             `json:"correct_answer"`
	Explanation   *string                 `json:"explanation" validate:"omitempty,max=1000"`
	Tags          []string                `json:"tags" validate:"omitempty,max=10,dive,max=50"`
	Visibility    *models.Visibility      `json:"visibility" validate:"omitempty,visibility"`
}

type TestCreateRequest struct {
	Title        string                  `json:"title" validate:"required,min=1,max=200"`
	Description  *string                 `json:"description" validate:"omitempty,max=1000"`
	Type         string                  `json:"type" validate:"omitempty,max=50"`
	Difficulty   *models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Duration     int                     `json:"duration" validate:"required,min=5,max=300"` // minutes
	PassingScore int                     `json:"passing_score" validate:"min=0,max=100"`
	Visibility   models.Visibility       `json:"visibility" validate:"omitempty,visibility"`
	Settings     *TestSettingsRequest    `json:"settings"`
}

type TestUpdateRequest struct {
	Title        *string                 `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string                 `json:"description" validate:"omitempty,max=1000"`
	Type         *string                 `json:"type" validate:"omitempty,max=50"`
	Difficulty   *models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Duration     *int                    `json:"duration" validate:"omitempty,min=5,max=300"`
	PassingScore *int                    `json:"passing_score" validate:"omitempty,min=0,max=100"`
	Visibility   *models.Visibility      `json:"visibility" validate:"omitempty,visibility"`
	Settings     *TestSettingsRequest    `json:"settings"`
}

type TestSettingsRequest struct {
	ShuffleQuestions    *bool `json:"shuffle_questions"`
	ShuffleOptions      *bool `json:"shuffle_options"`
	ShowResults         *bool `json:"show_results"`
	AttemptsAllowed     *int  `json:"attempts_allowed" validate:"omitempty,min=1,max=10"`
	RequireWebcam       *bool `json:"require_webcam"`
	PreventTabSwitching *bool `json:"prevent_tab_switching"`
	PreventCopyPaste    *bool `json:"prevent_copy_paste"`
	RequireFullScreen   *bool `json:"require_full_screen"`
}

type TestStatusRequest struct {
	Status models.TestStatus `json:"status" validate:"required,oneof=draft published archived"`
}

// TestQuestionRequest attaches an existing question to a test.
type TestQuestionRequest struct {
	QuestionID uint `json:"question_id" validate:"required"`
	Order      int  `json:"order" validate:"min=0"`
	Points     *int `json:"points" validate:"omitempty,min=0,max=100"`
}

type AttemptStartRequest struct {
	TestID uint `json:"test_id" validate:"required"`
}

type AttemptSubmitRequest struct {
	Answers []models.SubmittedAnswer `json:"answers" validate:"dive"`
}

type BillingCreateRequest struct {
	TenantID    string               `json:"tenant_id" validate:"required"`
	Amount      int64                `json:"amount" validate:"required,min=1"` // minor units
	Currency    string               `json:"currency" validate:"required,currency_code"`
	Description string               `json:"description" validate:"omitempty,max=500"`
	DueDate     time.Time            `json:"due_date" validate:"required"`
	Items       []models.BillingItem `json:"items" validate:"omitempty,dive"`
}

type CompanyOnboardRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=200"`
	Email      string `json:"email" validate:"required,email"`
	Industry   string `json:"industry" validate:"omitempty,max=100"`
	AdminName  string `json:"admin_name" validate:"required,min=1,max=200"`
	AdminEmail string `json:"admin_email" validate:"required,email"`
}

// GenerateQuestionsRequest drives AI question generation.
type GenerateQuestionsRequest struct {
	Subject    string                 `json:"subject" validate:"required,min=1,max=200"`
	Type       models.QuestionType    `json:"type" validate:"required,question_type"`
	Difficulty models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Count      int                    `json:"count" validate:"required,min=1,max=20"`
	Context    string                 `json:"context" validate:"omitempty,max=4000"`
}
