package services

import (
	"context"
	"time"

	"github.com/evalforge/assessment-platform/internal/authz"
	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
	"github.com/evalforge/assessment-platform/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Request shapes live next to the validation rules.
type CreateQuestionRequest = validator.QuestionCreateRequest
type UpdateQuestionRequest = validator.QuestionUpdateRequest
type CreateTestRequest = validator.TestCreateRequest
type UpdateTestRequest = validator.TestUpdateRequest
type TestSettingsRequest = validator.TestSettingsRequest
type UpdateTestStatusRequest = validator.TestStatusRequest
type TestQuestionRequest = validator.TestQuestionRequest
type StartAttemptRequest = validator.AttemptStartRequest
type SubmitAttemptRequest = validator.AttemptSubmitRequest
type CreateBillingRequest = validator.BillingCreateRequest
type OnboardCompanyRequest = validator.CompanyOnboardRequest
type GenerateQuestionsRequest = validator.GenerateQuestionsRequest

type QuestionResponse struct {
	*models.Question
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

type QuestionListResponse struct {
	Questions []*QuestionResponse `json:"questions"`
	Total     int64               `json:"total"`
	Page      int                 `json:"page"`
	Size      int                 `json:"size"`
}

type TestResponse struct {
	*models.Test
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

type TestListResponse struct {
	Tests []*TestResponse `json:"tests"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}

type ReorderQuestionsRequest struct {
	QuestionOrders []repositories.QuestionOrder `json:"question_orders" validate:"required,dive"`
}

// AttemptQuestion is the candidate-facing view of a question. Correct
// answers and explanations never leave the server during an attempt.
type AttemptQuestion struct {
	ID         uint                   `json:"id"`
	Type       models.QuestionType    `json:"type"`
	Text       string                 `json:"text"`
	Options    []string               `json:"options,omitempty"`
	Points     int                    `json:"points"`
	Difficulty models.DifficultyLevel `json:"difficulty"`
	Order      int                    `json:"order"`
}

type AttemptResponse struct {
	*models.TestAttempt
	Questions []AttemptQuestion `json:"questions,omitempty"`
}

type AttemptListResponse struct {
	Attempts []*models.TestAttempt `json:"attempts"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	Size     int                   `json:"size"`
}

type BillingListResponse struct {
	Records []*models.BillingRecord `json:"records"`
	Total   int64                   `json:"total"`
	Page    int                     `json:"page"`
	Size    int                     `json:"size"`
}

// OnboardCompanyResponse carries the generated credentials exactly once;
// they are never persisted in plaintext or returned again.
type OnboardCompanyResponse struct {
	Company           *models.Company `json:"company"`
	AdminUserID       string          `json:"admin_user_id"`
	AdminEmail        string          `json:"admin_email"`
	TemporaryPassword string          `json:"temporary_password"`
	InviteToken       string          `json:"invite_token"`
	InviteExpiresAt   time.Time       `json:"invite_expires_at"`
	EmailSent         bool            `json:"email_sent"`
}

type CompanyListResponse struct {
	Companies []*models.Company `json:"companies"`
	Total     int64             `json:"total"`
	Page      int               `json:"page"`
	Size      int               `json:"size"`
}

type UserListResponse struct {
	Users []*models.User `json:"users"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

// GeneratedQuestion is one AI-produced draft question. Drafts are not
// persisted until the caller creates them through the question service.
type GeneratedQuestion struct {
	Type          models.QuestionType    `json:"type"`
	Text          string                 `json:"text"`
	Options       []string               `json:"options,omitempty"`
	CorrectAnswer interface{}            `json:"correct_answer"`
	Explanation   string                 `json:"explanation,omitempty"`
	Difficulty    models.DifficultyLevel `json:"difficulty"`
}

type GenerateQuestionsResponse struct {
	Questions []GeneratedQuestion `json:"questions"`
	Fallback  bool                `json:"fallback"`
	Model     string              `json:"model,omitempty"`
}

// SweepResult summarizes one scheduler pass.
type SweepResult struct {
	Claimed   int `json:"claimed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

type DashboardOverviewResponse struct {
	*repositories.TenantOverview
	AverageScore float64                        `json:"average_score"`
	PassRate     float64                        `json:"pass_rate"`
	Revenue      []*repositories.RevenueSummary `json:"revenue,omitempty"`
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult reports a per-row outcome; a bad row never aborts the
// rest of the file.
type ImportResult struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

// ===== SERVICE INTERFACES =====

type QuestionService interface {
	Create(ctx context.Context, principal models.Principal, req *CreateQuestionRequest) (*QuestionResponse, error)
	GetByID(ctx context.Context, principal models.Principal, id uint) (*QuestionResponse, error)
	Update(ctx context.Context, principal models.Principal, id uint, req *UpdateQuestionRequest) (*QuestionResponse, error)
	Delete(ctx context.Context, principal models.Principal, id uint) error
	List(ctx context.Context, principal models.Principal, filters repositories.QuestionFilters) (*QuestionListResponse, error)
	Stats(ctx context.Context, principal models.Principal, id uint) (*repositories.QuestionStats, error)
}

type TestService interface {
	Create(ctx context.Context, principal models.Principal, req *CreateTestRequest) (*TestResponse, error)
	GetByID(ctx context.Context, principal models.Principal, id uint) (*TestResponse, error)
	Update(ctx context.Context, principal models.Principal, id uint, req *UpdateTestRequest) (*TestResponse, error)
	Delete(ctx context.Context, principal models.Principal, id uint) error
	List(ctx context.Context, principal models.Principal, filters repositories.TestFilters) (*TestListResponse, error)

	// UpdateStatus enforces the draft/published/archived transition rules.
	UpdateStatus(ctx context.Context, principal models.Principal, id uint, req *UpdateTestStatusRequest) (*TestResponse, error)

	AddQuestion(ctx context.Context, principal models.Principal, testID uint, req *TestQuestionRequest) error
	RemoveQuestion(ctx context.Context, principal models.Principal, testID, questionID uint) error
	ReorderQuestions(ctx context.Context, principal models.Principal, testID uint, req *ReorderQuestionsRequest) error
	Stats(ctx context.Context, principal models.Principal, id uint) (*repositories.TestStats, error)
}

type AttemptService interface {
	Start(ctx context.Context, principal models.Principal, req *StartAttemptRequest) (*AttemptResponse, error)
	Submit(ctx context.Context, principal models.Principal, attemptID uint, req *SubmitAttemptRequest) (*AttemptResponse, error)
	GetByID(ctx context.Context, principal models.Principal, id uint) (*AttemptResponse, error)
	List(ctx context.Context, principal models.Principal, filters repositories.AttemptFilters) (*AttemptListResponse, error)
}

type BillingService interface {
	Create(ctx context.Context, principal models.Principal, req *CreateBillingRequest) (*models.BillingRecord, error)
	GetByID(ctx context.Context, principal models.Principal, id uint) (*models.BillingRecord, error)
	List(ctx context.Context, principal models.Principal, filters repositories.BillingFilters) (*BillingListResponse, error)

	// Pay transitions pending/overdue -> paid exactly once.
	Pay(ctx context.Context, principal models.Principal, id uint) (*models.BillingRecord, error)

	Revenue(ctx context.Context, principal models.Principal) ([]*repositories.RevenueSummary, error)
}

type CompanyService interface {
	Onboard(ctx context.Context, principal models.Principal, req *OnboardCompanyRequest) (*OnboardCompanyResponse, error)
	GetByID(ctx context.Context, principal models.Principal, id string) (*models.Company, error)
	List(ctx context.Context, principal models.Principal, params authz.ListParams) (*CompanyListResponse, error)
	ListUsers(ctx context.Context, principal models.Principal, filters repositories.UserFilters) (*UserListResponse, error)

	// RedeemInvite consumes an invite token once and activates the user.
	RedeemInvite(ctx context.Context, token string) (*models.User, error)
}

type AIService interface {
	GenerateQuestions(ctx context.Context, principal models.Principal, req *GenerateQuestionsRequest) (*GenerateQuestionsResponse, error)
}

type JobService interface {
	Schedule(ctx context.Context, jobType string, payload map[string]interface{}, runAt time.Time) (*models.ScheduledJob, error)

	// Sweep claims due jobs and executes them; one failing job never stops
	// the batch.
	Sweep(ctx context.Context) (*SweepResult, error)

	// Requeue moves a failed job back to pending. Manual, super_admin only.
	Requeue(ctx context.Context, principal models.Principal, id uint) (*models.ScheduledJob, error)

	GetByID(ctx context.Context, principal models.Principal, id uint) (*models.ScheduledJob, error)
}

type DashboardService interface {
	Overview(ctx context.Context, principal models.Principal) (*DashboardOverviewResponse, error)
}

type ImportExportService interface {
	// ImportQuestions reads an XLSX workbook and creates questions row by
	// row, accumulating per-row errors.
	ImportQuestions(ctx context.Context, principal models.Principal, filePath string) (*ImportResult, error)

	// ExportQuestions writes the principal's visible questions to an XLSX
	// workbook at destPath.
	ExportQuestions(ctx context.Context, principal models.Principal, filters repositories.QuestionFilters, destPath string) error
}

// ServiceManager wires every service behind a single dependency for the
// handler layer.
type ServiceManager interface {
	Question() QuestionService
	Test() TestService
	Attempt() AttemptService
	Billing() BillingService
	Company() CompanyService
	AI() AIService
	Job() JobService
	Dashboard() DashboardService
	ImportExport() ImportExportService

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	HealthCheck(ctx context.Context) error
}
