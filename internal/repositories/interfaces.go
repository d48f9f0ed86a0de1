package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/evalforge/assessment-platform/internal/authz"
	"github.com/evalforge/assessment-platform/internal/models"
)

// ErrNotFound is returned when an id does not resolve to a row. Wrapped
// errors are recognized by IsNotFoundError.
var ErrNotFound = errors.New("record not found")

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ===== SHARED FILTER STRUCTS =====

type QuestionFilters struct {
	Type       *models.QuestionType    `json:"type"`
	Difficulty *models.DifficultyLevel `json:"difficulty"`
	Domain     *string                 `json:"domain"`
	Tags       []string                `json:"tags"`
	DateFrom   *time.Time              `json:"date_from"`
	DateTo     *time.Time              `json:"date_to"`
	List       authz.ListParams        `json:"-"`
}

type TestFilters struct {
	Status     *models.TestStatus      `json:"status"`
	Difficulty *models.DifficultyLevel `json:"difficulty"`
	Type       *string                 `json:"type"`
	DateFrom   *time.Time              `json:"date_from"`
	DateTo     *time.Time              `json:"date_to"`
	List       authz.ListParams        `json:"-"`
}

type AttemptFilters struct {
	Status   *models.AttemptStatus `json:"status"`
	TestID   *uint                 `json:"test_id"`
	UserID   *string               `json:"user_id"`
	DateFrom *time.Time            `json:"date_from"`
	DateTo   *time.Time            `json:"date_to"`
	List     authz.ListParams      `json:"-"`
}

type BillingFilters struct {
	Status   *models.BillingStatus `json:"status"`
	DateFrom *time.Time            `json:"date_from"`
	DateTo   *time.Time            `json:"date_to"`
	List     authz.ListParams      `json:"-"`
}

type UserFilters struct {
	Role     *models.UserRole `json:"role"`
	TenantID *string          `json:"tenant_id"`
	List     authz.ListParams `json:"-"`
}

// ===== SHARED STATISTICS STRUCTS =====

type QuestionStats struct {
	UsageCount   int     `json:"usage_count"`
	AverageScore float64 `json:"average_score"`
}

type TestStats struct {
	TotalAttempts     int     `json:"total_attempts"`
	CompletedAttempts int     `json:"completed_attempts"`
	AverageScore      float64 `json:"average_score"`
	PassRate          float64 `json:"pass_rate"`
	QuestionCount     int     `json:"question_count"`
	TotalPoints       int     `json:"total_points"`
}

type TenantOverview struct {
	QuestionCount   int64 `json:"question_count"`
	TestCount       int64 `json:"test_count"`
	PublishedTests  int64 `json:"published_tests"`
	AttemptCount    int64 `json:"attempt_count"`
	CandidateCount  int64 `json:"candidate_count"`
	PendingInvoices int64 `json:"pending_invoices"`
}

type RevenueSummary struct {
	Currency    string `json:"currency"`
	PaidTotal   int64  `json:"paid_total"`
	PendingDue  int64  `json:"pending_due"`
	OverdueDue  int64  `json:"overdue_due"`
	InvoiceCount int64 `json:"invoice_count"`
}

// ===== REPOSITORY INTERFACES =====

type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error)
	Update(ctx context.Context, question *models.Question) error
	SoftDelete(ctx context.Context, id uint) error
	List(ctx context.Context, principal models.Principal, filters QuestionFilters) ([]*models.Question, int64, error)
	Stats(ctx context.Context, id uint) (*QuestionStats, error)
}

type TestRepository interface {
	Create(ctx context.Context, test *models.Test) error
	GetByID(ctx context.Context, id uint) (*models.Test, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Test, error)
	Update(ctx context.Context, test *models.Test) error
	SoftDelete(ctx context.Context, id uint) error
	List(ctx context.Context, principal models.Principal, filters TestFilters) ([]*models.Test, int64, error)

	// UpdateStatusIf applies the transition only when the current status
	// still matches, returning false when the conditional write matched no
	// row.
	UpdateStatusIf(ctx context.Context, id uint, from, to models.TestStatus) (bool, error)

	AddQuestion(ctx context.Context, tq *models.TestQuestion) error
	RemoveQuestion(ctx context.Context, testID, questionID uint) error
	GetQuestions(ctx context.Context, testID uint) ([]*models.TestQuestion, error)
	ReorderQuestions(ctx context.Context, testID uint, orders []QuestionOrder) error
	Stats(ctx context.Context, id uint) (*TestStats, error)
}

type QuestionOrder struct {
	QuestionID uint `json:"question_id" validate:"required"`
	Order      int  `json:"order" validate:"min=0"`
}

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.TestAttempt) error
	GetByID(ctx context.Context, id uint) (*models.TestAttempt, error)
	CountForUser(ctx context.Context, testID uint, userID string) (int64, error)

	// FinalizeIf writes the result only while the attempt is still in
	// progress; a second submission matches no row and returns false.
	FinalizeIf(ctx context.Context, attempt *models.TestAttempt) (bool, error)

	List(ctx context.Context, principal models.Principal, filters AttemptFilters) ([]*models.TestAttempt, int64, error)

	// ExpireOverdue marks in-progress attempts whose deadline has passed
	// as expired, returning how many rows changed.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

type BillingRepository interface {
	Create(ctx context.Context, record *models.BillingRecord) error
	GetByID(ctx context.Context, id uint) (*models.BillingRecord, error)
	Update(ctx context.Context, record *models.BillingRecord) error
	List(ctx context.Context, principal models.Principal, filters BillingFilters) ([]*models.BillingRecord, int64, error)

	// MarkPaidIf transitions pending/overdue -> paid with a conditional
	// write; returns false when the record was not in a payable state.
	MarkPaidIf(ctx context.Context, id uint, paidDate time.Time) (bool, error)

	Revenue(ctx context.Context, tenantID string) ([]*RevenueSummary, error)

	// MarkOverdueDue flips pending invoices past their due date to
	// overdue, returning how many rows changed.
	MarkOverdueDue(ctx context.Context, now time.Time) (int64, error)
}

type JobRepository interface {
	Create(ctx context.Context, job *models.ScheduledJob) error
	GetByID(ctx context.Context, id uint) (*models.ScheduledJob, error)

	// FetchDue returns up to limit pending jobs with scheduled_at <= now.
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledJob, error)

	// ClaimIf moves pending -> processing conditionally so two overlapping
	// sweeps never process the same job.
	ClaimIf(ctx context.Context, id uint) (bool, error)

	MarkDone(ctx context.Context, id uint) error
	MarkFailed(ctx context.Context, id uint, jobErr string) error

	// RequeueIf moves failed -> pending; manual operation, see job service.
	RequeueIf(ctx context.Context, id uint) (bool, error)
}

type CompanyRepository interface {
	Create(ctx context.Context, company *models.Company) error
	GetByID(ctx context.Context, id string) (*models.Company, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, company *models.Company) error
	List(ctx context.Context, principal models.Principal, params authz.ListParams) ([]*models.Company, int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)
}

type InviteRepository interface {
	Create(ctx context.Context, invite *models.InviteToken) error
	GetByToken(ctx context.Context, token string) (*models.InviteToken, error)

	// MarkUsedIf consumes the token only when still unused and unexpired.
	MarkUsedIf(ctx context.Context, id uint, usedAt time.Time) (bool, error)
}

type DashboardRepository interface {
	TenantOverview(ctx context.Context, tenantID string) (*TenantOverview, error)
	AttemptAverages(ctx context.Context, tenantID string) (float64, float64, error) // avg percentage, pass rate
}

// Repository aggregates all repositories behind one dependency.
type Repository interface {
	Question() QuestionRepository
	Test() TestRepository
	Attempt() AttemptRepository
	Billing() BillingRepository
	Job() JobRepository
	Company() CompanyRepository
	User() UserRepository
	Invite() InviteRepository
	Dashboard() DashboardRepository

	WithTransaction(ctx context.Context, fn func(Repository) error) error
	Ping(ctx context.Context) error
	Close() error
}
