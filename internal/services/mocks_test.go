package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Mock repositories embed the interface so unimplemented methods panic
// loudly when a test exercises a path it did not stub.

type mockQuestionRepo struct {
	repositories.QuestionRepository
	getByID func(ctx context.Context, id uint) (*models.Question, error)
	create  func(ctx context.Context, q *models.Question) error
	update  func(ctx context.Context, q *models.Question) error
}

func (m *mockQuestionRepo) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	return m.getByID(ctx, id)
}
func (m *mockQuestionRepo) Create(ctx context.Context, q *models.Question) error {
	return m.create(ctx, q)
}
func (m *mockQuestionRepo) Update(ctx context.Context, q *models.Question) error {
	return m.update(ctx, q)
}

type mockTestRepo struct {
	repositories.TestRepository
	getByID            func(ctx context.Context, id uint) (*models.Test, error)
	getByIDWithDetails func(ctx context.Context, id uint) (*models.Test, error)
	updateStatusIf     func(ctx context.Context, id uint, from, to models.TestStatus) (bool, error)
	getQuestions       func(ctx context.Context, testID uint) ([]*models.TestQuestion, error)
}

func (m *mockTestRepo) GetByID(ctx context.Context, id uint) (*models.Test, error) {
	return m.getByID(ctx, id)
}
func (m *mockTestRepo) GetByIDWithDetails(ctx context.Context, id uint) (*models.Test, error) {
	return m.getByIDWithDetails(ctx, id)
}
func (m *mockTestRepo) UpdateStatusIf(ctx context.Context, id uint, from, to models.TestStatus) (bool, error) {
	return m.updateStatusIf(ctx, id, from, to)
}
func (m *mockTestRepo) GetQuestions(ctx context.Context, testID uint) ([]*models.TestQuestion, error) {
	return m.getQuestions(ctx, testID)
}

type mockAttemptRepo struct {
	repositories.AttemptRepository
	create       func(ctx context.Context, a *models.TestAttempt) error
	getByID      func(ctx context.Context, id uint) (*models.TestAttempt, error)
	countForUser func(ctx context.Context, testID uint, userID string) (int64, error)
	finalizeIf   func(ctx context.Context, a *models.TestAttempt) (bool, error)
}

func (m *mockAttemptRepo) Create(ctx context.Context, a *models.TestAttempt) error {
	return m.create(ctx, a)
}
func (m *mockAttemptRepo) GetByID(ctx context.Context, id uint) (*models.TestAttempt, error) {
	return m.getByID(ctx, id)
}
func (m *mockAttemptRepo) CountForUser(ctx context.Context, testID uint, userID string) (int64, error) {
	return m.countForUser(ctx, testID, userID)
}
func (m *mockAttemptRepo) FinalizeIf(ctx context.Context, a *models.TestAttempt) (bool, error) {
	return m.finalizeIf(ctx, a)
}

type mockBillingRepo struct {
	repositories.BillingRepository
	create     func(ctx context.Context, r *models.BillingRecord) error
	getByID    func(ctx context.Context, id uint) (*models.BillingRecord, error)
	markPaidIf func(ctx context.Context, id uint, paidDate time.Time) (bool, error)
}

func (m *mockBillingRepo) Create(ctx context.Context, r *models.BillingRecord) error {
	return m.create(ctx, r)
}
func (m *mockBillingRepo) GetByID(ctx context.Context, id uint) (*models.BillingRecord, error) {
	return m.getByID(ctx, id)
}
func (m *mockBillingRepo) MarkPaidIf(ctx context.Context, id uint, paidDate time.Time) (bool, error) {
	return m.markPaidIf(ctx, id, paidDate)
}

type mockJobRepo struct {
	repositories.JobRepository
	fetchDue   func(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledJob, error)
	claimIf    func(ctx context.Context, id uint) (bool, error)
	markDone   func(ctx context.Context, id uint) error
	markFailed func(ctx context.Context, id uint, jobErr string) error
	requeueIf  func(ctx context.Context, id uint) (bool, error)
	getByID    func(ctx context.Context, id uint) (*models.ScheduledJob, error)
}

func (m *mockJobRepo) FetchDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledJob, error) {
	return m.fetchDue(ctx, now, limit)
}
func (m *mockJobRepo) ClaimIf(ctx context.Context, id uint) (bool, error) {
	return m.claimIf(ctx, id)
}
func (m *mockJobRepo) MarkDone(ctx context.Context, id uint) error {
	return m.markDone(ctx, id)
}
func (m *mockJobRepo) MarkFailed(ctx context.Context, id uint, jobErr string) error {
	return m.markFailed(ctx, id, jobErr)
}
func (m *mockJobRepo) RequeueIf(ctx context.Context, id uint) (bool, error) {
	return m.requeueIf(ctx, id)
}
func (m *mockJobRepo) GetByID(ctx context.Context, id uint) (*models.ScheduledJob, error) {
	return m.getByID(ctx, id)
}

type mockCompanyRepo struct {
	repositories.CompanyRepository
	create        func(ctx context.Context, c *models.Company) error
	existsByEmail func(ctx context.Context, email string) (bool, error)
}

func (m *mockCompanyRepo) Create(ctx context.Context, c *models.Company) error {
	return m.create(ctx, c)
}
func (m *mockCompanyRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.existsByEmail(ctx, email)
}

type mockUserRepo struct {
	repositories.UserRepository
	create        func(ctx context.Context, u *models.User) error
	existsByEmail func(ctx context.Context, email string) (bool, error)
	getByEmail    func(ctx context.Context, email string) (*models.User, error)
	update        func(ctx context.Context, u *models.User) error
}

func (m *mockUserRepo) Create(ctx context.Context, u *models.User) error {
	return m.create(ctx, u)
}
func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.existsByEmail(ctx, email)
}
func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.getByEmail(ctx, email)
}
func (m *mockUserRepo) Update(ctx context.Context, u *models.User) error {
	return m.update(ctx, u)
}

type mockInviteRepo struct {
	repositories.InviteRepository
	create     func(ctx context.Context, i *models.InviteToken) error
	getByToken func(ctx context.Context, token string) (*models.InviteToken, error)
	markUsedIf func(ctx context.Context, id uint, usedAt time.Time) (bool, error)
}

func (m *mockInviteRepo) Create(ctx context.Context, i *models.InviteToken) error {
	return m.create(ctx, i)
}
func (m *mockInviteRepo) GetByToken(ctx context.Context, token string) (*models.InviteToken, error) {
	return m.getByToken(ctx, token)
}
func (m *mockInviteRepo) MarkUsedIf(ctx context.Context, id uint, usedAt time.Time) (bool, error) {
	return m.markUsedIf(ctx, id, usedAt)
}

// mockRepository satisfies repositories.Repository for service tests.
type mockRepository struct {
	question *mockQuestionRepo
	test     *mockTestRepo
	attempt  *mockAttemptRepo
	billing  *mockBillingRepo
	job      *mockJobRepo
	company  *mockCompanyRepo
	user     *mockUserRepo
	invite   *mockInviteRepo
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		question: &mockQuestionRepo{},
		test:     &mockTestRepo{},
		attempt:  &mockAttemptRepo{},
		billing:  &mockBillingRepo{},
		job:      &mockJobRepo{},
		company:  &mockCompanyRepo{},
		user:     &mockUserRepo{},
		invite:   &mockInviteRepo{},
	}
}

func (m *mockRepository) Question() repositories.QuestionRepository   { return m.question }
func (m *mockRepository) Test() repositories.TestRepository           { return m.test }
func (m *mockRepository) Attempt() repositories.AttemptRepository     { return m.attempt }
func (m *mockRepository) Billing() repositories.BillingRepository     { return m.billing }
func (m *mockRepository) Job() repositories.JobRepository             { return m.job }
func (m *mockRepository) Company() repositories.CompanyRepository     { return m.company }
func (m *mockRepository) User() repositories.UserRepository           { return m.user }
func (m *mockRepository) Invite() repositories.InviteRepository       { return m.invite }
func (m *mockRepository) Dashboard() repositories.DashboardRepository { return nil }

func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}
func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }
