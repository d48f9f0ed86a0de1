package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evalforge/assessment-platform/internal/authz"
	"github.com/evalforge/assessment-platform/internal/events"
	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
	"github.com/evalforge/assessment-platform/internal/validator"
)

type testService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewTestService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher) TestService {
	return &testService{
		repo:      repo,
		logger:    logger,
		validator: v,
		publisher: publisher,
	}
}

func (s *testService) Create(ctx context.Context, principal models.Principal, req *CreateTestRequest) (*TestResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, toValidationError(err)
	}
	if !models.RoleAtLeast(principal.Role, models.RoleUser) {
		return nil, NewPermissionError(principal.ID, 0, "test", "create", "candidates cannot create tests")
	}

	test := &models.Test{
		Title:           req.Title,
		Description:     req.Description,
		Type:            req.Type,
		Difficulty:      models.DifficultyMedium,
		DurationMinutes: req.Duration,
		PassingScore:    req.PassingScore,
		Status:          models.TestStatusDraft,
		TenantID:        principal.Tenant(),
		Visibility:      models.VisibilityPrivate,
		CreatedBy:       principal.ID,
		Settings:        defaultTestSettings(req.Settings),
	}
	if req.Difficulty != nil {
		test.Difficulty = *req.Difficulty
	}
	if req.Visibility != "" {
		test.Visibility = req.Visibility
	}

	if err := s.repo.Test().Create(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to create test: %w", err)
	}

	s.logger.Info("test created", "test_id", test.ID, "tenant_id", test.TenantID)
	publishAudit(s.logger, s.publisher, events.Event{
		Type:     "test.created",
		TenantID: test.TenantID,
		ActorID:  principal.ID,
		Data:     map[string]interface{}{"test_id": test.ID, "title": test.Title},
	})

	return s.toResponse(principal, test), nil
}

func (s *testService) GetByID(ctx context.Context, principal models.Principal, id uint) (*TestResponse, error) {
	test, err := s.repo.Test().GetByIDWithDetails(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, "test", id)
	}
	if !authz.CanRead(principal, testResource(test)) {
		return nil, NewPermissionError(principal.ID, id, "test", "read", "outside principal tenant")
	}
	return s.toResponse(principal, test), nil
}

func (s *testService) Update(ctx context.Context, principal models.Principal, id uint, req *UpdateTestRequest) (*TestResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, toValidationError(err)
	}

	test, err := s.repo.Test().GetByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, "test", id)
	}
	if !authz.CanWrite(principal, testResource(test)) {
		return nil, NewPermissionError(principal.ID, id, "test", "update", "outside principal tenant")
	}
	if test.Status == models.TestStatusArchived {
		return nil, NewConflictError("test", "archived tests cannot be modified")
	}

	if req.Title != nil {
		test.Title = *req.Title
	}
	if req.Description != nil {
		test.Description = req.Description
	}
	if req.Type != nil {
		test.Type = *req.Type
	}
	if req.Difficulty != nil {
		test.Difficulty = *req.Difficulty
	}
	if req.Duration != nil {
		test.DurationMinutes = *req.Duration
	}
	if req.PassingScore != nil {
		test.PassingScore = *req.PassingScore
	}
	if req.Visibility != nil {
		test.Visibility = *req.Visibility
	}
	if req.Settings != nil {
		applySettings(&test.Settings, req.Settings)
	}

	if err := s.repo.Test().Update(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to update test: %w", err)
	}

	s.logger.Info("test updated", "test_id", id)
	return s.toResponse(principal, test), nil
}

func (s *testService) Delete(ctx context.Context, principal models.Principal, id uint) error {
	test, err := s.repo.Test().GetByID(ctx, id)
	if err != nil {
		return wrapNotFound(err, "test", id)
	}
	if !authz.CanAccess(principal, testResource(test), authz.ActionDelete) {
		return NewPermissionError(principal.ID, id, "test", "delete", "outside principal tenant")
	}
	if test.Status == models.TestStatusPublished {
		return NewConflictError("test", "published tests must be archived before deletion")
	}

	if err := s.repo.Test().SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}

	s.logger.Info("test deleted", "test_id", id, "tenant_id", test.TenantID)
	publishAudit(s.logger, s.publisher, events.Event{
		Type:     "test.deleted",
		TenantID: test.TenantID,
		ActorID:  principal.ID,
		Data:     map[string]interface{}{"test_id": id},
	})
	return nil
}

func (s *testService) List(ctx context.Context, principal models.Principal, filters repositories.TestFilters) (*TestListResponse, error) {
	tests, total, err := s.repo.Test().List(ctx, principal, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}

	params := filters.List.Normalize(authz.DefaultPageSize, nil)
	resp := &TestListResponse{
		Tests: make([]*TestResponse, 0, len(tests)),
		Total: total,
		Page:  params.Page,
		Size:  params.Limit,
	}
	for _, t := range tests {
		resp.Tests = append(resp.Tests, s.toResponse(principal, t))
	}
	return resp, nil
}

// UpdateStatus moves a test through its lifecycle. The write is
// conditional on the status the caller saw, so two racing transitions
// cannot both win.
func (s *testService) UpdateStatus(ctx context.Context, principal models.Principal, id uint, req *UpdateTestStatusRequest) (*TestResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, toValidationError(err)
	}

	test, err := s.repo.Test().GetByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, "test", id)
	}
	if !authz.CanWrite(principal, testResource(test)) {
		return nil, NewPermissionError(principal.ID, id, "test", "update", "outside principal tenant")
	}

	from, to := test.Status, req.Status
	if !from.CanTransitionTo(to) {
		return nil, NewConflictError("test", fmt.Sprintf("cannot transition from %s to %s", from, to))
	}
	if to == models.TestStatusPublished && test.TotalQuestions == 0 {
		return nil, NewValidationError("questions", "test must have at least one question before publishing", 0)
	}

	updated, err := s.repo.Test().UpdateStatusIf(ctx, id, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to update test status: %w", err)
	}
	if !updated {
		return nil, NewConflictError("test", "status changed concurrently, retry")
	}
	test.Status = to

	s.logger.Info("test status updated", "test_id", id, "from", from, "to", to)
	publishAudit(s.logger, s.publisher, events.Event{
		Type:     "test.status_changed",
		TenantID: test.TenantID,
		ActorID:  principal.ID,
		Data:     map[string]interface{}{"test_id": id, "from": string(from), "to": string(to)},
	})

	return s.toResponse(principal, test), nil
}

func (s *testService) AddQuestion(ctx context.Context, principal models.Principal, testID uint, req *TestQuestionRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return toValidationError(err)
	}

	test, err := s.repo.Test().GetByID(ctx, testID)
	if err != nil {
		return wrapNotFound(err, "test", testID)
	}
	if !authz.CanWrite(principal, testResource(test)) {
		return NewPermissionError(principal.ID, testID, "test", "update", "outside principal tenant")
	}
	if test.Status == models.TestStatusArchived {
		return NewConflictError("test", "archived tests cannot be modified")
	}

	question, err := s.repo.Question().GetByID(ctx, req.QuestionID)
	if err != nil {
		return wrapNotFound(err, "question", req.QuestionID)
	}
	// The question itself must be readable by the test's author: own
	// tenant or public.
	if !authz.CanRead(principal, questionResource(question)) {
		return NewPermissionError(principal.ID, req.QuestionID, "question", "read", "outside principal tenant")
	}

	tq := &models.TestQuestion{
		TestID:     testID,
		QuestionID: req.QuestionID,
		Order:      req.Order,
		Points:     req.Points,
	}
	if err := s.repo.Test().AddQuestion(ctx, tq); err != nil {
		return fmt.Errorf("failed to add question to test: %w", err)
	}
	return nil
}

func (s *testService) RemoveQuestion(ctx context.Context, principal models.Principal, testID, questionID uint) error {
	test, err := s.repo.Test().GetByID(ctx, testID)
	if err != nil {
		return wrapNotFound(err, "test", testID)
	}
	if !authz.CanWrite(principal, testResource(test)) {
		return NewPermissionError(principal.ID, testID, "test", "update", "outside principal tenant")
	}

	if err := s.repo.Test().RemoveQuestion(ctx, testID, questionID); err != nil {
		return wrapNotFound(err, "test question", questionID)
	}
	return nil
}

func (s *testService) ReorderQuestions(ctx context.Context, principal models.Principal, testID uint, req *ReorderQuestionsRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return toValidationError(err)
	}

	test, err := s.repo.Test().GetByID(ctx, testID)
	if err != nil {
		return wrapNotFound(err, "test", testID)
	}
	if !authz.CanWrite(principal, testResource(test)) {
		return NewPermissionError(principal.ID, testID, "test", "update", "outside principal tenant")
	}

	if err := s.repo.Test().ReorderQuestions(ctx, testID, req.QuestionOrders); err != nil {
		return fmt.Errorf("failed to reorder questions: %w", err)
	}
	return nil
}

func (s *testService) Stats(ctx context.Context, principal models.Principal, id uint) (*repositories.TestStats, error) {
	test, err := s.repo.Test().GetByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, "test", id)
	}
	if !authz.CanRead(principal, testResource(test)) {
		return nil, NewPermissionError(principal.ID, id, "test", "read", "outside principal tenant")
	}
	return s.repo.Test().Stats(ctx, id)
}

func (s *testService) toResponse(principal models.Principal, test *models.Test) *TestResponse {
	r := testResource(test)
	return &TestResponse{
		Test:      test,
		CanEdit:   authz.CanWrite(principal, r),
		CanDelete: authz.CanAccess(principal, r, authz.ActionDelete),
	}
}

func testResource(t *models.Test) authz.Resource {
	return authz.Resource{OwnerID: t.CreatedBy, TenantID: t.TenantID, Visibility: t.Visibility}
}

func defaultTestSettings(req *TestSettingsRequest) models.TestSettings {
	settings := models.TestSettings{
		AttemptsAllowed: 1,
		ShowResults:     true,
	}
	if req != nil {
		applySettings(&settings, req)
	}
	return settings
}

func applySettings(settings *models.TestSettings, req *TestSettingsRequest) {
	if req.ShuffleQuestions != nil {
		settings.ShuffleQuestions = *req.ShuffleQuestions
	}
	if req.ShuffleOptions != nil {
		settings.ShuffleOptions = *req.ShuffleOptions
	}
	if req.ShowResults != nil {
		settings.ShowResults = *req.ShowResults
	}
	if req.AttemptsAllowed != nil {
		settings.AttemptsAllowed = *req.AttemptsAllowed
	}
	if req.RequireWebcam != nil {
		settings.RequireWebcam = *req.RequireWebcam
	}
	if req.PreventTabSwitching != nil {
		settings.PreventTabSwitching = *req.PreventTabSwitching
	}
	if req.PreventCopyPaste != nil {
		settings.PreventCopyPaste = *req.PreventCopyPaste
	}
	if req.RequireFullScreen != nil {
		settings.RequireFullScreen = *req.RequireFullScreen
	}
}
