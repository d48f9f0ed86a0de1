package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/evalforge/assessment-platform/internal/authz"
	"github.com/evalforge/assessment-platform/internal/events"
	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
	"github.com/evalforge/assessment-platform/internal/scoring"
	"github.com/evalforge/assessment-platform/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	jobs      JobService
	now       func() time.Time
}

func NewAttemptService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher, jobs JobService) AttemptService {
	return &attemptService{
		repo:      repo,
		logger:    logger,
		validator: v,
		publisher: publisher,
		jobs:      jobs,
		now:       time.Now,
	}
}

// Start opens a new attempt on a published test. The attempt counter is
// checked against the test's attempt allowance before the row is created.
func (s *attemptService) Start(ctx context.Context, principal models.Principal, req *StartAttemptRequest) (*AttemptResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, toValidationError(err)
	}

	test, err := s.repo.Test().GetByIDWithDetails(ctx, req.TestID)
	if err != nil {
		return nil, wrapNotFound(err, "test", req.TestID)
	}
	if !authz.CanRead(principal, testResource(test)) {
		return nil, NewPermissionError(principal.ID, req.TestID, "test", "read", "outside principal tenant")
	}
	if test.Status != models.TestStatusPublished {
		return nil, NewConflictError("attempt", "test is not published")
	}

	count, err := s.repo.Attempt().CountForUser(ctx, req.TestID, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count previous attempts: %w", err)
	}
	if allowed := test.Settings.AttemptsAllowed; allowed > 0 && count >= int64(allowed) {
		return nil, NewConflictError("attempt", fmt.Sprintf("attempt limit of %d reached", allowed))
	}

	attempt := &models.TestAttempt{
		TestID:         test.ID,
		UserID:         principal.ID,
		TenantID:       test.TenantID,
		Status:         models.AttemptInProgress,
		TotalQuestions: test.TotalQuestions,
		StartedAt:      s.now().UTC(),
	}
	if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	// Queue the expiry check for the attempt deadline. Best-effort: the
	// bulk expiry executor also runs on every sweep.
	if s.jobs != nil {
		deadline := attempt.StartedAt.Add(time.Duration(test.DurationMinutes)*time.Minute + models.AttemptSubmitGrace)
		if _, err := s.jobs.Schedule(ctx, JobTypeExpireAttempts, map[string]interface{}{"attempt_id": attempt.ID}, deadline); err != nil {
			s.logger.Warn("failed to schedule attempt expiry", "attempt_id", attempt.ID, "error", err)
		}
	}

	s.logger.Info("attempt started", "attempt_id", attempt.ID, "test_id", test.ID, "user_id", principal.ID)
	publishAudit(s.logger, s.publisher, events.Event{
		Type:     "attempt.started",
		TenantID: test.TenantID,
		ActorID:  principal.ID,
		Data:     map[string]interface{}{"attempt_id": attempt.ID, "test_id": test.ID},
	})

	return &AttemptResponse{
		TestAttempt: attempt,
		Questions:   attemptQuestions(test),
	}, nil
}

// Submit grades the answers and finalizes the attempt exactly once. A
// submission past the deadline finalizes the attempt as expired without
// a score.
func (s *attemptService) Submit(ctx context.Context, principal models.Principal, attemptID uint, req *SubmitAttemptRequest) (*AttemptResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, toValidationError(err)
	}

	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		return nil, wrapNotFound(err, "attempt", attemptID)
	}
	if attempt.UserID != principal.ID {
		return nil, NewPermissionError(principal.ID, attemptID, "attempt", "submit", "attempt belongs to another user")
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, NewConflictError("attempt", "attempt is already finalized")
	}

	submittedAt := s.now().UTC()
	deadline := attempt.StartedAt.Add(time.Duration(attempt.Test.DurationMinutes)*time.Minute + models.AttemptSubmitGrace)

	attempt.Answers = jsonField(req.Answers)
	attempt.SubmittedAt = &submittedAt

	if submittedAt.After(deadline) {
		attempt.Status = models.AttemptExpired
	} else {
		attempt.Status = models.AttemptCompleted
		testQuestions, err := s.repo.Test().GetQuestions(ctx, attempt.TestID)
		if err != nil {
			return nil, fmt.Errorf("failed to load test questions: %w", err)
		}

		result := scoring.Score(toScoringAnswers(req.Answers), toScoringQuestions(testQuestions))
		attempt.CorrectCount = result.CorrectCount
		attempt.TotalQuestions = result.TotalQuestions
		attempt.EarnedPoints = result.EarnedPoints
		attempt.TotalPoints = result.TotalPoints
		attempt.Percentage = result.Percentage
		attempt.Passed = result.Percentage >= attempt.Test.PassingScore
	}

	finalized, err := s.repo.Attempt().FinalizeIf(ctx, attempt)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize attempt: %w", err)
	}
	if !finalized {
		return nil, NewConflictError("attempt", "attempt was already submitted")
	}

	s.logger.Info("attempt submitted",
		"attempt_id", attemptID,
		"status", attempt.Status,
		"percentage", attempt.Percentage,
		"passed", attempt.Passed)
	publishAudit(s.logger, s.publisher, events.Event{
		Type:     "attempt.submitted",
		TenantID: attempt.TenantID,
		ActorID:  principal.ID,
		Data: map[string]interface{}{
			"attempt_id": attemptID,
			"status":     string(attempt.Status),
			"percentage": attempt.Percentage,
			"passed":     attempt.Passed,
		},
	})

	return &AttemptResponse{TestAttempt: attempt}, nil
}

func (s *attemptService) GetByID(ctx context.Context, principal models.Principal, id uint) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, "attempt", id)
	}

	// Owners always see their attempts; tenant staff see attempts on
	// their tests. Attempts are never public.
	if attempt.UserID != principal.ID {
		allowed := principal.IsSuperAdmin() ||
			(attempt.TenantID == principal.Tenant() && models.RoleAtLeast(principal.Role, models.RoleUser))
		if !allowed {
			return nil, NewPermissionError(principal.ID, id, "attempt", "read", "not the attempt owner")
		}
	}

	resp := &AttemptResponse{TestAttempt: attempt}
	if attempt.Status == models.AttemptInProgress {
		test, err := s.repo.Test().GetByIDWithDetails(ctx, attempt.TestID)
		if err == nil {
			resp.Questions = attemptQuestions(test)
		}
	}
	return resp, nil
}

func (s *attemptService) List(ctx context.Context, principal models.Principal, filters repositories.AttemptFilters) (*AttemptListResponse, error) {
	attempts, total, err := s.repo.Attempt().List(ctx, principal, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	params := filters.List.Normalize(authz.DefaultPageSize, nil)
	return &AttemptListResponse{
		Attempts: attempts,
		Total:    total,
		Page:     params.Page,
		Size:     params.Limit,
	}, nil
}

// attemptQuestions builds the candidate-facing question list, shuffled
// when the test settings ask for it. Correct answers never appear here.
func attemptQuestions(test *models.Test) []AttemptQuestion {
	out := make([]AttemptQuestion, 0, len(test.Questions))
	for _, tq := range test.Questions {
		q := AttemptQuestion{
			ID:         tq.QuestionID,
			Type:       tq.Question.Type,
			Text:       tq.Question.Text,
			Options:    stringsFromJSON(tq.Question.Options),
			Points:     tq.Question.Points,
			Difficulty: tq.Question.Difficulty,
			Order:      tq.Order,
		}
		if tq.Points != nil {
			q.Points = *tq.Points
		}
		out = append(out, q)
	}
	if test.Settings.ShuffleQuestions {
		rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	return out
}

func toScoringAnswers(answers []models.SubmittedAnswer) []scoring.Answer {
	out := make([]scoring.Answer, 0, len(answers))
	for _, a := range answers {
		out = append(out, scoring.Answer{QuestionID: a.QuestionID, Value: a.Value})
	}
	return out
}

func toScoringQuestions(testQuestions []*models.TestQuestion) []scoring.Question {
	out := make([]scoring.Question, 0, len(testQuestions))
	for _, tq := range testQuestions {
		q := scoring.Question{ID: tq.QuestionID}
		points := tq.Question.Points
		if tq.Points != nil {
			points = *tq.Points
		}
		q.Points = &points

		if len(tq.Question.CorrectAnswer) > 0 {
			var correct interface{}
			if err := jsonUnmarshal(tq.Question.CorrectAnswer, &correct); err == nil {
				q.Correct = correct
			}
		}
		out = append(out, q)
	}
	return out
}
