package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/validator"
)

func newAttemptServiceForTest(repo *mockRepository, now time.Time) *attemptService {
	svc := NewAttemptService(repo, testLogger(), validator.New(), nil, nil).(*attemptService)
	svc.now = func() time.Time { return now }
	return svc
}

func candidatePrincipal(id, tenant string) models.Principal {
	return models.Principal{ID: id, Role: models.RoleCandidate, TenantID: tenant}
}

func publishedTest(id uint, attemptsAllowed int) *models.Test {
	return &models.Test{
		ID:              id,
		Status:          models.TestStatusPublished,
		TenantID:        "tenant-1",
		Visibility:      models.VisibilityPrivate,
		DurationMinutes: 30,
		PassingScore:    60,
		TotalQuestions:  2,
		Settings:        models.TestSettings{AttemptsAllowed: attemptsAllowed},
	}
}

func intPtr(v int) *int { return &v }

func scoringQuestionsFixture() []*models.TestQuestion {
	return []*models.TestQuestion{
		{
			TestID: 1, QuestionID: 10, Order: 0,
			Question: models.Question{ID: 10, Type: models.MultipleChoice, Points: 5, CorrectAnswer: jsonField("B")},
		},
		{
			TestID: 1, QuestionID: 11, Order: 1, Points: intPtr(10),
			Question: models.Question{ID: 11, Type: models.TrueFalse, Points: 1, CorrectAnswer: jsonField("true")},
		},
	}
}

func TestStartAttempt_LimitReached(t *testing.T) {
	repo := newMockRepository()
	repo.test.getByIDWithDetails = func(ctx context.Context, id uint) (*models.Test, error) {
		return publishedTest(id, 2), nil
	}
	repo.attempt.countForUser = func(ctx context.Context, testID uint, userID string) (int64, error) {
		return 2, nil
	}

	svc := newAttemptServiceForTest(repo, time.Now())
	_, err := svc.Start(context.Background(), candidatePrincipal("user-1", "tenant-1"), &StartAttemptRequest{TestID: 1})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("got error %v, want conflict", err)
	}
}

func TestStartAttempt_UnpublishedTest(t *testing.T) {
	repo := newMockRepository()
	repo.test.getByIDWithDetails = func(ctx context.Context, id uint) (*models.Test, error) {
		test := publishedTest(id, 1)
		test.Status = models.TestStatusDraft
		return test, nil
	}

	svc := newAttemptServiceForTest(repo, time.Now())
	_, err := svc.Start(context.Background(), candidatePrincipal("user-1", "tenant-1"), &StartAttemptRequest{TestID: 1})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("got error %v, want conflict", err)
	}
}

func TestSubmitAttempt_Scores(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	repo.attempt.getByID = func(ctx context.Context, id uint) (*models.TestAttempt, error) {
		return &models.TestAttempt{
			ID: id, TestID: 1, UserID: "user-1", TenantID: "tenant-1",
			Status: models.AttemptInProgress, StartedAt: started,
			Test: *publishedTest(1, 1),
		}, nil
	}
	repo.test.getQuestions = func(ctx context.Context, testID uint) ([]*models.TestQuestion, error) {
		return scoringQuestionsFixture(), nil
	}
	var finalized *models.TestAttempt
	repo.attempt.finalizeIf = func(ctx context.Context, a *models.TestAttempt) (bool, error) {
		finalized = a
		return true, nil
	}

	svc := newAttemptServiceForTest(repo, started.Add(10*time.Minute))
	resp, err := svc.Submit(context.Background(), candidatePrincipal("user-1", "tenant-1"), 1, &SubmitAttemptRequest{
		Answers: []models.SubmittedAnswer{
			{QuestionID: 10, Value: "B"},    // correct, 5 points
			{QuestionID: 11, Value: "false"}, // wrong
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if finalized == nil {
		t.Fatal("attempt was not finalized")
	}

	if resp.Status != models.AttemptCompleted {
		t.Errorf("status = %s, want completed", resp.Status)
	}
	if resp.CorrectCount != 1 || resp.EarnedPoints != 5 || resp.TotalPoints != 15 {
		t.Errorf("score = %d correct, %d/%d points, want 1 correct, 5/15",
			resp.CorrectCount, resp.EarnedPoints, resp.TotalPoints)
	}
	if resp.Percentage != 33 {
		t.Errorf("percentage = %d, want 33", resp.Percentage)
	}
	if resp.Passed {
		t.Error("attempt passed, want failed against passing score 60")
	}
}

func TestSubmitAttempt_PastDeadlineExpires(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	repo.attempt.getByID = func(ctx context.Context, id uint) (*models.TestAttempt, error) {
		return &models.TestAttempt{
			ID: id, TestID: 1, UserID: "user-1", TenantID: "tenant-1",
			Status: models.AttemptInProgress, StartedAt: started,
			Test: *publishedTest(1, 1),
		}, nil
	}
	repo.attempt.finalizeIf = func(ctx context.Context, a *models.TestAttempt) (bool, error) {
		return true, nil
	}

	// 30 minute duration plus grace, submitted an hour later.
	svc := newAttemptServiceForTest(repo, started.Add(time.Hour))
	resp, err := svc.Submit(context.Background(), candidatePrincipal("user-1", "tenant-1"), 1, &SubmitAttemptRequest{
		Answers: []models.SubmittedAnswer{{QuestionID: 10, Value: "B"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != models.AttemptExpired {
		t.Errorf("status = %s, want expired", resp.Status)
	}
	if resp.EarnedPoints != 0 || resp.Passed {
		t.Error("expired attempt must not carry a score")
	}
}

// A submission inside the grace window past the raw duration deadline
// still scores. The bulk expiry sweep honors the same window through
// models.AttemptSubmitGrace, so a sweep can never beat a submission
// that this path would accept.
func TestSubmitAttempt_WithinGraceStillScores(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	repo.attempt.getByID = func(ctx context.Context, id uint) (*models.TestAttempt, error) {
		return &models.TestAttempt{
			ID: id, TestID: 1, UserID: "user-1", TenantID: "tenant-1",
			Status: models.AttemptInProgress, StartedAt: started,
			Test: *publishedTest(1, 1),
		}, nil
	}
	repo.test.getQuestions = func(ctx context.Context, testID uint) ([]*models.TestQuestion, error) {
		return scoringQuestionsFixture(), nil
	}
	repo.attempt.finalizeIf = func(ctx context.Context, a *models.TestAttempt) (bool, error) {
		return true, nil
	}

	// One second before the grace window closes on the 30 minute test.
	submitted := started.Add(30*time.Minute + models.AttemptSubmitGrace - time.Second)
	svc := newAttemptServiceForTest(repo, submitted)
	resp, err := svc.Submit(context.Background(), candidatePrincipal("user-1", "tenant-1"), 1, &SubmitAttemptRequest{
		Answers: []models.SubmittedAnswer{{QuestionID: 10, Value: "B"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != models.AttemptCompleted {
		t.Errorf("status = %s, want completed inside the grace window", resp.Status)
	}
	if resp.EarnedPoints != 5 {
		t.Errorf("earned points = %d, want 5", resp.EarnedPoints)
	}
}

func TestSubmitAttempt_DoubleSubmit(t *testing.T) {
	started := time.Now().UTC()

	repo := newMockRepository()
	repo.attempt.getByID = func(ctx context.Context, id uint) (*models.TestAttempt, error) {
		return &models.TestAttempt{
			ID: id, TestID: 1, UserID: "user-1", TenantID: "tenant-1",
			Status: models.AttemptInProgress, StartedAt: started,
			Test: *publishedTest(1, 1),
		}, nil
	}
	repo.test.getQuestions = func(ctx context.Context, testID uint) ([]*models.TestQuestion, error) {
		return scoringQuestionsFixture(), nil
	}
	repo.attempt.finalizeIf = func(ctx context.Context, a *models.TestAttempt) (bool, error) {
		return false, nil // the other submission won
	}

	svc := newAttemptServiceForTest(repo, started.Add(time.Minute))
	_, err := svc.Submit(context.Background(), candidatePrincipal("user-1", "tenant-1"), 1, &SubmitAttemptRequest{})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("got error %v, want conflict", err)
	}
}

func TestSubmitAttempt_NotOwner(t *testing.T) {
	repo := newMockRepository()
	repo.attempt.getByID = func(ctx context.Context, id uint) (*models.TestAttempt, error) {
		return &models.TestAttempt{ID: id, UserID: "user-1", Status: models.AttemptInProgress}, nil
	}

	svc := newAttemptServiceForTest(repo, time.Now())
	_, err := svc.Submit(context.Background(), candidatePrincipal("user-2", "tenant-1"), 1, &SubmitAttemptRequest{})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("got error %v, want forbidden", err)
	}
}
