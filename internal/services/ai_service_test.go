package services

import (
	"context"
	"errors"
	"testing"

	"github.com/evalforge/assessment-platform/internal/events"
	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/validator"
)

type stubCompletionClient struct {
	response string
	err      error
	calls    int
}

func (c *stubCompletionClient) Complete(ctx context.Context, system, user string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

func (c *stubCompletionClient) Model() string { return "stub-model" }

func userPrincipal(id, tenant string) models.Principal {
	return models.Principal{ID: id, Role: models.RoleUser, TenantID: tenant}
}

func generateRequest(count int) *GenerateQuestionsRequest {
	return &GenerateQuestionsRequest{
		Subject: "Go concurrency",
		Type:    models.MultipleChoice,
		Count:   count,
	}
}

func TestGenerateQuestions_NoClientFallsBack(t *testing.T) {
	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewAIService(testLogger(), validator.New(), publisher, nil)

	resp, err := svc.GenerateQuestions(context.Background(), userPrincipal("u1", "tenant-1"), generateRequest(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Fallback {
		t.Error("fallback flag not set")
	}
	if len(resp.Questions) != 3 {
		t.Fatalf("got %d questions, want 3", len(resp.Questions))
	}
	for i, q := range resp.Questions {
		if q.Type != models.MultipleChoice {
			t.Errorf("question %d type = %s, want multiple_choice", i, q.Type)
		}
		if len(q.Options) == 0 || q.CorrectAnswer == nil {
			t.Errorf("question %d placeholder is incomplete: %+v", i, q)
		}
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 {
		t.Fatalf("got %d audit events, want 1", len(published))
	}
	if published[0].Data["fallback"] != true {
		t.Error("audit event does not record the fallback")
	}
}

func TestGenerateQuestions_UpstreamErrorFallsBack(t *testing.T) {
	client := &stubCompletionClient{err: errors.New("rate limited")}
	svc := NewAIService(testLogger(), validator.New(), nil, client)

	resp, err := svc.GenerateQuestions(context.Background(), userPrincipal("u1", "tenant-1"), generateRequest(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Fallback {
		t.Error("fallback flag not set after upstream error")
	}
	if client.calls != 1 {
		t.Errorf("client called %d times, want exactly 1", client.calls)
	}
	if len(resp.Questions) != 2 {
		t.Errorf("got %d questions, want 2", len(resp.Questions))
	}
}

func TestGenerateQuestions_ParsesModelOutput(t *testing.T) {
	client := &stubCompletionClient{response: "```json\n[" +
		`{"text":"What does a buffered channel do?","options":["Blocks always","Queues up to capacity","Drops values","Panics"],"correct_answer":"Queues up to capacity","explanation":"Sends block only when full."}` +
		"\n]```"}
	svc := NewAIService(testLogger(), validator.New(), nil, client)

	resp, err := svc.GenerateQuestions(context.Background(), userPrincipal("u1", "tenant-1"), generateRequest(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Fallback {
		t.Error("fallback flag set on a successful round-trip")
	}
	if resp.Model != "stub-model" {
		t.Errorf("model = %q, want stub-model", resp.Model)
	}
	if len(resp.Questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(resp.Questions))
	}
	q := resp.Questions[0]
	if q.Text != "What does a buffered channel do?" {
		t.Errorf("unexpected text %q", q.Text)
	}
	if q.Type != models.MultipleChoice || q.Difficulty != models.DifficultyMedium {
		t.Errorf("type/difficulty not normalized: %s/%s", q.Type, q.Difficulty)
	}
}

// The caller always receives the requested count, even when the model
// returns fewer questions than asked.
func TestGenerateQuestions_ShortResultToppedUp(t *testing.T) {
	client := &stubCompletionClient{response: `[{"text":"What closes a channel?","options":["close","stop","end","kill"],"correct_answer":"close"}]`}
	svc := NewAIService(testLogger(), validator.New(), nil, client)

	resp, err := svc.GenerateQuestions(context.Background(), userPrincipal("u1", "tenant-1"), generateRequest(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Fallback {
		t.Error("fallback flag set when the model answered")
	}
	if len(resp.Questions) != 3 {
		t.Fatalf("got %d questions, want 3", len(resp.Questions))
	}
	if resp.Questions[0].Text != "What closes a channel?" {
		t.Errorf("model output lost: first question is %q", resp.Questions[0].Text)
	}
	for i, q := range resp.Questions[1:] {
		if q.Type != models.MultipleChoice || len(q.Options) == 0 || q.CorrectAnswer == nil {
			t.Errorf("topped-up question %d is incomplete: %+v", i+1, q)
		}
	}
}

func TestGenerateQuestions_UnparseableOutputFallsBack(t *testing.T) {
	client := &stubCompletionClient{response: "Sure! Here are some questions:\n1. What is a goroutine?"}
	svc := NewAIService(testLogger(), validator.New(), nil, client)

	resp, err := svc.GenerateQuestions(context.Background(), userPrincipal("u1", "tenant-1"), generateRequest(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Fallback {
		t.Error("fallback flag not set for unparseable output")
	}
	if client.calls != 1 {
		t.Errorf("client called %d times, want exactly 1 (no retries)", client.calls)
	}
}

func TestGenerateQuestions_CandidateDenied(t *testing.T) {
	svc := NewAIService(testLogger(), validator.New(), nil, nil)
	_, err := svc.GenerateQuestions(context.Background(), candidatePrincipal("c1", "tenant-1"), generateRequest(1))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("got error %v, want forbidden", err)
	}
}

// Audit failures must not fail generation.
func TestGenerateQuestions_AuditFailureIsSwallowed(t *testing.T) {
	publisher := events.NewMockEventPublisher(testLogger())
	publisher.FailWith = errors.New("broker down")
	svc := NewAIService(testLogger(), validator.New(), publisher, nil)

	resp, err := svc.GenerateQuestions(context.Background(), userPrincipal("u1", "tenant-1"), generateRequest(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Questions) != 1 {
		t.Errorf("got %d questions, want 1", len(resp.Questions))
	}
}
