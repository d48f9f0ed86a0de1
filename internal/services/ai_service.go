package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/evalforge/assessment-platform/internal/events"
	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/validator"
)

const generationSystemPrompt = `You are an assessment author. Produce exam questions as a JSON array.
Each element: {"text": string, "options": [string] (multiple_choice only), "correct_answer": string or [string], "explanation": string}.
Return only the JSON array, no prose.`

type aiService struct {
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	client    CompletionClient
}

// NewAIService builds the question generation service. A nil client
// disables upstream calls: every request is served from the
// deterministic fallback generator.
func NewAIService(logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher, client CompletionClient) AIService {
	return &aiService{
		logger:    logger,
		validator: v,
		publisher: publisher,
		client:    client,
	}
}

// GenerateQuestions performs at most one model round-trip. Upstream
// errors and unparseable output degrade to placeholder questions rather
// than failing the request; the response carries a fallback flag either
// way, and the audit trail records which path served the call. The
// response always holds exactly the requested number of questions: a
// short model result is topped up with placeholder drafts.
func (s *aiService) GenerateQuestions(ctx context.Context, principal models.Principal, req *GenerateQuestionsRequest) (*GenerateQuestionsResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, toValidationError(err)
	}
	if !models.RoleAtLeast(principal.Role, models.RoleUser) {
		return nil, NewPermissionError(principal.ID, 0, "ai", "generate", "candidates cannot generate questions")
	}
	if req.Difficulty == "" {
		req.Difficulty = models.DifficultyMedium
	}

	resp := &GenerateQuestionsResponse{}
	if s.client == nil {
		resp.Questions = placeholderQuestions(req)
		resp.Fallback = true
	} else {
		questions, err := s.generate(ctx, req)
		if err != nil {
			s.logger.Warn("ai generation failed, serving fallback",
				"subject", req.Subject, "count", req.Count, "error", err)
			resp.Questions = placeholderQuestions(req)
			resp.Fallback = true
		} else {
			resp.Questions = questions
			resp.Model = s.client.Model()
			if missing := req.Count - len(resp.Questions); missing > 0 {
				pad := *req
				pad.Count = missing
				resp.Questions = append(resp.Questions, placeholderQuestions(&pad)...)
			}
		}
	}

	publishAudit(s.logger, s.publisher, events.Event{
		Type:     "ai.questions_generated",
		TenantID: principal.Tenant(),
		ActorID:  principal.ID,
		Data: map[string]interface{}{
			"subject":  req.Subject,
			"type":     string(req.Type),
			"count":    len(resp.Questions),
			"fallback": resp.Fallback,
		},
	})

	return resp, nil
}

func (s *aiService) generate(ctx context.Context, req *GenerateQuestionsRequest) ([]GeneratedQuestion, error) {
	raw, err := s.client.Complete(ctx, generationSystemPrompt, buildUserPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	parsed, err := parseGeneratedQuestions(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("model returned no questions")
	}
	if len(parsed) > req.Count {
		parsed = parsed[:req.Count]
	}
	for i := range parsed {
		parsed[i].Type = req.Type
		parsed[i].Difficulty = req.Difficulty
	}
	return parsed, nil
}

func buildUserPrompt(req *GenerateQuestionsRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d %s questions about %q at %s difficulty.",
		req.Count, req.Type, req.Subject, req.Difficulty)
	if req.Context != "" {
		fmt.Fprintf(&b, "\nAdditional context:\n%s", req.Context)
	}
	return b.String()
}

// parseGeneratedQuestions accepts a bare JSON array, optionally wrapped
// in a markdown code fence.
func parseGeneratedQuestions(raw string) ([]GeneratedQuestion, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
		raw = strings.TrimSpace(raw)
	}

	var out []GeneratedQuestion
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// placeholderQuestions produces deterministic drafts so the authoring
// flow keeps working when the model is unavailable.
func placeholderQuestions(req *GenerateQuestionsRequest) []GeneratedQuestion {
	out := make([]GeneratedQuestion, 0, req.Count)
	for i := 1; i <= req.Count; i++ {
		q := GeneratedQuestion{
			Type:       req.Type,
			Text:       fmt.Sprintf("Draft question %d on %s. Replace with final wording.", i, req.Subject),
			Difficulty: req.Difficulty,
		}
		switch req.Type {
		case models.MultipleChoice:
			q.Options = []string{"Option A", "Option B", "Option C", "Option D"}
			q.CorrectAnswer = "Option A"
		case models.TrueFalse:
			q.CorrectAnswer = "true"
		case models.ShortAnswer:
			q.CorrectAnswer = ""
		}
		out = append(out, q)
	}
	return out
}
