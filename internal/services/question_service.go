package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evalforge/assessment-platform/internal/authz"
	"github.com/evalforge/assessment-platform/internal/events"
	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
	"github.com/evalforge/assessment-platform/internal/validator"
)

type questionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewQuestionService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher) QuestionService {
	return &questionService{
		repo:      repo,
		logger:    logger,
		validator: v,
		publisher: publisher,
	}
}

func (s *questionService) Create(ctx context.Context, principal models.Principal, req *CreateQuestionRequest) (*QuestionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, toValidationError(err)
	}
	if !models.RoleAtLeast(principal.Role, models.RoleUser) {
		return nil, NewPermissionError(principal.ID, 0, "question", "create", "candidates cannot create questions")
	}
	if err := validateAnswerShape(req.Type, req.Options, req.CorrectAnswer); err != nil {
		return nil, err
	}

	question := &models.Question{
		Type:          req.Type,
		Text:          req.Text,
		Domain:        req.Domain,
		SubDomain:     req.SubDomain,
		Difficulty:    models.DifficultyMedium,
		Points:        1,
		Options:       jsonField(req.Options),
		CorrectAnswer: jsonField(req.CorrectAnswer),
		Explanation:   req.Explanation,
		Tags:          jsonField(req.Tags),
		TenantID:      principal.Tenant(),
		Visibility:    models.VisibilityPrivate,
		Version:       1,
		IsActive:      true,
		CreatedBy:     principal.ID,
	}
	if req.Difficulty != "" {
		question.Difficulty = req.Difficulty
	}
	if req.Points != nil {
		question.Points = *req.Points
	}
	if req.Visibility != "" {
		question.Visibility = req.Visibility
	}

	if err := s.repo.Question().Create(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.logger.Info("question created", "question_id", question.ID, "tenant_id", question.TenantID, "type", question.Type)
	publishAudit(s.logger, s.publisher, events.Event{
		Type:     "question.created",
		TenantID: question.TenantID,
		ActorID:  principal.ID,
		Data:     map[string]interface{}{"question_id": question.ID, "type": string(question.Type)},
	})

	return s.toResponse(principal, question), nil
}

func (s *questionService) GetByID(ctx context.Context, principal models.Principal, id uint) (*QuestionResponse, error) {
	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, "question", id)
	}
	if !authz.CanRead(principal, questionResource(question)) {
		return nil, NewPermissionError(principal.ID, id, "question", "read", "outside principal tenant")
	}
	return s.toResponse(principal, question), nil
}

// Update applies a content mutation. The previous content is snapshotted
// into the version trail before the new values land, and the version
// counter moves forward exactly once per call.
func (s *questionService) Update(ctx context.Context, principal models.Principal, id uint, req *UpdateQuestionRequest) (*QuestionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, toValidationError(err)
	}

	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, "question", id)
	}
	if !authz.CanWrite(principal, questionResource(question)) {
		return nil, NewPermissionError(principal.ID, id, "question", "update", "outside principal tenant")
	}

	if contentChanged(question, req) {
		if err := appendRevision(question, principal.ID); err != nil {
			return nil, fmt.Errorf("failed to snapshot question revision: %w", err)
		}
		question.Version++
	}

	if req.Text != nil {
		question.Text = *req.Text
	}
	if req.Domain != nil {
		question.Domain = *req.Domain
	}
	if req.SubDomain != nil {
		question.SubDomain = *req.SubDomain
	}
	if req.Difficulty != nil {
		question.Difficulty = *req.Difficulty
	}
	if req.Points != nil {
		question.Points = *req.Points
	}
	if req.Options != nil {
		question.Options = jsonField(req.Options)
	}
	if req.CorrectAnswer != nil {
		question.CorrectAnswer = jsonField(req.CorrectAnswer)
	}
	if req.Explanation != nil {
		question.Explanation = req.Explanation
	}
	if req.Tags != nil {
		question.Tags = jsonField(req.Tags)
	}
	if req.Visibility != nil {
		question.Visibility = *req.Visibility
	}

	if err := s.repo.Question().Update(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	s.logger.Info("question updated", "question_id", id, "version", question.Version)
	publishAudit(s.logger, s.publisher, events.Event{
		Type:     "question.updated",
		TenantID: question.TenantID,
		ActorID:  principal.ID,
		Data:     map[string]interface{}{"question_id": id, "version": question.Version},
	})

	return s.toResponse(principal, question), nil
}

func (s *questionService) Delete(ctx context.Context, principal models.Principal, id uint) error {
	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		return wrapNotFound(err, "question", id)
	}
	if !authz.CanAccess(principal, questionResource(question), authz.ActionDelete) {
		return NewPermissionError(principal.ID, id, "question", "delete", "outside principal tenant")
	}

	if err := s.repo.Question().SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	s.logger.Info("question deleted", "question_id", id, "tenant_id", question.TenantID)
	publishAudit(s.logger, s.publisher, events.Event{
		Type:     "question.deleted",
		TenantID: question.TenantID,
		ActorID:  principal.ID,
		Data:     map[string]interface{}{"question_id": id},
	})
	return nil
}

func (s *questionService) List(ctx context.Context, principal models.Principal, filters repositories.QuestionFilters) (*QuestionListResponse, error) {
	questions, total, err := s.repo.Question().List(ctx, principal, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	params := filters.List.Normalize(authz.DefaultPageSize, nil)
	resp := &QuestionListResponse{
		Questions: make([]*QuestionResponse, 0, len(questions)),
		Total:     total,
		Page:      params.Page,
		Size:      params.Limit,
	}
	for _, q := range questions {
		resp.Questions = append(resp.Questions, s.toResponse(principal, q))
	}
	return resp, nil
}

func (s *questionService) Stats(ctx context.Context, principal models.Principal, id uint) (*repositories.QuestionStats, error) {
	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, "question", id)
	}
	if !authz.CanRead(principal, questionResource(question)) {
		return nil, NewPermissionError(principal.ID, id, "question", "read", "outside principal tenant")
	}
	return s.repo.Question().Stats(ctx, id)
}

func (s *questionService) toResponse(principal models.Principal, question *models.Question) *QuestionResponse {
	r := questionResource(question)
	return &QuestionResponse{
		Question:  question,
		CanEdit:   authz.CanWrite(principal, r),
		CanDelete: authz.CanAccess(principal, r, authz.ActionDelete),
	}
}

func questionResource(q *models.Question) authz.Resource {
	return authz.Resource{OwnerID: q.CreatedBy, TenantID: q.TenantID, Visibility: q.Visibility}
}

func contentChanged(q *models.Question, req *UpdateQuestionRequest) bool {
	if req.Text != nil && *req.Text != q.Text {
		return true
	}
	return req.Options != nil || req.CorrectAnswer != nil || req.Explanation != nil
}

// appendRevision pushes the current content onto the version trail.
func appendRevision(q *models.Question, updatedBy string) error {
	revisions := make([]models.QuestionRevision, 0, 4)
	if len(q.PreviousVersions) > 0 {
		if err := jsonUnmarshal(q.PreviousVersions, &revisions); err != nil {
			return err
		}
	}
	revisions = append(revisions, models.QuestionRevision{
		Version:       q.Version,
		Text:          q.Text,
		Options:       q.Options,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		UpdatedAt:     time.Now().UTC(),
		UpdatedBy:     updatedBy,
	})
	q.PreviousVersions = jsonField(revisions)
	return nil
}

// validateAnswerShape enforces per-type answer constraints that struct
// tags cannot express.
func validateAnswerShape(qType models.QuestionType, options []string, correct interface{}) error {
	switch qType {
	case models.MultipleChoice:
		if len(options) < 2 {
			return NewValidationError("options", "multiple choice questions need at least two options", len(options))
		}
		if correct == nil {
			return NewValidationError("correct_answer", "is required for multiple choice questions", nil)
		}
	case models.TrueFalse:
		answer, ok := correct.(string)
		if !ok || (answer != "true" && answer != "false") {
			return NewValidationError("correct_answer", "must be true or false", correct)
		}
	case models.ShortAnswer:
		if correct == nil {
			return NewValidationError("correct_answer", "is required for short answer questions", nil)
		}
	case models.Essay, models.Coding:
		// Free-form; graded outside automatic scoring.
	}
	return nil
}

func toValidationError(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		out := make(ValidationErrors, 0, len(verrs))
		for _, ve := range verrs {
			out = append(out, ValidationError{Field: ve.Field, Message: ve.Message, Value: ve.Value})
		}
		return out
	}
	return err
}
