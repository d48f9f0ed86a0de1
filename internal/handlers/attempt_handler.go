package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
	"github.com/evalforge/assessment-platform/internal/services"
	"github.com/evalforge/assessment-platform/internal/utils"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

// StartAttempt begins a test attempt for the caller
// @Summary Start attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param attempt body services.StartAttemptRequest true "Test to attempt"
// @Success 201 {object} models.APIResponse{data=services.AttemptResponse}
// @Failure 403 {object} models.APIResponse
// @Failure 409 {object} models.APIResponse
// @Router /attempts [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	var req services.StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), principal, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondCreated(c, "Attempt started", attempt)
}

// SubmitAttempt finalizes an attempt with the caller's answers
// @Summary Submit attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param answers body services.SubmitAttemptRequest true "Submitted answers"
// @Success 200 {object} models.APIResponse{data=services.AttemptResponse}
// @Failure 409 {object} models.APIResponse
// @Router /attempts/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.Submit(c.Request.Context(), principal, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Attempt submitted", attempt)
}

// GetAttempt retrieves a single attempt
// @Summary Get attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} models.APIResponse{data=services.AttemptResponse}
// @Failure 404 {object} models.APIResponse
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.GetByID(c.Request.Context(), principal, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Attempt retrieved", attempt)
}

// ListAttempts lists attempts visible to the caller
// @Summary List attempts
// @Tags attempts
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param status query string false "Status filter"
// @Param test_id query int false "Test filter"
// @Success 200 {object} models.APIResponse{data=services.AttemptListResponse}
// @Router /attempts [get]
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	filters := repositories.AttemptFilters{List: h.parseListParams(c)}
	if raw := c.Query("status"); raw != "" {
		st := models.AttemptStatus(raw)
		filters.Status = &st
	}
	if raw := c.Query("test_id"); raw != "" {
		if testID, err := strconv.ParseUint(raw, 10, 32); err == nil {
			id := uint(testID)
			filters.TestID = &id
		}
	}
	if raw := c.Query("user_id"); raw != "" {
		filters.UserID = &raw
	}

	result, err := h.attemptService.List(c.Request.Context(), principal, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondPage(c, "Attempts retrieved", result.Attempts, result.Page, result.Size, result.Total)
}
