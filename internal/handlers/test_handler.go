package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
	"github.com/evalforge/assessment-platform/internal/services"
	"github.com/evalforge/assessment-platform/internal/utils"
)

type TestHandler struct {
	BaseHandler
	testService services.TestService
}

func NewTestHandler(testService services.TestService, logger utils.Logger) *TestHandler {
	return &TestHandler{
		BaseHandler: NewBaseHandler(logger),
		testService: testService,
	}
}

// CreateTest creates a new test in draft status
// @Summary Create test
// @Tags tests
// @Accept json
// @Produce json
// @Param test body services.CreateTestRequest true "Test data"
// @Success 201 {object} models.APIResponse{data=services.TestResponse}
// @Failure 400 {object} models.APIResponse
// @Router /tests [post]
func (h *TestHandler) CreateTest(c *gin.Context) {
	var req services.CreateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	test, err := h.testService.Create(c.Request.Context(), principal, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondCreated(c, "Test created", test)
}

// GetTest retrieves a test by ID
// @Summary Get test
// @Tags tests
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} models.APIResponse{data=services.TestResponse}
// @Failure 404 {object} models.APIResponse
// @Router /tests/{id} [get]
func (h *TestHandler) GetTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	test, err := h.testService.GetByID(c.Request.Context(), principal, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Test retrieved", test)
}

// UpdateTest updates test content and settings
// @Summary Update test
// @Tags tests
// @Accept json
// @Produce json
// @Param id path uint true "Test ID"
// @Param test body services.UpdateTestRequest true "Test data"
// @Success 200 {object} models.APIResponse{data=services.TestResponse}
// @Failure 400 {object} models.APIResponse
// @Router /tests/{id} [put]
func (h *TestHandler) UpdateTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	test, err := h.testService.Update(c.Request.Context(), principal, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Test updated", test)
}

// DeleteTest soft-deletes a test
// @Summary Delete test
// @Tags tests
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} models.APIResponse
// @Failure 409 {object} models.APIResponse
// @Router /tests/{id} [delete]
func (h *TestHandler) DeleteTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	if err := h.testService.Delete(c.Request.Context(), principal, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Test deleted", nil)
}

// ListTests lists tests visible to the caller
// @Summary List tests
// @Tags tests
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param status query string false "Status filter"
// @Success 200 {object} models.APIResponse{data=services.TestListResponse}
// @Router /tests [get]
func (h *TestHandler) ListTests(c *gin.Context) {
	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	filters := repositories.TestFilters{List: h.parseListParams(c)}
	if raw := c.Query("status"); raw != "" {
		st := models.TestStatus(raw)
		filters.Status = &st
	}
	if raw := c.Query("difficulty"); raw != "" {
		dl := models.DifficultyLevel(raw)
		filters.Difficulty = &dl
	}

	result, err := h.testService.List(c.Request.Context(), principal, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondPage(c, "Tests retrieved", result.Tests, result.Page, result.Size, result.Total)
}

// UpdateTestStatus transitions a test between draft/published/archived
// @Summary Update test status
// @Tags tests
// @Accept json
// @Produce json
// @Param id path uint true "Test ID"
// @Param status body services.UpdateTestStatusRequest true "Target status"
// @Success 200 {object} models.APIResponse{data=services.TestResponse}
// @Failure 409 {object} models.APIResponse
// @Router /tests/{id}/status [put]
func (h *TestHandler) UpdateTestStatus(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateTestStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	test, err := h.testService.UpdateStatus(c.Request.Context(), principal, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Test status updated", test)
}

// AddTestQuestion attaches a question to a test
// @Summary Add question to test
// @Tags tests
// @Accept json
// @Produce json
// @Param id path uint true "Test ID"
// @Param question body services.TestQuestionRequest true "Question binding"
// @Success 200 {object} models.APIResponse
// @Router /tests/{id}/questions [post]
func (h *TestHandler) AddTestQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.TestQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	if err := h.testService.AddQuestion(c.Request.Context(), principal, id, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Question added to test", nil)
}

// RemoveTestQuestion detaches a question from a test
// @Summary Remove question from test
// @Tags tests
// @Produce json
// @Param id path uint true "Test ID"
// @Param question_id path uint true "Question ID"
// @Success 200 {object} models.APIResponse
// @Router /tests/{id}/questions/{question_id} [delete]
func (h *TestHandler) RemoveTestQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	questionID := h.parseIDParam(c, "question_id")
	if questionID == 0 {
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	if err := h.testService.RemoveQuestion(c.Request.Context(), principal, id, questionID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Question removed from test", nil)
}

// ReorderTestQuestions rewrites the question order of a test
// @Summary Reorder test questions
// @Tags tests
// @Accept json
// @Produce json
// @Param id path uint true "Test ID"
// @Param orders body services.ReorderQuestionsRequest true "New order"
// @Success 200 {object} models.APIResponse
// @Router /tests/{id}/questions/reorder [put]
func (h *TestHandler) ReorderTestQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.ReorderQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	if err := h.testService.ReorderQuestions(c.Request.Context(), principal, id, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Questions reordered", nil)
}

// GetTestStats returns aggregate attempt statistics for a test
// @Summary Test statistics
// @Tags tests
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} models.APIResponse{data=repositories.TestStats}
// @Router /tests/{id}/stats [get]
func (h *TestHandler) GetTestStats(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	stats, err := h.testService.Stats(c.Request.Context(), principal, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Test stats retrieved", stats)
}
