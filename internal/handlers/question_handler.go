package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
	"github.com/evalforge/assessment-platform/internal/services"
	"github.com/evalforge/assessment-platform/internal/utils"
)

type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
	importExport    services.ImportExportService
	tempDir         string
}

func NewQuestionHandler(
	questionService services.QuestionService,
	importExport services.ImportExportService,
	tempDir string,
	logger utils.Logger,
) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger),
		questionService: questionService,
		importExport:    importExport,
		tempDir:         tempDir,
	}
}

// CreateQuestion creates a new question
// @Summary Create question
// @Description Creates a new question in the caller's bank
// @Tags questions
// @Accept json
// @Produce json
// @Param question body services.CreateQuestionRequest true "Question data"
// @Success 201 {object} models.APIResponse{data=services.QuestionResponse}
// @Failure 400 {object} models.APIResponse
// @Failure 403 {object} models.APIResponse
// @Router /questions [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), principal, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondCreated(c, "Question created", question)
}

// GetQuestion retrieves a question by ID
// @Summary Get question
// @Tags questions
// @Produce json
// @Param id path uint true "Question ID"
// @Success 200 {object} models.APIResponse{data=services.QuestionResponse}
// @Failure 404 {object} models.APIResponse
// @Router /questions/{id} [get]
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	question, err := h.questionService.GetByID(c.Request.Context(), principal, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Question retrieved", question)
}

// UpdateQuestion updates a question
// @Summary Update question
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Question ID"
// @Param question body services.UpdateQuestionRequest true "Question data"
// @Success 200 {object} models.APIResponse{data=services.QuestionResponse}
// @Failure 400 {object} models.APIResponse
// @Failure 403 {object} models.APIResponse
// @Router /questions/{id} [put]
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	question, err := h.questionService.Update(c.Request.Context(), principal, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Question updated", question)
}

// DeleteQuestion soft-deletes a question
// @Summary Delete question
// @Tags questions
// @Produce json
// @Param id path uint true "Question ID"
// @Success 200 {object} models.APIResponse
// @Failure 403 {object} models.APIResponse
// @Router /questions/{id} [delete]
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), principal, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Question deleted", nil)
}

// ListQuestions lists questions visible to the caller
// @Summary List questions
// @Tags questions
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param search query string false "Search in question text"
// @Param type query string false "Question type filter"
// @Param difficulty query string false "Difficulty filter"
// @Param domain query string false "Domain filter"
// @Success 200 {object} models.APIResponse{data=services.QuestionListResponse}
// @Router /questions [get]
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	filters := h.parseQuestionFilters(c)
	result, err := h.questionService.List(c.Request.Context(), principal, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondPage(c, "Questions retrieved", result.Questions, result.Page, result.Size, result.Total)
}

// GetQuestionStats returns usage statistics for a question
// @Summary Question statistics
// @Tags questions
// @Produce json
// @Param id path uint true "Question ID"
// @Success 200 {object} models.APIResponse{data=repositories.QuestionStats}
// @Router /questions/{id}/stats [get]
func (h *QuestionHandler) GetQuestionStats(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	stats, err := h.questionService.Stats(c.Request.Context(), principal, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Question stats retrieved", stats)
}

// ImportQuestions imports questions from an uploaded XLSX workbook
// @Summary Import questions
// @Tags questions
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "XLSX workbook"
// @Success 200 {object} models.APIResponse{data=services.ImportResult}
// @Failure 400 {object} models.APIResponse
// @Router /questions/import [post]
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		h.respondError(c, http.StatusBadRequest, "Missing file upload", err.Error())
		return
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".xlsx") {
		h.respondError(c, http.StatusBadRequest, "Only .xlsx workbooks are supported", file.Filename)
		return
	}

	tmpPath := filepath.Join(h.tempDir, fmt.Sprintf("import-%s.xlsx", uuid.New().String()))
	if err := c.SaveUploadedFile(file, tmpPath); err != nil {
		h.LogError(c, "failed to persist upload", err)
		h.respondError(c, http.StatusInternalServerError, "Failed to store uploaded file", nil)
		return
	}
	defer os.Remove(tmpPath)

	result, err := h.importExport.ImportQuestions(c.Request.Context(), principal, tmpPath)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Import finished", result)
}

// ExportQuestions streams the caller's visible questions as XLSX
// @Summary Export questions
// @Tags questions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Router /questions/export [get]
func (h *QuestionHandler) ExportQuestions(c *gin.Context) {
	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	filters := h.parseQuestionFilters(c)
	destPath := filepath.Join(h.tempDir, fmt.Sprintf("export-%s.xlsx", uuid.New().String()))
	defer os.Remove(destPath)

	if err := h.importExport.ExportQuestions(c.Request.Context(), principal, filters, destPath); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.FileAttachment(destPath, "questions.xlsx")
}

func (h *QuestionHandler) parseQuestionFilters(c *gin.Context) repositories.QuestionFilters {
	filters := repositories.QuestionFilters{List: h.parseListParams(c)}
	if raw := c.Query("type"); raw != "" {
		qt := models.QuestionType(raw)
		filters.Type = &qt
	}
	if raw := c.Query("difficulty"); raw != "" {
		dl := models.DifficultyLevel(raw)
		filters.Difficulty = &dl
	}
	if raw := c.Query("domain"); raw != "" {
		filters.Domain = &raw
	}
	if raw := c.Query("tags"); raw != "" {
		filters.Tags = strings.Split(raw, ",")
	}
	return filters
}
