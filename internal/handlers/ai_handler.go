package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evalforge/assessment-platform/internal/services"
	"github.com/evalforge/assessment-platform/internal/utils"
)

type AIHandler struct {
	BaseHandler
	aiService services.AIService
}

func NewAIHandler(aiService services.AIService, logger utils.Logger) *AIHandler {
	return &AIHandler{
		BaseHandler: NewBaseHandler(logger),
		aiService:   aiService,
	}
}

// GenerateQuestions drafts questions with the configured model
// @Summary Generate question drafts
// @Description Produces draft questions for review. Drafts are not saved;
// @Description create them through the question endpoints after editing.
// @Tags ai
// @Accept json
// @Produce json
// @Param request body services.GenerateQuestionsRequest true "Generation parameters"
// @Success 200 {object} models.APIResponse{data=services.GenerateQuestionsResponse}
// @Failure 400 {object} models.APIResponse
// @Failure 403 {object} models.APIResponse
// @Router /ai/questions/generate [post]
func (h *AIHandler) GenerateQuestions(c *gin.Context) {
	var req services.GenerateQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	result, err := h.aiService.GenerateQuestions(c.Request.Context(), principal, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Questions generated", result)
}
