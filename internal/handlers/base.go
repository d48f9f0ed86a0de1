package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/evalforge/assessment-platform/internal/authz"
	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/services"
	"github.com/evalforge/assessment-platform/internal/utils"
)

// BaseHandler carries the cross-cutting pieces every handler needs.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// ErrorResponse is the error payload inside the response envelope.
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.LoggerFromContext(c.Request.Context(), h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, msg string, err error, args ...any) {
	args = append(args, "error", err)
	utils.LoggerFromContext(c.Request.Context(), h.logger).Error(msg, args...)
}

func (h *BaseHandler) respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, models.APIResponse{Success: true, Message: message, Data: data})
}

func (h *BaseHandler) respondCreated(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, models.APIResponse{Success: true, Message: message, Data: data})
}

func (h *BaseHandler) respondPage(c *gin.Context, message string, data interface{}, page, limit int, total int64) {
	c.JSON(http.StatusOK, models.APIResponse{
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: models.NewPagination(page, limit, total),
	})
}

func (h *BaseHandler) respondError(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, models.APIResponse{
		Success: false,
		Message: message,
		Errors:  details,
	})
}

// parseIDParam reads a numeric path parameter. On failure it writes the
// 400 response itself and returns 0.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		h.respondError(c, http.StatusBadRequest, "Invalid "+name+" parameter", raw)
		return 0
	}
	return uint(id)
}

// parseListParams reads the shared pagination/search/sort query values.
// Range clamping happens later in ListParams.Normalize.
func (h *BaseHandler) parseListParams(c *gin.Context) authz.ListParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	return authz.ListParams{
		Page:      page,
		Limit:     limit,
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
}

// principalFromContext returns the authenticated principal placed there
// by the auth middleware. A missing principal writes the 401 itself.
func (h *BaseHandler) principalFromContext(c *gin.Context) (models.Principal, bool) {
	v, exists := c.Get("principal")
	if !exists {
		h.respondError(c, http.StatusUnauthorized, "User not authenticated", nil)
		return models.Principal{}, false
	}
	principal, ok := v.(models.Principal)
	if !ok {
		h.respondError(c, http.StatusUnauthorized, "User not authenticated", nil)
		return models.Principal{}, false
	}
	return principal, true
}

// handleServiceError translates service errors into HTTP status codes.
// Unrecognized errors become 500s with a generic message; the detail
// goes to the log, not the client.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidationFailed):
		h.respondError(c, http.StatusBadRequest, "Validation failed", validationDetails(err))
	case errors.Is(err, services.ErrUnauthorized):
		h.respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
	case errors.Is(err, services.ErrForbidden):
		h.respondError(c, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, services.ErrNotFound):
		h.respondError(c, http.StatusNotFound, "Resource not found", err.Error())
	case errors.Is(err, services.ErrConflict):
		h.respondError(c, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, services.ErrUpstream):
		h.respondError(c, http.StatusBadGateway, "Upstream service error", nil)
	default:
		h.LogError(c, "unhandled service error", err)
		h.respondError(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}

func validationDetails(err error) interface{} {
	var verrs services.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs
	}
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return services.ValidationErrors{*verr}
	}
	return err.Error()
}
