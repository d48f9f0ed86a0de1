package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
	"github.com/evalforge/assessment-platform/internal/services"
	"github.com/evalforge/assessment-platform/internal/utils"
)

type BillingHandler struct {
	BaseHandler
	billingService services.BillingService
}

func NewBillingHandler(billingService services.BillingService, logger utils.Logger) *BillingHandler {
	return &BillingHandler{
		BaseHandler:    NewBaseHandler(logger),
		billingService: billingService,
	}
}

// CreateBillingRecord creates an invoice for a tenant
// @Summary Create invoice
// @Tags billing
// @Accept json
// @Produce json
// @Param record body services.CreateBillingRequest true "Invoice data"
// @Success 201 {object} models.APIResponse{data=models.BillingRecord}
// @Failure 403 {object} models.APIResponse
// @Router /billing [post]
func (h *BillingHandler) CreateBillingRecord(c *gin.Context) {
	var req services.CreateBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	record, err := h.billingService.Create(c.Request.Context(), principal, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondCreated(c, "Invoice created", record)
}

// GetBillingRecord retrieves an invoice
// @Summary Get invoice
// @Tags billing
// @Produce json
// @Param id path uint true "Invoice ID"
// @Success 200 {object} models.APIResponse{data=models.BillingRecord}
// @Failure 404 {object} models.APIResponse
// @Router /billing/{id} [get]
func (h *BillingHandler) GetBillingRecord(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	record, err := h.billingService.GetByID(c.Request.Context(), principal, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Invoice retrieved", record)
}

// ListBillingRecords lists invoices for the caller's tenant
// @Summary List invoices
// @Tags billing
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param status query string false "Status filter"
// @Success 200 {object} models.APIResponse{data=services.BillingListResponse}
// @Router /billing [get]
func (h *BillingHandler) ListBillingRecords(c *gin.Context) {
	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	filters := repositories.BillingFilters{List: h.parseListParams(c)}
	if raw := c.Query("status"); raw != "" {
		st := models.BillingStatus(raw)
		filters.Status = &st
	}

	result, err := h.billingService.List(c.Request.Context(), principal, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondPage(c, "Invoices retrieved", result.Records, result.Page, result.Size, result.Total)
}

// PayBillingRecord marks an invoice as paid
// @Summary Pay invoice
// @Tags billing
// @Produce json
// @Param id path uint true "Invoice ID"
// @Success 200 {object} models.APIResponse{data=models.BillingRecord}
// @Failure 409 {object} models.APIResponse
// @Router /billing/{id}/pay [post]
func (h *BillingHandler) PayBillingRecord(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	record, err := h.billingService.Pay(c.Request.Context(), principal, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Invoice paid", record)
}

// GetRevenue returns per-currency revenue summaries for the tenant
// @Summary Revenue summary
// @Tags billing
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]repositories.RevenueSummary}
// @Failure 403 {object} models.APIResponse
// @Router /billing/revenue [get]
func (h *BillingHandler) GetRevenue(c *gin.Context) {
	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	revenue, err := h.billingService.Revenue(c.Request.Context(), principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Revenue retrieved", revenue)
}
