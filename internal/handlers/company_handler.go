package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
	"github.com/evalforge/assessment-platform/internal/services"
	"github.com/evalforge/assessment-platform/internal/utils"
)

type CompanyHandler struct {
	BaseHandler
	companyService services.CompanyService
}

func NewCompanyHandler(companyService services.CompanyService, logger utils.Logger) *CompanyHandler {
	return &CompanyHandler{
		BaseHandler:    NewBaseHandler(logger),
		companyService: companyService,
	}
}

// OnboardCompany provisions a new tenant with its admin account
// @Summary Onboard company
// @Description Creates a company, its admin user and an invite token. The
// @Description temporary credentials appear in this response only.
// @Tags companies
// @Accept json
// @Produce json
// @Param company body services.OnboardCompanyRequest true "Company data"
// @Success 201 {object} models.APIResponse{data=services.OnboardCompanyResponse}
// @Failure 403 {object} models.APIResponse
// @Failure 409 {object} models.APIResponse
// @Router /companies [post]
func (h *CompanyHandler) OnboardCompany(c *gin.Context) {
	var req services.OnboardCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	result, err := h.companyService.Onboard(c.Request.Context(), principal, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondCreated(c, "Company onboarded", result)
}

// GetCompany retrieves a company
// @Summary Get company
// @Tags companies
// @Produce json
// @Param id path string true "Company ID"
// @Success 200 {object} models.APIResponse{data=models.Company}
// @Failure 404 {object} models.APIResponse
// @Router /companies/{id} [get]
func (h *CompanyHandler) GetCompany(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		h.respondError(c, http.StatusBadRequest, "Invalid id parameter", id)
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	company, err := h.companyService.GetByID(c.Request.Context(), principal, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Company retrieved", company)
}

// ListCompanies lists companies (platform operators only)
// @Summary List companies
// @Tags companies
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param search query string false "Search by name"
// @Success 200 {object} models.APIResponse{data=services.CompanyListResponse}
// @Router /companies [get]
func (h *CompanyHandler) ListCompanies(c *gin.Context) {
	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	params := h.parseListParams(c)
	result, err := h.companyService.List(c.Request.Context(), principal, params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondPage(c, "Companies retrieved", result.Companies, result.Page, result.Size, result.Total)
}

// ListUsers lists users within the caller's tenant
// @Summary List users
// @Tags companies
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param role query string false "Role filter"
// @Success 200 {object} models.APIResponse{data=services.UserListResponse}
// @Router /users [get]
func (h *CompanyHandler) ListUsers(c *gin.Context) {
	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	filters := repositories.UserFilters{List: h.parseListParams(c)}
	if raw := c.Query("role"); raw != "" {
		role := models.UserRole(raw)
		filters.Role = &role
	}
	if raw := c.Query("tenant_id"); raw != "" {
		filters.TenantID = &raw
	}

	result, err := h.companyService.ListUsers(c.Request.Context(), principal, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondPage(c, "Users retrieved", result.Users, result.Page, result.Size, result.Total)
}

// RedeemInvite consumes an invite token. Unauthenticated: the token is
// the credential.
// @Summary Redeem invite
// @Tags companies
// @Produce json
// @Param token path string true "Invite token"
// @Success 200 {object} models.APIResponse{data=models.User}
// @Failure 409 {object} models.APIResponse
// @Router /invites/{token}/redeem [post]
func (h *CompanyHandler) RedeemInvite(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		h.respondError(c, http.StatusBadRequest, "Invalid token parameter", nil)
		return
	}

	user, err := h.companyService.RedeemInvite(c.Request.Context(), token)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Invite redeemed", user)
}
