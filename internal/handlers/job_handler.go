package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/evalforge/assessment-platform/internal/services"
	"github.com/evalforge/assessment-platform/internal/utils"
)

type JobHandler struct {
	BaseHandler
	jobService services.JobService
}

func NewJobHandler(jobService services.JobService, logger utils.Logger) *JobHandler {
	return &JobHandler{
		BaseHandler: NewBaseHandler(logger),
		jobService:  jobService,
	}
}

// SweepJobs runs one scheduler pass over due jobs. Called by the external
// cron, authenticated by CronSecretMiddleware rather than a user token.
// @Summary Sweep due jobs
// @Tags jobs
// @Produce json
// @Success 200 {object} models.APIResponse{data=services.SweepResult}
// @Router /internal/jobs/sweep [post]
func (h *JobHandler) SweepJobs(c *gin.Context) {
	result, err := h.jobService.Sweep(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "job sweep finished",
		"claimed", result.Claimed, "succeeded", result.Succeeded, "failed", result.Failed)
	h.respondOK(c, "Sweep finished", result)
}

// GetJob retrieves a scheduled job
// @Summary Get job
// @Tags jobs
// @Produce json
// @Param id path uint true "Job ID"
// @Success 200 {object} models.APIResponse{data=models.ScheduledJob}
// @Failure 403 {object} models.APIResponse
// @Router /jobs/{id} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	job, err := h.jobService.GetByID(c.Request.Context(), principal, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Job retrieved", job)
}

// RequeueJob moves a failed job back to pending
// @Summary Requeue failed job
// @Tags jobs
// @Produce json
// @Param id path uint true "Job ID"
// @Success 200 {object} models.APIResponse{data=models.ScheduledJob}
// @Failure 409 {object} models.APIResponse
// @Router /jobs/{id}/requeue [post]
func (h *JobHandler) RequeueJob(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	job, err := h.jobService.Requeue(c.Request.Context(), principal, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Job requeued", job)
}
