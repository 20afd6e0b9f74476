package handlers

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wacampaign/campaign-scheduler/internal/domain"
	"github.com/wacampaign/campaign-scheduler/internal/repository"
	"github.com/wacampaign/campaign-scheduler/internal/schedule"
	"github.com/wacampaign/campaign-scheduler/internal/scheduler"
	"github.com/wacampaign/campaign-scheduler/internal/service"
	"github.com/wacampaign/campaign-scheduler/pkg/response"
	"github.com/wacampaign/campaign-scheduler/pkg/validator"
)

type CampaignHandler struct {
	service   *service.CampaignService
	scheduler *scheduler.Scheduler
}

func NewCampaignHandler(service *service.CampaignService, sched *scheduler.Scheduler) *CampaignHandler {
	return &CampaignHandler{service: service, scheduler: sched}
}

type PreviewScheduleRequest struct {
	Frequency string   `json:"frequency" validate:"required,oneof=once daily weekly"`
	Slots     []string `json:"slots" validate:"required,min=1,max=10,dive,hhmm"`
	Weekdays  []int    `json:"weekdays" validate:"omitempty,max=7,dive,weekday"`
	StartDate string   `json:"startDate" validate:"required,datetime=2006-01-02"`
}

type PreviewScheduleResponse struct {
	NextExecutionAt *time.Time `json:"nextExecutionAt"`
}

// GetCampaign godoc
// @Summary Get campaign runtime state
// @Description Returns schedule, status and execution timestamps of a campaign
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "Operator API key"
// @Param id path int true "Campaign ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id} [get]
func (h *CampaignHandler) GetCampaign(c echo.Context) error {
	id, err := parseCampaignID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	campaign, err := h.service.GetCampaign(c.Request().Context(), id)
	if err != nil {
		return campaignError(c, err)
	}

	return response.Ok(c, campaign)
}

// RunCampaign godoc
// @Summary Evaluate a campaign now
// @Description Fires the campaign if one of its slots is currently due and it has not fired for that slot yet
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "Operator API key"
// @Param id path int true "Campaign ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/run [post]
func (h *CampaignHandler) RunCampaign(c echo.Context) error {
	id, err := parseCampaignID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	outcome, err := h.scheduler.RunCampaignNow(c.Request().Context(), id)
	if err != nil {
		return campaignError(c, err)
	}

	if !outcome.Fired {
		return response.OkWithMessage(c, "Campaign is not due: "+string(outcome.Reason), outcome)
	}

	return response.OkWithMessage(c, "Campaign executed", outcome)
}

// ResumeCampaign godoc
// @Summary Resume a paused campaign
// @Description Reactivates a campaign paused on a provider session error and recomputes its next execution
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "Operator API key"
// @Param id path int true "Campaign ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/resume [post]
func (h *CampaignHandler) ResumeCampaign(c echo.Context) error {
	id, err := parseCampaignID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	campaign, err := h.service.Resume(c.Request().Context(), id)
	if err != nil {
		return campaignError(c, err)
	}

	return response.OkWithMessage(c, "Campaign resumed", campaign)
}

// ListSends godoc
// @Summary List campaign sends
// @Description Paginated send history of a campaign, newest first
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "Operator API key"
// @Param id path int true "Campaign ID"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/sends [get]
func (h *CampaignHandler) ListSends(c echo.Context) error {
	id, err := parseCampaignID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	records, totalCount, err := h.service.ListSends(c.Request().Context(), id, page, pageSize)
	if err != nil {
		return campaignError(c, err)
	}

	return response.Paginated(c, records, page, pageSize, totalCount)
}

// GetSendStats godoc
// @Summary Send statistics
// @Description Returns counts of successful, failed and degraded sends across all campaigns
// @Tags sends
// @Produce json
// @Param x-api-key header string true "Operator API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/sends/stats [get]
func (h *CampaignHandler) GetSendStats(c echo.Context) error {
	stats, err := h.service.SendStats(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, map[string]any{
		"sent":     stats.Sent,
		"failed":   stats.Failed,
		"degraded": stats.Degraded,
		"total":    stats.Sent + stats.Failed,
	})
}

// PreviewSchedule godoc
// @Summary Preview next execution
// @Description Resolves the next execution instant of a schedule before it is saved
// @Tags campaigns
// @Accept json
// @Produce json
// @Param x-api-key header string true "Operator API key"
// @Param request body PreviewScheduleRequest true "Schedule to resolve"
// @Success 200 {object} response.SuccessResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Router /api/v1/campaigns/preview [post]
func (h *CampaignHandler) PreviewSchedule(c echo.Context) error {
	var req PreviewScheduleRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	startDate, err := time.Parse(time.DateOnly, req.StartDate)
	if err != nil {
		return response.BadRequest(c, err)
	}

	next, err := h.service.PreviewNext(domain.Frequency(req.Frequency), req.Slots, req.Weekdays, startDate)
	if err != nil {
		return response.UnprocessableEntity(c, err)
	}

	return response.Ok(c, PreviewScheduleResponse{NextExecutionAt: next})
}

func campaignError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrCampaignNotFound):
		return response.NotFound(c, "Campaign not found")
	case errors.Is(err, service.ErrCampaignNotPaused),
		errors.Is(err, scheduler.ErrTickInFlight):
		return response.Conflict(c, err)
	case errors.Is(err, schedule.ErrInvalidSchedule):
		return response.UnprocessableEntity(c, err)
	default:
		return response.InternalServerError(c, err)
	}
}
