package handlers

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/wacampaign/campaign-scheduler/internal/scheduler"
	"github.com/wacampaign/campaign-scheduler/pkg/response"
)

type SchedulerHandler struct {
	scheduler *scheduler.Scheduler
	ctx       context.Context
}

func NewSchedulerHandler(sched *scheduler.Scheduler, ctx context.Context) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: sched,
		ctx:       ctx,
	}
}

// StartScheduler godoc
// @Summary Start the campaign scheduler
// @Description Starts the periodic tick that fires due campaigns
// @Tags scheduler
// @Produce json
// @Param x-api-key header string true "Operator API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/scheduler/start [post]
func (h *SchedulerHandler) StartScheduler(c echo.Context) error {
	if h.scheduler.IsRunning() {
		return response.OkWithMessage(c, "Scheduler is already running", h.scheduler.GetStatus())
	}

	if err := h.scheduler.Start(h.ctx); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Scheduler started successfully", h.scheduler.GetStatus())
}

// StopScheduler godoc
// @Summary Stop the campaign scheduler
// @Description Stops the periodic tick after the campaign currently running finishes
// @Tags scheduler
// @Produce json
// @Param x-api-key header string true "Operator API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/scheduler/stop [post]
func (h *SchedulerHandler) StopScheduler(c echo.Context) error {
	if !h.scheduler.IsRunning() {
		return response.OkWithMessage(c, "Scheduler is already stopped", h.scheduler.GetStatus())
	}

	if err := h.scheduler.Stop(); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Scheduler stopped successfully", h.scheduler.GetStatus())
}

// GetSchedulerStatus godoc
// @Summary Get scheduler status
// @Description Returns running state and tick statistics
// @Tags scheduler
// @Produce json
// @Param x-api-key header string true "Operator API key"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/scheduler/status [get]
func (h *SchedulerHandler) GetSchedulerStatus(c echo.Context) error {
	return response.Ok(c, h.scheduler.GetStatus())
}

// TriggerTick godoc
// @Summary Run one tick now
// @Description Evaluates every active campaign immediately. Rejected while another tick is in flight.
// @Tags scheduler
// @Produce json
// @Param x-api-key header string true "Operator API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/scheduler/tick [post]
func (h *SchedulerHandler) TriggerTick(c echo.Context) error {
	report, err := h.scheduler.Tick(c.Request().Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrTickInFlight) || errors.Is(err, scheduler.ErrTickTooSoon) {
			return response.Conflict(c, err)
		}
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Tick completed", report)
}
