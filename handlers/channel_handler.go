package handlers

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wacampaign/campaign-scheduler/internal/service"
	"github.com/wacampaign/campaign-scheduler/pkg/response"
)

type cooldownLister interface {
	ActiveCooldowns(ctx context.Context) (map[string]time.Time, error)
}

type ChannelHandler struct {
	service   *service.CampaignService
	cooldowns cooldownLister
	window    time.Duration
}

// NewChannelHandler builds the handler; cooldowns may be nil when valkey is
// not configured.
func NewChannelHandler(service *service.CampaignService, cooldowns cooldownLister, window time.Duration) *ChannelHandler {
	return &ChannelHandler{service: service, cooldowns: cooldowns, window: window}
}

// Reconnect godoc
// @Summary Reconnect the WhatsApp session
// @Description Asks the provider to re-open the instance session. Paused campaigns still need an explicit resume.
// @Tags channel
// @Produce json
// @Param x-api-key header string true "Operator API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 502 {object} response.ErrorResponse
// @Router /api/v1/channel/reconnect [post]
func (h *ChannelHandler) Reconnect(c echo.Context) error {
	if err := h.service.ReconnectChannel(c.Request().Context()); err != nil {
		return response.BadGateway(c, err)
	}

	return response.OkWithMessage(c, "Session reconnected", nil)
}

// GetCooldowns godoc
// @Summary List active recipient cooldowns
// @Description Returns recipients contacted inside the protection window with the time they become eligible again
// @Tags channel
// @Produce json
// @Param x-api-key header string true "Operator API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /api/v1/channel/cooldowns [get]
func (h *ChannelHandler) GetCooldowns(c echo.Context) error {
	if h.cooldowns == nil {
		return response.ServiceUnavailable(c, "Cooldown listing requires valkey")
	}

	entries, err := h.cooldowns.ActiveCooldowns(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	type cooldownEntry struct {
		LastSentAt    time.Time `json:"lastSentAt"`
		EligibleAfter time.Time `json:"eligibleAfter"`
	}

	out := make(map[string]cooldownEntry, len(entries))
	for key, at := range entries {
		out[key] = cooldownEntry{LastSentAt: at, EligibleAfter: at.Add(h.window)}
	}

	return response.Ok(c, map[string]any{
		"count":     len(out),
		"window":    h.window.String(),
		"cooldowns": out,
	})
}
