package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"

	"github.com/wacampaign/campaign-scheduler/pkg/redis"
)

type schedulerState interface {
	IsRunning() bool
}

// HealthHandler handles health checks.
type HealthHandler struct {
	db           *sqlx.DB
	redis        *redis.Client
	scheduler    schedulerState
	checkTimeout time.Duration
}

func NewHealthHandler(db *sqlx.DB, redisClient *redis.Client, sched schedulerState) *HealthHandler {
	return &HealthHandler{
		db:           db,
		redis:        redisClient,
		scheduler:    sched,
		checkTimeout: 2 * time.Second,
	}
}

// Health returns overall status and component statuses (DB, cooldown store, scheduler).
// @Summary Health check
// @Description Returns overall status with DB and valkey connectivity and scheduler state
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.checkTimeout)
	defer cancel()

	overallStatus := "ok"

	dbStatus := "up"
	if h.db == nil {
		dbStatus = "down"
		overallStatus = "down"
	} else if err := h.db.PingContext(ctx); err != nil {
		dbStatus = "down"
		overallStatus = "down"
	}

	cooldownStore := "history"
	redisStatus := "disabled"
	if h.redis != nil {
		cooldownStore = "valkey"
		if err := h.redis.Ping(ctx); err != nil {
			redisStatus = "down"
			overallStatus = "degraded"
		} else {
			redisStatus = "up"
		}
	}

	schedulerStatus := "stopped"
	if h.scheduler != nil && h.scheduler.IsRunning() {
		schedulerStatus = "running"
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().Format(time.RFC3339),
		"components": map[string]any{
			"database": map[string]any{
				"status": dbStatus,
			},
			"valkey": map[string]any{
				"status": redisStatus,
			},
			"cooldownStore": map[string]any{
				"backend": cooldownStore,
			},
			"scheduler": map[string]any{
				"status": schedulerStatus,
			},
		},
	})
}
