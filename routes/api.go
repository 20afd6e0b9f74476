package routes

import (
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/wacampaign/campaign-scheduler/environments"
	"github.com/wacampaign/campaign-scheduler/handlers"
	"github.com/wacampaign/campaign-scheduler/internal/middlewares"
)

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	campaignHandler *handlers.CampaignHandler,
	schedulerHandler *handlers.SchedulerHandler,
	channelHandler *handlers.ChannelHandler,
	cfg *environments.Config,
) {
	e.GET("/health", healthHandler.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Operator API, one key for every group
	v1 := e.Group("/api/v1", middlewares.OperatorAuth(cfg.Auth.APIKey))

	campaigns := v1.Group("/campaigns")
	campaigns.POST("/preview", campaignHandler.PreviewSchedule)
	campaigns.GET("/:id", campaignHandler.GetCampaign)
	campaigns.POST("/:id/run", campaignHandler.RunCampaign)
	campaigns.POST("/:id/resume", campaignHandler.ResumeCampaign)
	campaigns.GET("/:id/sends", campaignHandler.ListSends)

	v1.GET("/sends/stats", campaignHandler.GetSendStats)

	schedulerGroup := v1.Group("/scheduler")
	schedulerGroup.POST("/start", schedulerHandler.StartScheduler)
	schedulerGroup.POST("/stop", schedulerHandler.StopScheduler)
	schedulerGroup.GET("/status", schedulerHandler.GetSchedulerStatus)
	schedulerGroup.POST("/tick", schedulerHandler.TriggerTick)

	channel := v1.Group("/channel")
	channel.POST("/reconnect", channelHandler.Reconnect)
	channel.GET("/cooldowns", channelHandler.GetCooldowns)
}
