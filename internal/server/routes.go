package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
)

func (s *Server) registerRoutes() {
	// Unauthenticated operational endpoints.
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api/v1", s.requireAuth)

	// Livestream provisioning and registry.
	api.POST("/event-streams", s.handleProvisionStreams, s.requireCapability(domain.CapManageEvents))
	api.GET("/event-streams", s.handleListStreams, s.requireCapability(domain.CapManageEvents))
	api.DELETE("/event-streams/:id", s.handleDeleteStream, s.requireCapability(domain.CapManageEvents))

	// Platform accounts and broadcast status. :platform is youtube or twitch.
	api.GET("/:platform/connect", s.handleConnectURL, s.requireCapability(domain.CapManageEvents))
	api.POST("/:platform/set-code", s.handleSetCode, s.requireCapability(domain.CapManageEvents))
	api.GET("/:platform/scopes", s.handleAccountScopes, s.requireCapability(domain.CapManageEvents))
	api.GET("/:platform/broadcasts/status", s.handleBroadcastStatuses, s.requireCapability(domain.CapManageEvents))
	api.POST("/:platform/broadcasts/:id/stop", s.handleStopBroadcast, s.requireCapability(domain.CapManageEvents))

	// AV cart stream control.
	api.GET("/av-carts/:cartId", s.handleGetCart, s.requireCapability(domain.CapManageAV))
	api.PUT("/av-carts/:cartId/stream-info", s.handleUpdateStreamInfo, s.requireCapability(domain.CapManageAV))
	api.PUT("/av-carts/:cartId/stream/:mode", s.handleControlStream, s.requireCapability(domain.CapManageAV))
	api.POST("/av-carts/:cartId/heartbeat", s.handleHeartbeat, s.requireCapability(domain.CapManageEquipment))
}
