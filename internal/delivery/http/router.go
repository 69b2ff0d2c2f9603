package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RouterConfig holds all dependencies for routing
type RouterConfig struct {
	SignalHandler  *SignalHandler
	MonitorHandler *MonitorHandler
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(e *echo.Echo, config *RouterConfig) {
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Health polling would drown the log
			return c.Request().URL.Path == "/health"
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())

	// Signal intake and queries
	e.POST("/signal", config.SignalHandler.Create)
	e.GET("/signals", config.SignalHandler.List)
	e.GET("/signals/:id", config.SignalHandler.Get)
	e.GET("/positions", config.SignalHandler.OpenPositions)

	// Monitoring diagnostics
	e.GET("/status", config.MonitorHandler.Status)
	e.GET("/health", config.MonitorHandler.Health)
	e.GET("/database-info", config.MonitorHandler.DatabaseInfo)
	e.POST("/monitor/trigger", config.MonitorHandler.TriggerCycle)
}
