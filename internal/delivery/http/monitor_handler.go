package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"signaltrack/internal/delivery/http/dto"
	"signaltrack/internal/infra"
	"signaltrack/internal/usecase"
)

// Pinger is the slice of the database pool the health check needs
type Pinger interface {
	Ping(ctx context.Context) error
}

// MonitorHandler exposes the monitoring diagnostics
type MonitorHandler struct {
	scheduler     *infra.Scheduler
	signalService *usecase.SignalService
	db            Pinger
}

// NewMonitorHandler creates a new MonitorHandler
func NewMonitorHandler(scheduler *infra.Scheduler, signalService *usecase.SignalService, db Pinger) *MonitorHandler {
	return &MonitorHandler{
		scheduler:     scheduler,
		signalService: signalService,
		db:            db,
	}
}

// Status returns the monitor's current state
// GET /status
func (h *MonitorHandler) Status(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pending, open, err := h.signalService.ActiveCounts(ctx)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to get monitoring status", err)
	}

	return SuccessResponse(c, dto.MonitorStatusResponse{
		MonitoringActive: h.scheduler.Running(),
		OpenPositions:    open,
		PendingSignals:   pending,
		CheckInterval:    h.scheduler.Interval().String(),
	})
}

// Health reports service liveness including store reachability
// GET /health
func (h *MonitorHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := h.db.Ping(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	return SuccessResponse(c, map[string]interface{}{
		"status":    "healthy",
		"service":   "signaltrack",
		"database":  dbStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// DatabaseInfo surfaces the store's diagnostic stats
// GET /database-info
func (h *MonitorHandler) DatabaseInfo(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stats, err := h.signalService.StoreInfo(ctx)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to get database info", err)
	}

	return SuccessResponse(c, stats)
}

// TriggerCycle runs one monitoring cycle outside the schedule
// POST /monitor/trigger
func (h *MonitorHandler) TriggerCycle(c echo.Context) error {
	log.Println("Manual monitor cycle triggered via API")

	go func() {
		if err := h.scheduler.RunNow(context.Background()); err != nil {
			log.Printf("ERROR: manual monitor cycle failed: %v", err)
		}
	}()

	return c.JSON(http.StatusAccepted, Response{
		Status:  "success",
		Message: "Monitor cycle triggered",
	})
}
