package http

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"signaltrack/internal/delivery/http/dto"
	"signaltrack/internal/domain"
	"signaltrack/internal/usecase"
)

// SignalHandler handles signal intake and query requests
type SignalHandler struct {
	signalService *usecase.SignalService
}

// NewSignalHandler creates a new SignalHandler
func NewSignalHandler(signalService *usecase.SignalService) *SignalHandler {
	return &SignalHandler{signalService: signalService}
}

// Create receives a trading signal
// POST /signal
func (h *SignalHandler) Create(c echo.Context) error {
	var req dto.CreateSignalRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid JSON payload")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	signal, err := h.signalService.CreateSignal(ctx, usecase.CreateSignalInput{
		Asset:       req.Asset,
		Direction:   req.Direction,
		Targets:     req.Targets,
		StopLoss:    req.StopLoss,
		MaxExitTime: req.MaxExitTime,
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return BadRequestResponse(c, err.Error())
		}
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return ServiceUnavailableResponse(c, "Signal store unavailable")
		}
		return InternalServerErrorResponse(c, "Failed to create signal", err)
	}

	return CreatedResponse(c, dto.CreateSignalResponse{
		SignalID:  signal.ID.String(),
		Asset:     signal.Asset,
		Direction: signal.Direction,
	})
}

// List returns signals, optionally filtered by asset and status
// GET /signals?asset=BTCUSDT&status=open&limit=50
func (h *SignalHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		echo.QueryParamsBinder(c).Int("limit", &limit)
	}

	signals, err := h.signalService.ListSignals(ctx, c.QueryParam("asset"), c.QueryParam("status"), limit)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return BadRequestResponse(c, err.Error())
		}
		return InternalServerErrorResponse(c, "Failed to list signals", err)
	}

	return SuccessResponse(c, map[string]interface{}{
		"signals": signals,
		"count":   len(signals),
	})
}

// Get returns a single signal by id
// GET /signals/:id
func (h *SignalHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	signal, err := h.signalService.GetSignal(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return BadRequestResponse(c, err.Error())
		}
		if errors.Is(err, domain.ErrNotFound) {
			return NotFoundResponse(c, "Signal not found")
		}
		return InternalServerErrorResponse(c, "Failed to get signal", err)
	}

	return SuccessResponse(c, signal)
}

// OpenPositions returns all open positions with current prices
// GET /positions
func (h *SignalHandler) OpenPositions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	positions, err := h.signalService.GetOpenPositions(ctx)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to get open positions", err)
	}

	return SuccessResponse(c, map[string]interface{}{
		"positions": positions,
		"count":     len(positions),
	})
}
