package domain

import (
	"time"

	"github.com/google/uuid"
)

// SignalRecord represents one trading signal and its position lifecycle
type SignalRecord struct {
	ID              uuid.UUID        `json:"id"`
	Asset           string           `json:"asset"`
	Direction       string           `json:"direction"`
	Targets         []float64        `json:"targets"`
	StopLoss        float64          `json:"stopLoss"`
	MaxExitTime     time.Time        `json:"maxExitTime"`
	PositionStatus  string           `json:"positionStatus"`
	PositionDetails *PositionDetails `json:"positionDetails,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// PositionDetails holds entry data once a position is opened and exit data
// once it is closed. Absent while the signal is still unopened.
type PositionDetails struct {
	EntryPrice     float64    `json:"entryPrice"`
	Size           float64    `json:"size"`     // Position size in base asset
	Leverage       float64    `json:"leverage"` // Leverage used for this position
	EntryTimestamp time.Time  `json:"entryTimestamp"`
	TargetsReached int        `json:"targetsReached,omitempty"` // Highest take-profit level reached (1-based)
	ExitPrice      *float64   `json:"exitPrice,omitempty"`
	ExitTimestamp  *time.Time `json:"exitTimestamp,omitempty"`
	ExitReason     string     `json:"exitReason,omitempty"`
	PnL            *float64   `json:"pnl,omitempty"` // Gross PnL in quote currency
}

// Direction constants
const (
	DirectionBuy  = "buy"
	DirectionSell = "sell"
)

// PositionStatus constants. Status only ever moves forward:
// unopened -> open -> closed.
const (
	StatusUnopened = "unopened"
	StatusOpen     = "open"
	StatusClosed   = "closed"
)

// ExitReason constants (why the position was closed)
const (
	ExitReasonStopLoss   = "stopLoss"
	ExitReasonTakeProfit = "takeProfitFinal"
	ExitReasonExpired    = "expired"
)

// IsBuy checks if the signal is a buy (long) signal
func (s *SignalRecord) IsBuy() bool {
	return s.Direction == DirectionBuy
}

// IsActive reports whether the signal still needs monitoring
func (s *SignalRecord) IsActive() bool {
	return s.PositionStatus == StatusUnopened || s.PositionStatus == StatusOpen
}

// FinalTarget returns the last take-profit level
func (s *SignalRecord) FinalTarget() float64 {
	if len(s.Targets) == 0 {
		return 0
	}
	return s.Targets[len(s.Targets)-1]
}

// GrossPnL calculates the gross PnL of the open position at the given price
func (s *SignalRecord) GrossPnL(currentPrice float64) float64 {
	if s.PositionDetails == nil {
		return 0
	}
	d := s.PositionDetails
	if s.IsBuy() {
		return (currentPrice - d.EntryPrice) * d.Size
	}
	// Short
	return (d.EntryPrice - currentPrice) * d.Size
}
