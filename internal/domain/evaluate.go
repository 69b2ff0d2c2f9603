package domain

import "time"

// Transition is the outcome of evaluating one signal against one price tick.
// ToStatus equals the record's current status for a details-only annotation
// (a partial take-profit marker that does not close the position).
type Transition struct {
	ToStatus string
	Details  *PositionDetails
}

// Evaluator decides position transitions from price ticks. It is pure:
// it never touches the store and never mutates the record it is given.
type Evaluator struct {
	NotionalUSD float64 // Quote-currency notional used when opening a position
	Leverage    float64 // Leverage recorded on entry
}

// Evaluate maps (record, price, now) to an optional transition. Rules are
// checked in strict priority order and the first match wins: entry, then
// expiry, stop-loss, final target, partial target. A stop-loss and a target
// hit in the same tick therefore resolve to the stop-loss.
func (e Evaluator) Evaluate(rec *SignalRecord, price float64, now time.Time) *Transition {
	switch rec.PositionStatus {
	case StatusUnopened:
		// Entry is immediate: creation implies intent to enter at the
		// next observed price.
		size := 0.0
		if price > 0 {
			size = e.NotionalUSD / price
		}
		return &Transition{
			ToStatus: StatusOpen,
			Details: &PositionDetails{
				EntryPrice:     price,
				Size:           size,
				Leverage:       e.Leverage,
				EntryTimestamp: now,
			},
		}

	case StatusOpen:
		if rec.PositionDetails == nil {
			// Open without entry details violates the lifecycle
			// invariant; leave the record for inspection.
			return nil
		}

		if !now.Before(rec.MaxExitTime) {
			return e.close(rec, price, now, ExitReasonExpired)
		}

		if stopLossHit(rec, price) {
			return e.close(rec, price, now, ExitReasonStopLoss)
		}

		reached := furthestTargetReached(rec, price)
		if reached == len(rec.Targets) && reached > 0 {
			return e.close(rec, price, now, ExitReasonTakeProfit)
		}
		if reached > rec.PositionDetails.TargetsReached {
			// Partial take-profit marker: annotate, do not close.
			details := *rec.PositionDetails
			details.TargetsReached = reached
			return &Transition{ToStatus: StatusOpen, Details: &details}
		}

		return nil
	}

	// Closed signals are terminal and excluded from monitoring.
	return nil
}

// close builds a closed-position transition, carrying the entry details
// forward untouched.
func (e Evaluator) close(rec *SignalRecord, price float64, now time.Time, reason string) *Transition {
	details := *rec.PositionDetails
	pnl := rec.GrossPnL(price)
	exitPrice := price
	exitAt := now

	details.ExitPrice = &exitPrice
	details.ExitTimestamp = &exitAt
	details.ExitReason = reason
	details.PnL = &pnl

	return &Transition{ToStatus: StatusClosed, Details: &details}
}

func stopLossHit(rec *SignalRecord, price float64) bool {
	if rec.IsBuy() {
		return price <= rec.StopLoss
	}
	return price >= rec.StopLoss
}

// furthestTargetReached returns the 1-based index of the furthest take-profit
// level the price has reached, 0 if none. A gap across several levels in one
// tick counts as the furthest one.
func furthestTargetReached(rec *SignalRecord, price float64) int {
	reached := 0
	for i, target := range rec.Targets {
		hit := price >= target
		if !rec.IsBuy() {
			hit = price <= target
		}
		if hit {
			reached = i + 1
		}
	}
	return reached
}
