package domain

import (
	"context"

	"github.com/google/uuid"
)

// StoreStats holds read-only diagnostics about the signals store
type StoreStats struct {
	Count          int64 `json:"count"`
	SizeBytes      int64 `json:"sizeBytes"`
	IndexSizeBytes int64 `json:"indexSizeBytes"`
}

// SignalRepository defines the interface for signal persistence.
// ApplyTransition is the sole write path for lifecycle changes.
type SignalRepository interface {
	// Create persists a new signal in unopened status and assigns its id
	Create(ctx context.Context, signal *SignalRecord) error

	// GetActive retrieves all signals with an unopened or open position,
	// oldest first so long-pending signals are evaluated first each cycle
	GetActive(ctx context.Context) ([]*SignalRecord, error)

	// ApplyTransition conditionally updates a signal's position status and
	// details. The write succeeds only if the stored status still equals
	// expectedStatus; otherwise it returns false and leaves the record
	// untouched. This is what prevents double-applying a transition when
	// two evaluations race.
	ApplyTransition(ctx context.Context, id uuid.UUID, expectedStatus, newStatus string, details *PositionDetails) (bool, error)

	// GetByID retrieves a signal by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*SignalRecord, error)

	// GetByAsset retrieves signals for a symbol, optionally filtered by
	// position status, newest first
	GetByAsset(ctx context.Context, asset, status string, limit int) ([]*SignalRecord, error)

	// GetRecent retrieves the most recent signals
	GetRecent(ctx context.Context, limit int) ([]*SignalRecord, error)

	// Stats returns record count and storage/index footprint
	Stats(ctx context.Context) (*StoreStats, error)
}
