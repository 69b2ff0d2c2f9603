package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"signaltrack/internal/domain"
)

const signalColumns = `id, asset, direction, targets, stop_loss, max_exit_time,
	       position_status, position_details, created_at, updated_at`

// SignalRepositoryImpl implements the SignalRepository interface on Postgres
type SignalRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewSignalRepository creates a new SignalRepository
func NewSignalRepository(db *pgxpool.Pool) domain.SignalRepository {
	return &SignalRepositoryImpl{db: db}
}

// Create persists a new signal in unopened status and assigns its id
func (r *SignalRepositoryImpl) Create(ctx context.Context, signal *domain.SignalRecord) error {
	if signal.ID == uuid.Nil {
		signal.ID = uuid.New()
	}
	now := time.Now().UTC()
	signal.PositionStatus = domain.StatusUnopened
	signal.CreatedAt = now
	signal.UpdatedAt = now

	query := `
		INSERT INTO signals (
			id, asset, direction, targets, stop_loss, max_exit_time,
			position_status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := r.db.Exec(ctx, query,
		signal.ID,
		signal.Asset,
		signal.Direction,
		signal.Targets,
		signal.StopLoss,
		signal.MaxExitTime,
		signal.PositionStatus,
		signal.CreatedAt,
		signal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to save signal: %v", domain.ErrStoreUnavailable, err)
	}

	return nil
}

// GetActive retrieves all unopened and open signals, oldest first
func (r *SignalRepositoryImpl) GetActive(ctx context.Context) ([]*domain.SignalRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM signals
		WHERE position_status IN ('unopened', 'open')
		ORDER BY created_at ASC
	`, signalColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query active signals: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// ApplyTransition conditionally moves a signal to newStatus. The UPDATE is
// guarded on the current stored status, so of two racing writers exactly one
// matches a row; the loser gets false and re-evaluates against fresh state
// next cycle.
func (r *SignalRepositoryImpl) ApplyTransition(ctx context.Context, id uuid.UUID, expectedStatus, newStatus string, details *domain.PositionDetails) (bool, error) {
	query := `
		UPDATE signals
		SET position_status = $3,
		    position_details = $4,
		    updated_at = now()
		WHERE id = $1 AND position_status = $2
	`

	tag, err := r.db.Exec(ctx, query, id, expectedStatus, newStatus, details)
	if err != nil {
		return false, fmt.Errorf("%w: failed to apply transition: %v", domain.ErrStoreUnavailable, err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetByID retrieves a signal by its ID
func (r *SignalRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.SignalRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM signals
		WHERE id = $1
	`, signalColumns)

	signal, err := scanSignal(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: failed to get signal by ID: %v", domain.ErrStoreUnavailable, err)
	}

	return signal, nil
}

// GetByAsset retrieves signals for a symbol, newest first. An empty status
// returns all of them; the (asset, position_status) index serves the
// filtered form.
func (r *SignalRepositoryImpl) GetByAsset(ctx context.Context, asset, status string, limit int) ([]*domain.SignalRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM signals
		WHERE asset = $1 AND ($2 = '' OR position_status = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, signalColumns)

	rows, err := r.db.Query(ctx, query, asset, status, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query signals for %s: %v", domain.ErrStoreUnavailable, asset, err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// GetRecent retrieves the most recent signals
func (r *SignalRepositoryImpl) GetRecent(ctx context.Context, limit int) ([]*domain.SignalRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM signals
		ORDER BY created_at DESC
		LIMIT $1
	`, signalColumns)

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query recent signals: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// Stats returns record count and storage/index footprint of the signals table
func (r *SignalRepositoryImpl) Stats(ctx context.Context) (*domain.StoreStats, error) {
	query := `
		SELECT count(*),
		       pg_total_relation_size('signals'),
		       pg_indexes_size('signals')
		FROM signals
	`

	stats := &domain.StoreStats{}
	err := r.db.QueryRow(ctx, query).Scan(&stats.Count, &stats.SizeBytes, &stats.IndexSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query store stats: %v", domain.ErrStoreUnavailable, err)
	}

	return stats, nil
}

func scanSignal(row pgx.Row) (*domain.SignalRecord, error) {
	signal := &domain.SignalRecord{}
	err := row.Scan(
		&signal.ID,
		&signal.Asset,
		&signal.Direction,
		&signal.Targets,
		&signal.StopLoss,
		&signal.MaxExitTime,
		&signal.PositionStatus,
		&signal.PositionDetails,
		&signal.CreatedAt,
		&signal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return signal, nil
}

func scanSignals(rows pgx.Rows) ([]*domain.SignalRecord, error) {
	var signals []*domain.SignalRecord
	for rows.Next() {
		signal, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		signals = append(signals, signal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signals: %w", err)
	}

	return signals, nil
}
