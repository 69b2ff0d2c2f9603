package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signaltrack/internal/domain"
)

// fakeSignalRepo is an in-memory SignalRepository with the same
// compare-and-swap semantics as the Postgres implementation.
type fakeSignalRepo struct {
	mu        sync.Mutex
	signals   map[uuid.UUID]*domain.SignalRecord
	activeErr error

	// staleView, when set, is returned by GetActive instead of the live
	// state, simulating a snapshot that a concurrent writer has outrun
	staleView []*domain.SignalRecord

	// fetchBarrier, when set, holds every GetActive call until all
	// expected callers have fetched, forcing overlapping cycles
	fetchBarrier *sync.WaitGroup

	activeCalls int
	applyWins   int
	applyLosses int
}

func newFakeSignalRepo(signals ...*domain.SignalRecord) *fakeSignalRepo {
	r := &fakeSignalRepo{signals: make(map[uuid.UUID]*domain.SignalRecord)}
	for _, s := range signals {
		r.signals[s.ID] = s
	}
	return r
}

func copyRecord(s *domain.SignalRecord) *domain.SignalRecord {
	c := *s
	if s.PositionDetails != nil {
		d := *s.PositionDetails
		c.PositionDetails = &d
	}
	return &c
}

func (r *fakeSignalRepo) GetActive(ctx context.Context) ([]*domain.SignalRecord, error) {
	r.mu.Lock()
	r.activeCalls++
	err := r.activeErr
	var out []*domain.SignalRecord
	if r.staleView != nil {
		for _, s := range r.staleView {
			out = append(out, copyRecord(s))
		}
	} else {
		for _, s := range r.signals {
			if s.IsActive() {
				out = append(out, copyRecord(s))
			}
		}
	}
	barrier := r.fetchBarrier
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if barrier != nil {
		barrier.Done()
		barrier.Wait()
	}
	return out, nil
}

func (r *fakeSignalRepo) ApplyTransition(ctx context.Context, id uuid.UUID, expectedStatus, newStatus string, details *domain.PositionDetails) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.signals[id]
	if !ok || s.PositionStatus != expectedStatus {
		r.applyLosses++
		return false, nil
	}
	s.PositionStatus = newStatus
	s.PositionDetails = details
	s.UpdatedAt = time.Now()
	r.applyWins++
	return true, nil
}

func (r *fakeSignalRepo) Create(ctx context.Context, signal *domain.SignalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if signal.ID == uuid.Nil {
		signal.ID = uuid.New()
	}
	r.signals[signal.ID] = signal
	return nil
}

func (r *fakeSignalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.SignalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.signals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyRecord(s), nil
}

func (r *fakeSignalRepo) GetByAsset(ctx context.Context, asset, status string, limit int) ([]*domain.SignalRecord, error) {
	return nil, nil
}

func (r *fakeSignalRepo) GetRecent(ctx context.Context, limit int) ([]*domain.SignalRecord, error) {
	return nil, nil
}

func (r *fakeSignalRepo) Stats(ctx context.Context) (*domain.StoreStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &domain.StoreStats{Count: int64(len(r.signals))}, nil
}

type fakePriceService struct {
	mu     sync.Mutex
	prices map[string]float64
	err    error
	calls  int
}

func (f *fakePriceService) FetchRealTimePrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.prices == nil {
		return nil, f.err
	}
	out := make(map[string]float64, len(f.prices))
	for k, v := range f.prices {
		out[k] = v
	}
	return out, f.err
}

func (f *fakePriceService) GetPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := f.FetchRealTimePrices(ctx, []string{symbol})
	if err != nil {
		return 0, err
	}
	return prices[symbol], nil
}

func newTestMonitor(repo domain.SignalRepository, feed domain.PriceService) *MonitorService {
	evaluator := domain.Evaluator{NotionalUSD: 1000, Leverage: 2}
	return NewMonitorService(repo, feed, evaluator, 4, time.Second, 10*time.Millisecond, time.Second)
}

func activeSignal(asset, direction, status string, targets []float64, stopLoss float64) *domain.SignalRecord {
	now := time.Now().UTC()
	rec := &domain.SignalRecord{
		ID:             uuid.New(),
		Asset:          asset,
		Direction:      direction,
		Targets:        targets,
		StopLoss:       stopLoss,
		MaxExitTime:    now.Add(24 * time.Hour),
		PositionStatus: status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if status == domain.StatusOpen {
		rec.PositionDetails = &domain.PositionDetails{
			EntryPrice:     49000,
			Size:           0.02,
			Leverage:       2,
			EntryTimestamp: now.Add(-time.Hour),
		}
	}
	return rec
}

func TestCheckSignals_FullCycle(t *testing.T) {
	t.Parallel()

	pending := activeSignal("BTCUSDT", domain.DirectionBuy, domain.StatusUnopened, []float64{50000, 52000}, 48000)
	stopped := activeSignal("ETHUSDT", domain.DirectionBuy, domain.StatusOpen, []float64{50000, 52000}, 48000)
	profited := activeSignal("SOLUSDT", domain.DirectionBuy, domain.StatusOpen, []float64{50000}, 48000)
	holding := activeSignal("ADAUSDT", domain.DirectionBuy, domain.StatusOpen, []float64{50000, 52000}, 48000)
	unquoted := activeSignal("XRPUSDT", domain.DirectionBuy, domain.StatusOpen, []float64{50000, 52000}, 48000)

	repo := newFakeSignalRepo(pending, stopped, profited, holding, unquoted)
	feed := &fakePriceService{
		prices: map[string]float64{
			"BTCUSDT": 49000,
			"ETHUSDT": 47000,
			"SOLUSDT": 50500,
			"ADAUSDT": 49500,
			// XRPUSDT deliberately missing
		},
		err: domain.ErrUnknownAsset,
	}

	monitor := newTestMonitor(repo, feed)
	require.NoError(t, monitor.CheckSignals(context.Background()))

	got, err := repo.GetByID(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, got.PositionStatus)
	require.NotNil(t, got.PositionDetails)
	assert.Equal(t, 49000.0, got.PositionDetails.EntryPrice)

	got, err = repo.GetByID(context.Background(), stopped.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, got.PositionStatus)
	assert.Equal(t, domain.ExitReasonStopLoss, got.PositionDetails.ExitReason)

	got, err = repo.GetByID(context.Background(), profited.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, got.PositionStatus)
	assert.Equal(t, domain.ExitReasonTakeProfit, got.PositionDetails.ExitReason)

	got, err = repo.GetByID(context.Background(), holding.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, got.PositionStatus)
	assert.Empty(t, got.PositionDetails.ExitReason)

	// The unquoted asset is untouched and left for the next cycle
	got, err = repo.GetByID(context.Background(), unquoted.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, got.PositionStatus)
	assert.Equal(t, unquoted.UpdatedAt, got.UpdatedAt)
}

func TestCheckSignals_FeedDownSkipsCycleWithoutError(t *testing.T) {
	t.Parallel()

	rec := activeSignal("BTCUSDT", domain.DirectionBuy, domain.StatusOpen, []float64{50000}, 48000)
	repo := newFakeSignalRepo(rec)
	feed := &fakePriceService{err: domain.ErrFeedUnavailable}

	monitor := newTestMonitor(repo, feed)
	require.NoError(t, monitor.CheckSignals(context.Background()))

	got, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, got.PositionStatus)
	assert.Zero(t, repo.applyWins)
}

func TestCheckSignals_StoreFailureBacksOff(t *testing.T) {
	t.Parallel()

	repo := newFakeSignalRepo()
	repo.activeErr = domain.ErrStoreUnavailable
	feed := &fakePriceService{}

	evaluator := domain.Evaluator{NotionalUSD: 1000, Leverage: 2}
	monitor := NewMonitorService(repo, feed, evaluator, 4, time.Second, 200*time.Millisecond, time.Second)

	err := monitor.CheckSignals(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))

	// The next tick inside the backoff window is skipped quietly
	require.NoError(t, monitor.CheckSignals(context.Background()))
	assert.Equal(t, 1, repo.activeCalls)

	// After the window the monitor tries again and recovers
	repo.mu.Lock()
	repo.activeErr = nil
	repo.mu.Unlock()
	time.Sleep(250 * time.Millisecond)
	require.NoError(t, monitor.CheckSignals(context.Background()))
	assert.Equal(t, 2, repo.activeCalls)
}

func TestCheckSignals_LostRaceIsDeferredNotRetried(t *testing.T) {
	t.Parallel()

	// The store already moved the signal to open; the cycle evaluates a
	// stale unopened snapshot and must lose the conditional write
	rec := activeSignal("BTCUSDT", domain.DirectionBuy, domain.StatusOpen, []float64{50000}, 48000)
	stale := copyRecord(rec)
	stale.PositionStatus = domain.StatusUnopened
	stale.PositionDetails = nil

	repo := newFakeSignalRepo(rec)
	repo.staleView = []*domain.SignalRecord{stale}
	feed := &fakePriceService{prices: map[string]float64{"BTCUSDT": 49000}}

	monitor := newTestMonitor(repo, feed)
	require.NoError(t, monitor.CheckSignals(context.Background()))

	assert.Equal(t, 1, repo.applyLosses)
	assert.Zero(t, repo.applyWins)

	got, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, got.PositionStatus)
	assert.Equal(t, 49000.0, got.PositionDetails.EntryPrice)
}

func TestCheckSignals_ConcurrentCyclesSingleWinner(t *testing.T) {
	t.Parallel()

	rec := activeSignal("BTCUSDT", domain.DirectionBuy, domain.StatusUnopened, []float64{50000}, 48000)
	repo := newFakeSignalRepo(rec)
	feed := &fakePriceService{prices: map[string]float64{"BTCUSDT": 49000}}

	// Hold both cycles at the fetch point so each sees unopened state
	var barrier sync.WaitGroup
	barrier.Add(2)
	repo.fetchBarrier = &barrier

	monitor := newTestMonitor(repo, feed)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, monitor.CheckSignals(context.Background()))
		}()
	}
	wg.Wait()

	// Exactly one writer won; the record holds a single consistent state
	assert.Equal(t, 1, repo.applyWins)
	assert.Equal(t, 1, repo.applyLosses)

	got, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, got.PositionStatus)
	assert.Equal(t, 49000.0, got.PositionDetails.EntryPrice)
}

func TestCheckSignals_NoActiveSignals(t *testing.T) {
	t.Parallel()

	repo := newFakeSignalRepo()
	feed := &fakePriceService{}

	monitor := newTestMonitor(repo, feed)
	require.NoError(t, monitor.CheckSignals(context.Background()))

	// No point hitting the feed with nothing to monitor
	assert.Zero(t, feed.calls)
}
