package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"signaltrack/internal/domain"
)

const heartbeatInterval = 60 * time.Second

// MonitorService drives one evaluation cycle over all active signals: pull
// them from the store, resolve prices, run the evaluator and apply the
// resulting transitions through conditional writes. Per-record failures are
// contained within the cycle; only total store unavailability escalates, and
// even then only as a logged backoff, never as a crash.
type MonitorService struct {
	signalRepo   domain.SignalRepository
	priceService domain.PriceService
	evaluator    domain.Evaluator
	workers      int
	feedTimeout  time.Duration

	mu            sync.Mutex
	lastHeartbeat time.Time
	failures      int
	retryAt       time.Time
	backoffBase   time.Duration
	backoffMax    time.Duration
}

// NewMonitorService creates a new MonitorService
func NewMonitorService(
	signalRepo domain.SignalRepository,
	priceService domain.PriceService,
	evaluator domain.Evaluator,
	workers int,
	feedTimeout time.Duration,
	backoffBase, backoffMax time.Duration,
) *MonitorService {
	if workers < 1 {
		workers = 1
	}
	return &MonitorService{
		signalRepo:   signalRepo,
		priceService: priceService,
		evaluator:    evaluator,
		workers:      workers,
		feedTimeout:  feedTimeout,
		backoffBase:  backoffBase,
		backoffMax:   backoffMax,
	}
}

// CheckSignals runs one monitoring cycle
func (s *MonitorService) CheckSignals(ctx context.Context) error {
	if s.inBackoff() {
		return nil
	}

	signals, err := s.signalRepo.GetActive(ctx)
	if err != nil {
		s.recordStoreFailure()
		return fmt.Errorf("failed to fetch active signals: %w", err)
	}
	s.recordStoreSuccess()

	if len(signals) == 0 {
		s.heartbeat()
		return nil
	}

	prices := s.resolvePrices(ctx, signals)
	if len(prices) == 0 {
		// Nothing resolvable this tick; every record is revisited on
		// the next one
		return nil
	}

	// Records are independent, so evaluate them in parallel under a
	// bounded pool. All writes still funnel through the store's
	// conditional update, which serializes competing writers.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, signal := range signals {
		signal := signal
		g.Go(func() error {
			s.processSignal(gctx, signal, prices)
			return nil
		})
	}
	return g.Wait()
}

// resolvePrices bulk-fetches the latest price for every distinct symbol in
// the cycle. A symbol the feed cannot quote is just missing from the map.
func (s *MonitorService) resolvePrices(ctx context.Context, signals []*domain.SignalRecord) map[string]float64 {
	symbolSet := make(map[string]bool)
	for _, signal := range signals {
		symbolSet[strings.ToUpper(signal.Asset)] = true
	}
	symbols := make([]string, 0, len(symbolSet))
	for symbol := range symbolSet {
		symbols = append(symbols, symbol)
	}

	// A stalled feed call must not stall the whole cycle
	fctx, cancel := context.WithTimeout(ctx, s.feedTimeout)
	defer cancel()

	prices, err := s.priceService.FetchRealTimePrices(fctx, symbols)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownAsset) {
			log.Printf("WARNING: partial price fetch: %v", err)
		} else {
			log.Printf("WARNING: failed to fetch prices, skipping cycle: %v", err)
		}
	}
	return prices
}

// processSignal evaluates one signal against the resolved prices and applies
// the transition, if any. Failures here never propagate to the rest of the
// cycle.
func (s *MonitorService) processSignal(ctx context.Context, signal *domain.SignalRecord, prices map[string]float64) {
	price, ok := prices[strings.ToUpper(signal.Asset)]
	if !ok {
		// No price this cycle; the signal is revisited next tick
		return
	}

	transition := s.evaluator.Evaluate(signal, price, time.Now().UTC())
	if transition == nil {
		return
	}

	applied, err := s.signalRepo.ApplyTransition(ctx, signal.ID, signal.PositionStatus, transition.ToStatus, transition.Details)
	if err != nil {
		log.Printf("ERROR: failed to apply transition for signal %s: %v", signal.ID, err)
		return
	}
	if !applied {
		// Lost the race to a concurrent evaluation. Not an error: the
		// next cycle re-fetches fresh state and re-evaluates.
		log.Printf("Transition for signal %s rejected (stale status %s), deferring to next cycle",
			signal.ID, signal.PositionStatus)
		return
	}

	s.logTransition(signal, transition, price)
}

func (s *MonitorService) logTransition(signal *domain.SignalRecord, transition *domain.Transition, price float64) {
	switch {
	case transition.ToStatus == domain.StatusOpen && signal.PositionStatus == domain.StatusUnopened:
		log.Printf("✓ Opened %s %s position for signal %s @ %.4f",
			signal.Asset, signal.Direction, signal.ID, price)
	case transition.ToStatus == domain.StatusClosed:
		log.Printf("✓ Closed %s position for signal %s: %s @ %.4f (pnl %.4f)",
			signal.Asset, signal.ID, transition.Details.ExitReason, price, *transition.Details.PnL)
	default:
		log.Printf("✓ Signal %s reached take-profit level %d @ %.4f (position stays open)",
			signal.ID, transition.Details.TargetsReached, price)
	}
}

// heartbeat logs once a minute while there is nothing to monitor, so a quiet
// loop is distinguishable from a dead one
func (s *MonitorService) heartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.lastHeartbeat) >= heartbeatInterval {
		s.lastHeartbeat = time.Now()
		log.Println("Monitor alive; 0 active signals")
	}
}

func (s *MonitorService) inBackoff() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().Before(s.retryAt)
}

// recordStoreFailure doubles the wait before the next attempted cycle, up to
// backoffMax. Ticks that fire inside the window are skipped quietly.
func (s *MonitorService) recordStoreFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	delay := s.backoffBase
	for i := 1; i < s.failures; i++ {
		delay *= 2
		if delay >= s.backoffMax {
			delay = s.backoffMax
			break
		}
	}
	s.retryAt = time.Now().Add(delay)
	log.Printf("WARNING: store unreachable (%d consecutive failures), backing off %s", s.failures, delay)
}

func (s *MonitorService) recordStoreSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = 0
	s.retryAt = time.Time{}
}
