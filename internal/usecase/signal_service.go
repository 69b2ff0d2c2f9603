package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"signaltrack/internal/domain"
)

// SignalService handles signal intake and read-side queries. Lifecycle
// transitions are the monitor's job; this service never moves a position
// status itself.
type SignalService struct {
	signalRepo   domain.SignalRepository
	priceService domain.PriceService
}

// NewSignalService creates a new SignalService
func NewSignalService(signalRepo domain.SignalRepository, priceService domain.PriceService) *SignalService {
	return &SignalService{
		signalRepo:   signalRepo,
		priceService: priceService,
	}
}

// CreateSignalInput carries the fields of a new signal
type CreateSignalInput struct {
	Asset       string
	Direction   string
	Targets     []float64
	StopLoss    float64
	MaxExitTime time.Time
}

// CreateSignal validates and persists a new signal in unopened status.
// The monitor picks it up on its next cycle.
func (s *SignalService) CreateSignal(ctx context.Context, input CreateSignalInput) (*domain.SignalRecord, error) {
	if err := validateSignal(input); err != nil {
		return nil, err
	}

	signal := &domain.SignalRecord{
		Asset:       strings.ToUpper(strings.TrimSpace(input.Asset)),
		Direction:   input.Direction,
		Targets:     input.Targets,
		StopLoss:    input.StopLoss,
		MaxExitTime: input.MaxExitTime.UTC(),
	}

	if err := s.signalRepo.Create(ctx, signal); err != nil {
		return nil, err
	}

	log.Printf("✓ Created signal %s: %s %s | targets %v | SL %.4f | max exit %s",
		signal.ID, signal.Asset, signal.Direction, signal.Targets, signal.StopLoss,
		signal.MaxExitTime.Format(time.RFC3339))

	return signal, nil
}

// GetSignal fetches one signal by its string id
func (s *SignalService) GetSignal(ctx context.Context, id string) (*domain.SignalRecord, error) {
	signalID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid signal id %q", domain.ErrValidation, id)
	}
	return s.signalRepo.GetByID(ctx, signalID)
}

// ListSignals lists signals, optionally filtered by asset and status,
// newest first
func (s *SignalService) ListSignals(ctx context.Context, asset, status string, limit int) ([]*domain.SignalRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if status != "" && !validStatus(status) {
		return nil, fmt.Errorf("%w: invalid position status %q", domain.ErrValidation, status)
	}
	if asset != "" {
		return s.signalRepo.GetByAsset(ctx, strings.ToUpper(asset), status, limit)
	}
	return s.signalRepo.GetRecent(ctx, limit)
}

// OpenPosition couples an open signal with its latest known price
type OpenPosition struct {
	Signal        *domain.SignalRecord `json:"signal"`
	CurrentPrice  *float64             `json:"currentPrice,omitempty"`
	UnrealizedPnL *float64             `json:"unrealizedPnl,omitempty"`
}

// GetOpenPositions returns all open positions with current prices and
// unrealized PnL. A signal whose price is unavailable is still listed,
// just without the price fields.
func (s *SignalService) GetOpenPositions(ctx context.Context) ([]OpenPosition, error) {
	signals, err := s.signalRepo.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	var open []*domain.SignalRecord
	symbolSet := make(map[string]bool)
	for _, signal := range signals {
		if signal.PositionStatus != domain.StatusOpen {
			continue
		}
		open = append(open, signal)
		symbolSet[strings.ToUpper(signal.Asset)] = true
	}

	symbols := make([]string, 0, len(symbolSet))
	for symbol := range symbolSet {
		symbols = append(symbols, symbol)
	}

	prices, err := s.priceService.FetchRealTimePrices(ctx, symbols)
	if err != nil {
		log.Printf("WARNING: price fetch incomplete for open positions: %v", err)
	}

	positions := make([]OpenPosition, 0, len(open))
	for _, signal := range open {
		position := OpenPosition{Signal: signal}
		if price, ok := prices[strings.ToUpper(signal.Asset)]; ok {
			pnl := signal.GrossPnL(price)
			position.CurrentPrice = &price
			position.UnrealizedPnL = &pnl
		}
		positions = append(positions, position)
	}

	return positions, nil
}

// ActiveCounts returns how many signals are pending entry and how many hold
// an open position
func (s *SignalService) ActiveCounts(ctx context.Context) (pending, open int, err error) {
	signals, err := s.signalRepo.GetActive(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, signal := range signals {
		switch signal.PositionStatus {
		case domain.StatusUnopened:
			pending++
		case domain.StatusOpen:
			open++
		}
	}
	return pending, open, nil
}

// StoreInfo surfaces the store's diagnostic stats
func (s *SignalService) StoreInfo(ctx context.Context) (*domain.StoreStats, error) {
	return s.signalRepo.Stats(ctx)
}

func validateSignal(input CreateSignalInput) error {
	if strings.TrimSpace(input.Asset) == "" {
		return fmt.Errorf("%w: asset is required", domain.ErrValidation)
	}
	if input.Direction != domain.DirectionBuy && input.Direction != domain.DirectionSell {
		return fmt.Errorf("%w: direction must be %q or %q", domain.ErrValidation,
			domain.DirectionBuy, domain.DirectionSell)
	}
	if len(input.Targets) == 0 {
		return fmt.Errorf("%w: at least one take-profit target is required", domain.ErrValidation)
	}
	if input.StopLoss <= 0 {
		return fmt.Errorf("%w: stopLoss must be positive", domain.ErrValidation)
	}
	if input.MaxExitTime.IsZero() {
		return fmt.Errorf("%w: maxExitTime is required", domain.ErrValidation)
	}

	// Targets must march away from the stop: ascending for buys,
	// descending for sells
	for i, target := range input.Targets {
		if target <= 0 {
			return fmt.Errorf("%w: targets must be positive", domain.ErrValidation)
		}
		if i == 0 {
			continue
		}
		if input.Direction == domain.DirectionBuy && target <= input.Targets[i-1] {
			return fmt.Errorf("%w: buy targets must be strictly ascending", domain.ErrValidation)
		}
		if input.Direction == domain.DirectionSell && target >= input.Targets[i-1] {
			return fmt.Errorf("%w: sell targets must be strictly descending", domain.ErrValidation)
		}
	}

	if input.Direction == domain.DirectionBuy && input.StopLoss >= input.Targets[0] {
		return fmt.Errorf("%w: stopLoss must sit below the first buy target", domain.ErrValidation)
	}
	if input.Direction == domain.DirectionSell && input.StopLoss <= input.Targets[0] {
		return fmt.Errorf("%w: stopLoss must sit above the first sell target", domain.ErrValidation)
	}

	return nil
}

func validStatus(status string) bool {
	switch status {
	case domain.StatusUnopened, domain.StatusOpen, domain.StatusClosed:
		return true
	}
	return false
}
