package domain

import "context"

// PriceService defines the interface for fetching market prices.
// Prices are best-effort: no freshness guarantee beyond the most recent
// known tick.
type PriceService interface {
	FetchRealTimePrices(ctx context.Context, symbols []string) (map[string]float64, error)
	GetPrice(ctx context.Context, symbol string) (float64, error)
}
