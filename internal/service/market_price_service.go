package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"signaltrack/internal/domain"
)

// MarketPriceService fetches real-time ticker prices over HTTP. It implements
// domain.PriceService against a Binance-compatible /api/v3/ticker/price
// endpoint.
type MarketPriceService struct {
	httpClient *http.Client
	baseURL    string
}

// NewMarketPriceService creates a new MarketPriceService
func NewMarketPriceService(baseURL string, timeout time.Duration) *MarketPriceService {
	return &MarketPriceService{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
	}
}

// FetchRealTimePrices fetches current prices for multiple symbols in one API
// call. Symbols the feed does not quote are simply absent from the returned
// map, with an ErrUnknownAsset naming them; the prices that were found are
// still returned so one bad asset never blocks the others.
func (s *MarketPriceService) FetchRealTimePrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	prices := make(map[string]float64)
	if len(symbols) == 0 {
		return prices, nil
	}

	url := fmt.Sprintf("%s/api/v3/ticker/price", s.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", domain.ErrFeedUnavailable, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status=%d, body=%s", domain.ErrFeedUnavailable, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", domain.ErrFeedUnavailable, err)
	}

	// The feed returns every ticker it knows about
	var tickers []struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(body, &tickers); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal response: %v", domain.ErrFeedUnavailable, err)
	}

	requested := make(map[string]bool)
	for _, symbol := range symbols {
		requested[strings.ToUpper(symbol)] = true
	}

	for _, ticker := range tickers {
		if !requested[ticker.Symbol] {
			continue
		}
		price, err := strconv.ParseFloat(ticker.Price, 64)
		if err != nil {
			continue
		}
		prices[ticker.Symbol] = price
	}

	if len(prices) != len(requested) {
		var missing []string
		for _, symbol := range symbols {
			if _, ok := prices[strings.ToUpper(symbol)]; !ok {
				missing = append(missing, symbol)
			}
		}
		return prices, fmt.Errorf("%w: %v", domain.ErrUnknownAsset, missing)
	}

	return prices, nil
}

// GetPrice fetches the current price for a single symbol
func (s *MarketPriceService) GetPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := s.FetchRealTimePrices(ctx, []string{symbol})
	if err != nil {
		return 0, err
	}

	price, ok := prices[strings.ToUpper(symbol)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownAsset, symbol)
	}

	return price, nil
}
