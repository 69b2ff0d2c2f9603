package domain

import "errors"

// Error taxonomy. Callers match with errors.Is; the store and feed
// implementations wrap these with context via fmt.Errorf("%w: ...").
var (
	// ErrValidation marks a malformed signal at creation. Rejected, not retried.
	ErrValidation = errors.New("validation error")

	// ErrStoreUnavailable marks the persistence backend as unreachable.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound marks a signal id that does not exist in the store.
	ErrNotFound = errors.New("signal not found")

	// ErrFeedUnavailable marks a price feed transport failure.
	ErrFeedUnavailable = errors.New("price feed unavailable")

	// ErrUnknownAsset marks a symbol the price feed does not quote.
	ErrUnknownAsset = errors.New("unknown asset")
)
