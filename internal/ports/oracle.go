package ports

import "context"

// PriceOracle resolves a token address to a current USD price.
//
// Unavailability of an upstream feed is not an error: implementations return
// 0 and the engines treat it as "no decision". Errors are reserved for hard
// failures (context cancellation, malformed responses).
type PriceOracle interface {
	GetPrice(ctx context.Context, tokenAddress string) (float64, error)
}

// PriceInvalidator is implemented by caching oracles that support explicit
// invalidation of a stale entry.
type PriceInvalidator interface {
	Invalidate(tokenAddress string)
	InvalidateAll()
}
