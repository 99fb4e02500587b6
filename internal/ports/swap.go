package ports

import (
	"context"
	"errors"
)

// ErrNoSigner indicates the swap client has no signing material configured
// for automated submission. It is a distinct outcome, not a failure: orders
// move to PENDING_EXECUTION for manual completion.
var ErrNoSigner = errors.New("no signing material available")

// SwapIntent is the trade the engine wants executed.
type SwapIntent struct {
	Wallet      string
	TokenIn     string
	TokenOut    string
	AmountIn    float64
	SlippageBps int
}

// SwapQuote is the router's priced answer to an intent.
type SwapQuote struct {
	BuyAmount   float64
	FeeEstimate float64
	PriceImpact float64
	QuoteID     string
}

// SwapReceipt is the on-chain result of a submitted swap.
type SwapReceipt struct {
	TxHash     string
	BuyAmount  float64
	GasUsed    float64
	GasCostUSD float64
}

// SwapClient is the swap-router collaborator, treated as a black box: it
// prices an intent and executes it, returning the transaction result.
type SwapClient interface {
	// Quote requests a fresh quote for the intent.
	Quote(ctx context.Context, intent SwapIntent) (SwapQuote, error)

	// Execute signs and submits the swap. Returns ErrNoSigner when automated
	// submission is impossible; any other error is an execution failure.
	Execute(ctx context.Context, intent SwapIntent, quote SwapQuote) (SwapReceipt, error)
}
