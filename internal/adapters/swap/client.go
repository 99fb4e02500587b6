package swap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/0xWizop/cypherx-engine/internal/ports"
)

const (
	quoteRatePerSec = 10

	quoteRetries  = 2
	baseRetryWait = 250 * time.Millisecond
)

// Client talks to the swap router. It quotes intents and, when signing
// material is configured, submits them. Execution is never retried here:
// a submission whose outcome is unknown must not be sent twice.
type Client struct {
	http         *http.Client
	base         string
	signerKey    string
	quoteLimiter *rate.Limiter
}

// NewClient creates a swap client. signerKey may be empty, in which case
// Execute reports ports.ErrNoSigner and orders fall through to manual
// completion.
func NewClient(base, signerKey string) *Client {
	return &Client{
		http:         &http.Client{Timeout: 30 * time.Second},
		base:         base,
		signerKey:    signerKey,
		quoteLimiter: rate.NewLimiter(quoteRatePerSec, 5),
	}
}

// CanSign reports whether automated submission is possible.
func (c *Client) CanSign() bool {
	return c.signerKey != ""
}

type quoteRequest struct {
	TokenIn     string  `json:"tokenIn"`
	TokenOut    string  `json:"tokenOut"`
	AmountIn    float64 `json:"amountIn"`
	SlippageBps int     `json:"slippageBps"`
}

type quoteResponse struct {
	QuoteID     string  `json:"quoteId"`
	BuyAmount   float64 `json:"buyAmount"`
	FeeEstimate float64 `json:"feeEstimate"`
	PriceImpact float64 `json:"priceImpact"`
}

// Quote requests a fresh quote for the intent, with bounded retries on
// transient upstream failures.
func (c *Client) Quote(ctx context.Context, intent ports.SwapIntent) (ports.SwapQuote, error) {
	req := quoteRequest{
		TokenIn:     intent.TokenIn,
		TokenOut:    intent.TokenOut,
		AmountIn:    intent.AmountIn,
		SlippageBps: intent.SlippageBps,
	}

	var resp quoteResponse
	if err := c.postWithRetry(ctx, c.base+"/v1/quote", req, &resp); err != nil {
		return ports.SwapQuote{}, fmt.Errorf("swap.Quote: %w", err)
	}
	if resp.BuyAmount <= 0 {
		return ports.SwapQuote{}, fmt.Errorf("swap.Quote: router returned empty quote")
	}
	return ports.SwapQuote{
		QuoteID:     resp.QuoteID,
		BuyAmount:   resp.BuyAmount,
		FeeEstimate: resp.FeeEstimate,
		PriceImpact: resp.PriceImpact,
	}, nil
}

type executeRequest struct {
	QuoteID     string  `json:"quoteId"`
	Wallet      string  `json:"wallet"`
	TokenIn     string  `json:"tokenIn"`
	TokenOut    string  `json:"tokenOut"`
	AmountIn    float64 `json:"amountIn"`
	SlippageBps int     `json:"slippageBps"`
	SignerKey   string  `json:"signerKey"`
}

type executeResponse struct {
	TxHash     string  `json:"transactionHash"`
	BuyAmount  float64 `json:"buyAmount"`
	GasUsed    float64 `json:"gasUsed"`
	GasCostUSD float64 `json:"gasCostUsd"`
}

// Execute signs and submits the swap. A router success without a transaction
// hash is treated as a failure: the caller needs a hash to record the trade.
func (c *Client) Execute(ctx context.Context, intent ports.SwapIntent, quote ports.SwapQuote) (ports.SwapReceipt, error) {
	if !c.CanSign() {
		return ports.SwapReceipt{}, ports.ErrNoSigner
	}

	req := executeRequest{
		QuoteID:     quote.QuoteID,
		Wallet:      intent.Wallet,
		TokenIn:     intent.TokenIn,
		TokenOut:    intent.TokenOut,
		AmountIn:    intent.AmountIn,
		SlippageBps: intent.SlippageBps,
		SignerKey:   c.signerKey,
	}

	var resp executeResponse
	if err := c.post(ctx, c.base+"/v1/execute", req, &resp); err != nil {
		return ports.SwapReceipt{}, fmt.Errorf("swap.Execute: %w", err)
	}
	if resp.TxHash == "" {
		return ports.SwapReceipt{}, fmt.Errorf("swap.Execute: router returned no transaction hash")
	}
	return ports.SwapReceipt{
		TxHash:     resp.TxHash,
		BuyAmount:  resp.BuyAmount,
		GasUsed:    resp.GasUsed,
		GasCostUSD: resp.GasCostUSD,
	}, nil
}

func (c *Client) postWithRetry(ctx context.Context, url string, body, out any) error {
	var lastErr error
	for attempt := 0; attempt <= quoteRetries; attempt++ {
		if err := c.quoteLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		if lastErr = c.post(ctx, url, body, out); lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		select {
		case <-time.After(time.Duration(attempt+1) * baseRetryWait):
		case <-ctx.Done():
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) post(ctx context.Context, url string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("router error %d: %s", resp.StatusCode, string(msg))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
