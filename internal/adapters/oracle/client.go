package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Feed rate limits kept well under the documented provider limits.
	primaryRatePerSec  = 20
	fallbackRatePerSec = 10

	maxRetries    = 2
	baseRetryWait = 250 * time.Millisecond
)

// Client resolves token addresses to USD prices from a primary feed with an
// optional fallback. Upstream unavailability is swallowed: the engines get a
// zero price ("no decision"), never an error they would have to classify.
type Client struct {
	http            *http.Client
	primaryBase     string
	fallbackBase    string
	primaryLimiter  *rate.Limiter
	fallbackLimiter *rate.Limiter
}

// NewClient creates a price client for the given feed base URLs. fallbackBase
// may be empty.
func NewClient(primaryBase, fallbackBase string) *Client {
	return &Client{
		http:            &http.Client{Timeout: 10 * time.Second},
		primaryBase:     primaryBase,
		fallbackBase:    fallbackBase,
		primaryLimiter:  rate.NewLimiter(primaryRatePerSec, 5),
		fallbackLimiter: rate.NewLimiter(fallbackRatePerSec, 5),
	}
}

type priceResponse struct {
	Token    string  `json:"token"`
	PriceUSD float64 `json:"priceUsd"`
}

// GetPrice returns the current USD price for the token, or 0 when no feed has
// one. Only context cancellation surfaces as an error.
func (c *Client) GetPrice(ctx context.Context, tokenAddress string) (float64, error) {
	price, err := c.fetch(ctx, c.primaryLimiter, c.primaryBase, tokenAddress)
	if err == nil && price > 0 {
		return price, nil
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	if err != nil {
		slog.Warn("oracle: primary feed unavailable", "token", tokenAddress, "err", err)
	}

	if c.fallbackBase == "" {
		return 0, nil
	}
	price, err = c.fetch(ctx, c.fallbackLimiter, c.fallbackBase, tokenAddress)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		slog.Warn("oracle: fallback feed unavailable", "token", tokenAddress, "err", err)
		return 0, nil
	}
	return price, nil
}

// fetch does a GET with rate limiting and bounded retries.
func (c *Client) fetch(ctx context.Context, limiter *rate.Limiter, base, token string) (float64, error) {
	endpoint := fmt.Sprintf("%s/v1/price?token=%s", base, url.QueryEscape(token))

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return 0, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return 0, fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return 0, fmt.Errorf("feed error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			// Unknown token on this feed — not an error, just no price.
			resp.Body.Close()
			return 0, nil
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return 0, fmt.Errorf("feed error %d: %s", resp.StatusCode, string(body))
		}

		var out priceResponse
		err = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if err != nil {
			return 0, fmt.Errorf("decode response: %w", err)
		}
		return out.PriceUSD, nil
	}
	return 0, fmt.Errorf("exhausted %d retries", maxRetries)
}

func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
