package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// OrderType identifies the conditional order flavor.
type OrderType string

const (
	OrderTypeLimitBuy  OrderType = "LIMIT_BUY"
	OrderTypeLimitSell OrderType = "LIMIT_SELL"
	OrderTypeStopLoss  OrderType = "STOP_LOSS"
	OrderTypeStopLimit OrderType = "STOP_LIMIT"
)

// OrderStatus represents the lifecycle of a conditional order.
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "PENDING"
	OrderStatusExecuting        OrderStatus = "EXECUTING"
	OrderStatusExecuted         OrderStatus = "EXECUTED"
	OrderStatusPendingExecution OrderStatus = "PENDING_EXECUTION"
	OrderStatusFailed           OrderStatus = "FAILED"
	OrderStatusCancelled        OrderStatus = "CANCELLED"
	OrderStatusExpired          OrderStatus = "EXPIRED"
)

// ValidOrderTransitions defines the allowed edges of the order state machine.
// PENDING_EXECUTION is terminal for the engine: completing it requires a
// manual submission outside the automated path.
var ValidOrderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusExecuting, OrderStatusCancelled, OrderStatusExpired},
	OrderStatusExecuting: {OrderStatusExecuted, OrderStatusPendingExecution, OrderStatusFailed},
}

// CanTransition reports whether from → to is a legal order transition.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range ValidOrderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the engine will never move the order again.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusExecuted, OrderStatusPendingExecution, OrderStatusFailed,
		OrderStatusCancelled, OrderStatusExpired:
		return true
	}
	return false
}

// MaxPriceSamples bounds the per-order price history kept for diagnostics.
const MaxPriceSamples = 100

// PriceSample is one observed price during a monitor pass.
type PriceSample struct {
	Price float64   `json:"price"`
	At    time.Time `json:"at"`
}

// Order is a persisted conditional order owned by a wallet. Target, stop and
// limit prices are pointers so that a missing required field is detectable
// instead of silently reading as zero.
type Order struct {
	ID          string
	Wallet      string
	Type        OrderType
	TokenIn     string
	TokenOut    string
	AmountIn    float64
	TargetPrice *float64
	StopPrice   *float64
	LimitPrice  *float64
	SlippageBps int

	Status       OrderStatus
	ErrorMessage string

	ExpiresAt      *time.Time
	GoodTillCancel bool

	// StopArmed is set once a STOP_LIMIT order has touched its stop price;
	// from then on only the limit gate applies.
	StopArmed bool

	CheckCount    int
	LastCheckedAt *time.Time
	PriceHistory  []PriceSample

	// Execution result, populated on EXECUTED.
	TxHash     string
	BuyAmount  float64
	GasUsed    float64
	GasCostUSD float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Order validation errors.
var (
	ErrMissingTargetPrice = errors.New("target price required")
	ErrMissingStopPrice   = errors.New("stop price required")
	ErrMissingLimitPrice  = errors.New("limit price required")
)

// Validate checks the per-type required fields and basic sanity. Orders that
// fail validation are rejected at creation and never persisted.
func (o *Order) Validate() error {
	if o.Wallet == "" {
		return errors.New("wallet address required")
	}
	if o.TokenIn == "" || o.TokenOut == "" {
		return errors.New("token_in and token_out required")
	}
	if o.AmountIn <= 0 {
		return errors.New("amount_in must be positive")
	}
	if o.SlippageBps < 0 || o.SlippageBps > 10000 {
		return fmt.Errorf("slippage_bps %d out of range [0,10000]", o.SlippageBps)
	}

	switch o.Type {
	case OrderTypeLimitBuy, OrderTypeLimitSell:
		if o.TargetPrice == nil || *o.TargetPrice <= 0 {
			return ErrMissingTargetPrice
		}
	case OrderTypeStopLoss:
		if o.StopPrice == nil || *o.StopPrice <= 0 {
			return ErrMissingStopPrice
		}
	case OrderTypeStopLimit:
		if o.StopPrice == nil || *o.StopPrice <= 0 {
			return ErrMissingStopPrice
		}
		if o.LimitPrice == nil || *o.LimitPrice <= 0 {
			return ErrMissingLimitPrice
		}
	default:
		return fmt.Errorf("unknown order type %q", o.Type)
	}
	return nil
}

// ExpiredAt reports whether the order's deadline has passed at the given time.
// Good-till-cancel orders never expire.
func (o *Order) ExpiredAt(now time.Time) bool {
	if o.GoodTillCancel || o.ExpiresAt == nil {
		return false
	}
	return now.After(*o.ExpiresAt)
}

// WatchToken returns the token whose USD price gates this order: buys watch
// the token being acquired, sell-side orders watch the token being sold.
func (o *Order) WatchToken() string {
	if o.Type == OrderTypeLimitBuy {
		return o.TokenOut
	}
	return o.TokenIn
}

// RecordSample appends a price observation, dropping the oldest beyond the cap.
func (o *Order) RecordSample(price float64, at time.Time) {
	o.PriceHistory = append(o.PriceHistory, PriceSample{Price: price, At: at})
	if len(o.PriceHistory) > MaxPriceSamples {
		o.PriceHistory = o.PriceHistory[len(o.PriceHistory)-MaxPriceSamples:]
	}
	o.CheckCount++
	t := at
	o.LastCheckedAt = &t
}

// NormalizeAddresses lowercases token and wallet addresses so storage and the
// ledger agree on identity.
func (o *Order) NormalizeAddresses() {
	o.Wallet = strings.ToLower(o.Wallet)
	o.TokenIn = strings.ToLower(o.TokenIn)
	o.TokenOut = strings.ToLower(o.TokenOut)
}
