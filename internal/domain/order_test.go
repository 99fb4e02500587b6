package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validOrder(typ OrderType) Order {
	o := Order{
		Wallet:      "0xWallet",
		Type:        typ,
		TokenIn:     "0xETH",
		TokenOut:    "0xTOK",
		AmountIn:    1.5,
		SlippageBps: 100,
	}
	switch typ {
	case OrderTypeLimitBuy, OrderTypeLimitSell:
		o.TargetPrice = ptr(1.0)
	case OrderTypeStopLoss:
		o.StopPrice = ptr(1.0)
	case OrderTypeStopLimit:
		o.StopPrice = ptr(1.0)
		o.LimitPrice = ptr(0.9)
	}
	return o
}

func TestOrder_Validate(t *testing.T) {
	for _, typ := range []OrderType{OrderTypeLimitBuy, OrderTypeLimitSell, OrderTypeStopLoss, OrderTypeStopLimit} {
		o := validOrder(typ)
		assert.NoError(t, o.Validate(), "type %s", typ)
	}

	o := validOrder(OrderTypeLimitBuy)
	o.TargetPrice = nil
	assert.ErrorIs(t, o.Validate(), ErrMissingTargetPrice)

	o = validOrder(OrderTypeStopLimit)
	o.LimitPrice = nil
	assert.ErrorIs(t, o.Validate(), ErrMissingLimitPrice)

	o = validOrder(OrderTypeStopLoss)
	o.StopPrice = nil
	assert.ErrorIs(t, o.Validate(), ErrMissingStopPrice)

	o = validOrder(OrderTypeLimitBuy)
	o.AmountIn = 0
	assert.Error(t, o.Validate())

	o = validOrder(OrderTypeLimitBuy)
	o.Type = "MARKET"
	assert.Error(t, o.Validate())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(OrderStatusPending, OrderStatusExecuting))
	assert.True(t, CanTransition(OrderStatusPending, OrderStatusExpired))
	assert.True(t, CanTransition(OrderStatusPending, OrderStatusCancelled))
	assert.True(t, CanTransition(OrderStatusExecuting, OrderStatusExecuted))
	assert.True(t, CanTransition(OrderStatusExecuting, OrderStatusPendingExecution))
	assert.True(t, CanTransition(OrderStatusExecuting, OrderStatusFailed))

	// No shortcut from PENDING straight to EXECUTED, and terminals are final.
	assert.False(t, CanTransition(OrderStatusPending, OrderStatusExecuted))
	assert.False(t, CanTransition(OrderStatusExecuted, OrderStatusPending))
	assert.False(t, CanTransition(OrderStatusCancelled, OrderStatusExecuting))
	assert.False(t, CanTransition(OrderStatusExpired, OrderStatusExecuting))
	assert.False(t, CanTransition(OrderStatusExecuting, OrderStatusCancelled))
}

func TestOrderStatus_Terminal(t *testing.T) {
	terminal := []OrderStatus{
		OrderStatusExecuted, OrderStatusPendingExecution, OrderStatusFailed,
		OrderStatusCancelled, OrderStatusExpired,
	}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "status %s", s)
	}
	assert.False(t, OrderStatusPending.Terminal())
	assert.False(t, OrderStatusExecuting.Terminal())
}

func TestOrder_ExpiredAt(t *testing.T) {
	now := time.Now().UTC()
	deadline := now.Add(-time.Minute)

	o := Order{ExpiresAt: &deadline}
	assert.True(t, o.ExpiredAt(now))

	o.GoodTillCancel = true
	assert.False(t, o.ExpiredAt(now))

	assert.False(t, (&Order{}).ExpiredAt(now))

	future := now.Add(time.Minute)
	assert.False(t, (&Order{ExpiresAt: &future}).ExpiredAt(now))
}

func TestOrder_RecordSample_Cap(t *testing.T) {
	o := Order{}
	at := time.Now().UTC()
	for i := 0; i < MaxPriceSamples+20; i++ {
		o.RecordSample(float64(i), at.Add(time.Duration(i)*time.Second))
	}

	assert.Len(t, o.PriceHistory, MaxPriceSamples)
	assert.Equal(t, MaxPriceSamples+20, o.CheckCount)
	// Oldest samples dropped.
	assert.InDelta(t, 20.0, o.PriceHistory[0].Price, 1e-9)
}

func TestOrder_WatchToken(t *testing.T) {
	buy := validOrder(OrderTypeLimitBuy)
	assert.Equal(t, buy.TokenOut, buy.WatchToken())

	for _, typ := range []OrderType{OrderTypeLimitSell, OrderTypeStopLoss, OrderTypeStopLimit} {
		o := validOrder(typ)
		assert.Equal(t, o.TokenIn, o.WatchToken(), "type %s", typ)
	}
}

func TestOrder_NormalizeAddresses(t *testing.T) {
	o := validOrder(OrderTypeLimitBuy)
	o.NormalizeAddresses()
	assert.Equal(t, "0xwallet", o.Wallet)
	assert.Equal(t, "0xeth", o.TokenIn)
	assert.Equal(t, "0xtok", o.TokenOut)
}
