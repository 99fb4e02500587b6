package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestEvaluateOrder_LimitBuy(t *testing.T) {
	tests := []struct {
		name    string
		price   float64
		trigger bool
	}{
		{"below target", 0.90, true},
		{"at target", 1.00, true},
		{"above target", 1.10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Order{Type: OrderTypeLimitBuy, TargetPrice: ptr(1.00)}
			ev, err := EvaluateOrder(o, tt.price)
			require.NoError(t, err)
			assert.Equal(t, tt.trigger, ev.Trigger)
			assert.False(t, ev.Arm)
		})
	}
}

func TestEvaluateOrder_LimitSell(t *testing.T) {
	tests := []struct {
		name    string
		price   float64
		trigger bool
	}{
		{"below target", 1.90, false},
		{"at target", 2.00, true},
		{"above target", 2.10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Order{Type: OrderTypeLimitSell, TargetPrice: ptr(2.00)}
			ev, err := EvaluateOrder(o, tt.price)
			require.NoError(t, err)
			assert.Equal(t, tt.trigger, ev.Trigger)
		})
	}
}

func TestEvaluateOrder_StopLoss(t *testing.T) {
	tests := []struct {
		name    string
		price   float64
		trigger bool
	}{
		{"above stop", 1.60, false},
		{"at stop", 1.50, true},
		{"below stop", 1.40, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Order{Type: OrderTypeStopLoss, StopPrice: ptr(1.50)}
			ev, err := EvaluateOrder(o, tt.price)
			require.NoError(t, err)
			assert.Equal(t, tt.trigger, ev.Trigger)
		})
	}
}

func TestEvaluateOrder_StopLimit(t *testing.T) {
	tests := []struct {
		name    string
		armed   bool
		price   float64
		trigger bool
		arm     bool
	}{
		{"not armed, above stop", false, 1.20, false, false},
		{"not armed, at stop within limit", false, 1.00, true, true},
		{"not armed, below limit", false, 0.80, false, true},
		{"armed, above limit", true, 1.20, true, false},
		{"armed, at limit", true, 0.90, true, false},
		{"armed, below limit", true, 0.80, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Order{
				Type:       OrderTypeStopLimit,
				StopPrice:  ptr(1.00),
				LimitPrice: ptr(0.90),
				StopArmed:  tt.armed,
			}
			ev, err := EvaluateOrder(o, tt.price)
			require.NoError(t, err)
			assert.Equal(t, tt.trigger, ev.Trigger, "trigger")
			assert.Equal(t, tt.arm, ev.Arm, "arm")
		})
	}
}

func TestEvaluateOrder_ZeroPriceNoDecision(t *testing.T) {
	for _, typ := range []OrderType{OrderTypeLimitBuy, OrderTypeLimitSell, OrderTypeStopLoss, OrderTypeStopLimit} {
		o := Order{
			Type:        typ,
			TargetPrice: ptr(1.0),
			StopPrice:   ptr(1.0),
			LimitPrice:  ptr(0.9),
		}
		ev, err := EvaluateOrder(o, 0)
		require.NoError(t, err)
		assert.False(t, ev.Trigger, "type %s", typ)
		assert.False(t, ev.Arm, "type %s", typ)
	}
}

func TestEvaluateOrder_MissingFields(t *testing.T) {
	_, err := EvaluateOrder(Order{Type: OrderTypeLimitBuy}, 1.0)
	assert.ErrorIs(t, err, ErrMissingTargetPrice)

	_, err = EvaluateOrder(Order{Type: OrderTypeStopLimit, StopPrice: ptr(1.0)}, 1.0)
	assert.ErrorIs(t, err, ErrMissingLimitPrice)

	_, err = EvaluateOrder(Order{Type: "TRAILING_STOP"}, 1.0)
	assert.Error(t, err)
}
