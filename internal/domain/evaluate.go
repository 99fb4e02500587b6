package domain

import "fmt"

// Evaluation is the outcome of checking an order against a price sample.
// Trigger means the order should be claimed for execution. Arm means a
// STOP_LIMIT order touched its stop price and the armed flag must be
// persisted even if the limit gate did not pass on this sample.
type Evaluation struct {
	Trigger bool
	Arm     bool
}

// EvaluateOrder decides whether an order should trigger at currentPrice.
// It is a pure function: no side effects, no clock, no I/O.
//
// A missing or zero price yields no decision — the order stays pending and
// only bookkeeping is updated by the caller.
//
//	LIMIT_BUY   triggers when price ≤ target
//	LIMIT_SELL  triggers when price ≥ target
//	STOP_LOSS   triggers when price ≤ stop
//	STOP_LIMIT  arms when price ≤ stop, then triggers when price ≥ limit
func EvaluateOrder(o Order, currentPrice float64) (Evaluation, error) {
	if currentPrice <= 0 {
		return Evaluation{}, nil
	}

	switch o.Type {
	case OrderTypeLimitBuy:
		if o.TargetPrice == nil {
			return Evaluation{}, ErrMissingTargetPrice
		}
		return Evaluation{Trigger: currentPrice <= *o.TargetPrice}, nil

	case OrderTypeLimitSell:
		if o.TargetPrice == nil {
			return Evaluation{}, ErrMissingTargetPrice
		}
		return Evaluation{Trigger: currentPrice >= *o.TargetPrice}, nil

	case OrderTypeStopLoss:
		if o.StopPrice == nil {
			return Evaluation{}, ErrMissingStopPrice
		}
		return Evaluation{Trigger: currentPrice <= *o.StopPrice}, nil

	case OrderTypeStopLimit:
		if o.StopPrice == nil {
			return Evaluation{}, ErrMissingStopPrice
		}
		if o.LimitPrice == nil {
			return Evaluation{}, ErrMissingLimitPrice
		}
		armed := o.StopArmed
		arm := false
		if !armed && currentPrice <= *o.StopPrice {
			armed = true
			arm = true
		}
		return Evaluation{
			Trigger: armed && currentPrice >= *o.LimitPrice,
			Arm:     arm,
		}, nil

	default:
		return Evaluation{}, fmt.Errorf("domain.EvaluateOrder: unknown order type %q", o.Type)
	}
}
