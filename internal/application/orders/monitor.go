package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/0xWizop/cypherx-engine/internal/domain"
	"github.com/0xWizop/cypherx-engine/internal/metrics"
)

// MonitorResult summarizes one monitoring pass over pending orders.
type MonitorResult struct {
	Checked   int
	Triggered int
	Expired   int
	Skipped   int
}

// Monitor evaluates up to MonitorBatch pending orders against current
// prices. Expired orders are retired before any evaluation; orders whose
// condition fires are claimed into EXECUTING for the next execution pass.
// A feed outage for a token skips its orders without failing the pass.
func (e *Engine) Monitor(ctx context.Context) (MonitorResult, error) {
	start := time.Now()
	defer func() {
		metrics.PassDuration.WithLabelValues("monitor").Observe(time.Since(start).Seconds())
	}()

	var res MonitorResult

	pending, err := e.store.ListOrdersByStatus(ctx, domain.OrderStatusPending, e.cfg.MonitorBatch)
	if err != nil {
		return res, fmt.Errorf("orders.Monitor: list pending: %w", err)
	}
	if len(pending) == 0 {
		return res, nil
	}

	// One price fetch per distinct watched token for the whole batch.
	prices := make(map[string]float64)
	now := time.Now().UTC()

	for i := range pending {
		o := &pending[i]
		res.Checked++
		metrics.OrdersChecked.Inc()

		if o.ExpiredAt(now) {
			won, err := e.claim(ctx, o.ID, domain.OrderStatusPending, domain.OrderStatusExpired)
			if err != nil {
				e.log.Error("expire order", "order_id", o.ID, "error", err)
				continue
			}
			if won {
				res.Expired++
				metrics.OrdersExpired.Inc()
				e.log.Info("order expired", "order_id", o.ID, "type", o.Type)
			}
			continue
		}

		token := o.WatchToken()
		price, ok := prices[token]
		if !ok {
			price, err = e.oracle.GetPrice(ctx, token)
			if err != nil {
				return res, fmt.Errorf("orders.Monitor: price %s: %w", token, err)
			}
			prices[token] = price
		}
		if price <= 0 {
			res.Skipped++
			e.log.Debug("no price for token, skipping", "token", token, "order_id", o.ID)
			continue
		}

		ev, err := domain.EvaluateOrder(*o, price)
		if err != nil {
			res.Skipped++
			e.log.Warn("unevaluable order", "order_id", o.ID, "error", err)
			continue
		}

		if ev.Trigger {
			won, err := e.claim(ctx, o.ID, domain.OrderStatusPending, domain.OrderStatusExecuting)
			if err != nil {
				e.log.Error("claim triggered order", "order_id", o.ID, "error", err)
				continue
			}
			if won {
				res.Triggered++
				metrics.OrdersTriggered.Inc()
				e.log.Info("order triggered",
					"order_id", o.ID, "type", o.Type, "token", token, "price", price)
			}
			continue
		}

		if ev.Arm && !o.StopArmed {
			o.StopArmed = true
			e.log.Info("stop limit armed", "order_id", o.ID, "price", price)
		}
		o.RecordSample(price, now)
		if err := e.store.RecordOrderCheck(ctx, o); err != nil {
			e.log.Error("record order check", "order_id", o.ID, "error", err)
		}
	}

	e.log.Info("monitor pass complete",
		"checked", res.Checked, "triggered", res.Triggered,
		"expired", res.Expired, "skipped", res.Skipped)
	return res, nil
}
