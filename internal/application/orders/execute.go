package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/0xWizop/cypherx-engine/internal/domain"
	"github.com/0xWizop/cypherx-engine/internal/metrics"
	"github.com/0xWizop/cypherx-engine/internal/ports"
)

// ExecuteResult summarizes one execution pass over claimed orders.
type ExecuteResult struct {
	Attempted      int
	Executed       int
	Failed         int
	AwaitingSigner int
}

// Execute drains up to ExecuteBatch claimed orders through the swap
// router. Each order's outcome is independent: one failed swap never
// blocks the rest of the batch.
func (e *Engine) Execute(ctx context.Context) (ExecuteResult, error) {
	start := time.Now()
	defer func() {
		metrics.PassDuration.WithLabelValues("execute").Observe(time.Since(start).Seconds())
	}()

	var res ExecuteResult

	claimed, err := e.store.ListOrdersByStatus(ctx, domain.OrderStatusExecuting, e.cfg.ExecuteBatch)
	if err != nil {
		return res, fmt.Errorf("orders.Execute: list claimed: %w", err)
	}

	for i := range claimed {
		o := &claimed[i]
		res.Attempted++

		switch outcome := e.executeOne(ctx, o); outcome {
		case domain.OrderStatusExecuted:
			res.Executed++
		case domain.OrderStatusPendingExecution:
			res.AwaitingSigner++
		default:
			res.Failed++
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
	}

	if res.Attempted > 0 {
		e.log.Info("execute pass complete",
			"attempted", res.Attempted, "executed", res.Executed,
			"failed", res.Failed, "awaiting_signer", res.AwaitingSigner)
	}
	return res, nil
}

// executeOne runs a single claimed order to a terminal (or parked)
// status and reports which one it reached.
func (e *Engine) executeOne(ctx context.Context, o *domain.Order) domain.OrderStatus {
	slippage := o.SlippageBps
	if slippage <= 0 {
		slippage = e.cfg.SlippageBps
	}
	intent := ports.SwapIntent{
		Wallet:      o.Wallet,
		TokenIn:     o.TokenIn,
		TokenOut:    o.TokenOut,
		AmountIn:    o.AmountIn,
		SlippageBps: slippage,
	}

	quote, err := e.swap.Quote(ctx, intent)
	if err != nil {
		e.fail(ctx, o, fmt.Sprintf("quote: %v", err))
		return domain.OrderStatusFailed
	}

	receipt, err := e.swap.Execute(ctx, intent, quote)
	if errors.Is(err, ports.ErrNoSigner) {
		// Not a failure: the order is valid and triggered, it just
		// needs a manual submission.
		if _, cerr := e.claim(ctx, o.ID, domain.OrderStatusExecuting, domain.OrderStatusPendingExecution); cerr != nil {
			e.log.Error("park order for manual execution", "order_id", o.ID, "error", cerr)
		}
		metrics.OrderExecutions.WithLabelValues("awaiting_signer").Inc()
		e.log.Info("order awaiting manual execution", "order_id", o.ID)
		return domain.OrderStatusPendingExecution
	}
	if err != nil {
		e.fail(ctx, o, fmt.Sprintf("execute: %v", err))
		return domain.OrderStatusFailed
	}
	if receipt.TxHash == "" {
		e.fail(ctx, o, "router returned no transaction hash")
		return domain.OrderStatusFailed
	}

	o.TxHash = receipt.TxHash
	o.BuyAmount = receipt.BuyAmount
	o.GasUsed = receipt.GasUsed
	o.GasCostUSD = receipt.GasCostUSD
	o.ErrorMessage = ""

	if err := e.store.FinishOrder(ctx, o, domain.OrderStatusExecuted); err != nil {
		e.log.Error("persist executed order", "order_id", o.ID, "tx_hash", receipt.TxHash, "error", err)
		return domain.OrderStatusFailed
	}
	metrics.OrderExecutions.WithLabelValues("executed").Inc()
	e.log.Info("order executed",
		"order_id", o.ID, "type", o.Type, "tx_hash", receipt.TxHash, "buy_amount", receipt.BuyAmount)

	e.recordTrade(ctx, o, receipt)
	return domain.OrderStatusExecuted
}

// fail moves a claimed order to FAILED with the reason attached.
func (e *Engine) fail(ctx context.Context, o *domain.Order, reason string) {
	o.ErrorMessage = reason
	if err := e.store.FinishOrder(ctx, o, domain.OrderStatusFailed); err != nil {
		e.log.Error("persist failed order", "order_id", o.ID, "error", err)
		return
	}
	metrics.OrderExecutions.WithLabelValues("failed").Inc()
	e.log.Warn("order failed", "order_id", o.ID, "reason", reason)
}

// recordTrade appends the completed swap to the transaction log so the
// ledger sees it. USD legs come from current oracle prices; if a feed is
// down the trade is still logged with zero USD values rather than lost.
func (e *Engine) recordTrade(ctx context.Context, o *domain.Order, receipt ports.SwapReceipt) {
	inPrice, err := e.oracle.GetPrice(ctx, o.TokenIn)
	if err != nil {
		inPrice = 0
	}
	outPrice, err := e.oracle.GetPrice(ctx, o.TokenOut)
	if err != nil {
		outPrice = 0
	}

	tx := domain.Transaction{
		Wallet:       o.Wallet,
		TxHash:       receipt.TxHash,
		TokenIn:      o.TokenIn,
		TokenOut:     o.TokenOut,
		AmountIn:     o.AmountIn,
		AmountOut:    receipt.BuyAmount,
		AmountInUSD:  o.AmountIn * inPrice,
		AmountOutUSD: receipt.BuyAmount * outPrice,
		GasCostUSD:   receipt.GasCostUSD,
		Timestamp:    time.Now().UTC(),
	}
	if err := e.txlog.Append(ctx, &tx); err != nil {
		e.log.Error("append transaction log", "order_id", o.ID, "tx_hash", receipt.TxHash, "error", err)
	}
}
