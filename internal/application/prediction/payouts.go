package prediction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/0xWizop/cypherx-engine/internal/domain"
	"github.com/0xWizop/cypherx-engine/internal/metrics"
	"github.com/0xWizop/cypherx-engine/internal/ports"
)

// PayoutResult summarizes one payout pass over resolved pools.
type PayoutResult struct {
	Pools     int
	Completed int
	Failed    int
	Deferred  int
	Winners   int
}

// Payouts executes winner payouts for resolved pools awaiting execution.
// Each pool is claimed PENDING → EXECUTING first, so concurrent passes
// never pay the same pool twice. A missing signer releases the pool back
// to PENDING; any swap failure marks the pool FAILED for operator review
// rather than retrying blind.
func (e *Engine) Payouts(ctx context.Context) (PayoutResult, error) {
	start := time.Now()
	defer func() {
		metrics.PassDuration.WithLabelValues("payouts").Observe(time.Since(start).Seconds())
	}()

	var res PayoutResult

	pending, err := e.pools.ListPoolsByExecStatus(ctx, domain.ExecStatusPending, e.cfg.PayoutBatch)
	if err != nil {
		return res, fmt.Errorf("prediction.Payouts: list pending: %w", err)
	}

	for i := range pending {
		p := &pending[i]

		err := e.pools.TransitionPoolExec(ctx, p.ID, domain.ExecStatusPending, domain.ExecStatusExecuting)
		if errors.Is(err, ports.ErrStaleStatus) {
			e.log.Debug("lost payout claim", "pool_id", p.ID)
			continue
		}
		if err != nil {
			e.log.Error("claim payout", "pool_id", p.ID, "error", err)
			continue
		}
		res.Pools++

		paid, perr := e.payoutPool(ctx, p)
		res.Winners += paid
		switch {
		case errors.Is(perr, ports.ErrNoSigner):
			res.Deferred++
			if rerr := e.pools.TransitionPoolExec(ctx, p.ID, domain.ExecStatusExecuting, domain.ExecStatusPending); rerr != nil {
				e.log.Error("release payout", "pool_id", p.ID, "error", rerr)
			}
			e.log.Info("payouts awaiting signer", "pool_id", p.ID)
		case perr != nil:
			res.Failed++
			metrics.WinnerPayouts.WithLabelValues("failed").Inc()
			if ferr := e.pools.TransitionPoolExec(ctx, p.ID, domain.ExecStatusExecuting, domain.ExecStatusFailed); ferr != nil {
				e.log.Error("mark payout failed", "pool_id", p.ID, "error", ferr)
			}
			e.log.Error("payout failed", "pool_id", p.ID, "paid", paid, "error", perr)
		default:
			res.Completed++
			if cerr := e.pools.TransitionPoolExec(ctx, p.ID, domain.ExecStatusExecuting, domain.ExecStatusCompleted); cerr != nil {
				e.log.Error("complete payout", "pool_id", p.ID, "error", cerr)
			}
			e.log.Info("pool payouts complete", "pool_id", p.ID, "winners", paid)
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
	}

	if res.Pools > 0 {
		e.log.Info("payout pass complete",
			"pools", res.Pools, "completed", res.Completed,
			"failed", res.Failed, "deferred", res.Deferred, "winners", res.Winners)
	}
	return res, nil
}

// payoutPool swaps each winner's payout from the settlement token into the
// pool's token. Returns how many winners were paid before any error.
func (e *Engine) payoutPool(ctx context.Context, p *domain.PredictionPool) (int, error) {
	settlePrice, err := e.oracle.GetPrice(ctx, e.cfg.SettlementToken)
	if err != nil {
		return 0, fmt.Errorf("settlement token price: %w", err)
	}
	if settlePrice <= 0 {
		return 0, fmt.Errorf("no price for settlement token %s", e.cfg.SettlementToken)
	}

	paid := 0
	for _, part := range p.Participants {
		if part.IsWinner == nil || !*part.IsWinner || part.Payout <= 0 {
			continue
		}

		intent := ports.SwapIntent{
			Wallet:      part.Wallet,
			TokenIn:     e.cfg.SettlementToken,
			TokenOut:    p.TokenAddress,
			AmountIn:    part.Payout / settlePrice,
			SlippageBps: 100,
		}

		quote, err := e.swap.Quote(ctx, intent)
		if err != nil {
			return paid, fmt.Errorf("quote winner %s: %w", part.Wallet, err)
		}
		receipt, err := e.swap.Execute(ctx, intent, quote)
		if err != nil {
			return paid, fmt.Errorf("pay winner %s: %w", part.Wallet, err)
		}

		paid++
		metrics.WinnerPayouts.WithLabelValues("executed").Inc()
		e.log.Info("winner paid",
			"pool_id", p.ID, "wallet", part.Wallet,
			"payout_usd", part.Payout, "tx_hash", receipt.TxHash)
	}
	return paid, nil
}
