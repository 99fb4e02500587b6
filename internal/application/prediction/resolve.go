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

// ResolveResult summarizes one resolution pass over expired pools.
type ResolveResult struct {
	Candidates int
	Resolved   int
	Deferred   int
	Skipped    int
}

// Resolve settles every expired ACTIVE pool it can claim. A pool whose end
// price is unavailable is released back to ACTIVE and retried on a later
// pass; resolution never invents a price. Running Resolve twice is safe:
// the second pass finds nothing left to claim.
func (e *Engine) Resolve(ctx context.Context) (ResolveResult, error) {
	start := time.Now()
	defer func() {
		metrics.PassDuration.WithLabelValues("resolve").Observe(time.Since(start).Seconds())
	}()

	var res ResolveResult

	expired, err := e.pools.ListExpiredPools(ctx, time.Now().UTC(), e.cfg.ResolveBatch)
	if err != nil {
		return res, fmt.Errorf("prediction.Resolve: list expired: %w", err)
	}

	for i := range expired {
		p := &expired[i]
		res.Candidates++

		err := e.pools.TransitionPool(ctx, p.ID, domain.PoolStatusActive, domain.PoolStatusResolving)
		if errors.Is(err, ports.ErrStaleStatus) {
			res.Skipped++
			e.log.Debug("lost pool claim", "pool_id", p.ID)
			continue
		}
		if err != nil {
			e.log.Error("claim pool", "pool_id", p.ID, "error", err)
			continue
		}

		switch e.resolveOne(ctx, p) {
		case resolved:
			res.Resolved++
		case deferred:
			res.Deferred++
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
	}

	if res.Candidates > 0 {
		e.log.Info("resolve pass complete",
			"candidates", res.Candidates, "resolved", res.Resolved,
			"deferred", res.Deferred, "skipped", res.Skipped)
	}
	return res, nil
}

type resolveOutcome int

const (
	resolved resolveOutcome = iota
	deferred
)

// resolveOne settles a single claimed pool, or releases it if no end price
// can be obtained.
func (e *Engine) resolveOne(ctx context.Context, p *domain.PredictionPool) resolveOutcome {
	endPrice, err := e.oracle.GetPrice(ctx, p.TokenAddress)
	if err != nil || endPrice <= 0 {
		metrics.PoolResolutionDeferred.Inc()
		e.log.Warn("no end price, deferring resolution", "pool_id", p.ID, "token", p.TokenAddress)
		if rerr := e.pools.TransitionPool(ctx, p.ID, domain.PoolStatusResolving, domain.PoolStatusActive); rerr != nil {
			e.log.Error("release pool", "pool_id", p.ID, "error", rerr)
		}
		return deferred
	}

	outcome, changePct := domain.ResolveOutcome(p.Type, p.ThresholdPct, p.StartPrice, endPrice)
	participants, settlement := domain.ComputePayouts(p.Participants, outcome, p.TotalStaked, e.cfg.PerTradeGasUSD)

	p.Status = domain.PoolStatusResolved
	p.EndPrice = endPrice
	p.PriceChangePct = changePct
	p.Outcome = outcome
	p.Participants = participants

	// Pools with no winners have nothing to execute; everything else waits
	// for the payout pass when auto-execution is on.
	if e.cfg.AutoExecutePayouts && settlement.WinnerCount > 0 {
		p.ExecStatus = domain.ExecStatusPending
	} else {
		p.ExecStatus = domain.ExecStatusCompleted
	}

	if err := e.pools.SaveResolution(ctx, p); err != nil {
		// Release the claim so a later pass retries; a pool stuck in
		// RESOLVING is invisible to the expired-pool query.
		e.log.Error("save resolution", "pool_id", p.ID, "error", err)
		if rerr := e.pools.TransitionPool(ctx, p.ID, domain.PoolStatusResolving, domain.PoolStatusActive); rerr != nil {
			e.log.Error("release pool", "pool_id", p.ID, "error", rerr)
		}
		return deferred
	}

	metrics.PoolsResolved.WithLabelValues(string(outcome)).Inc()
	e.log.Info("pool resolved",
		"pool_id", p.ID, "type", p.Type, "outcome", outcome,
		"change_pct", fmt.Sprintf("%.2f", changePct),
		"winners", settlement.WinnerCount, "losers", settlement.LoserCount,
		"gas_fee_pool", settlement.GasFeePool, "pot", settlement.TotalPot)
	return resolved
}
