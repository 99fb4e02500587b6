package orders

import (
	"context"
	"errors"
	"log/slog"

	"github.com/0xWizop/cypherx-engine/internal/domain"
	"github.com/0xWizop/cypherx-engine/internal/metrics"
	"github.com/0xWizop/cypherx-engine/internal/ports"
)

const (
	MaxMonitorBatch = 50
	MaxExecuteBatch = 10

	defaultSlippageBps = 100
)

// Config holds tuning for the order lifecycle engine.
type Config struct {
	MonitorBatch int
	ExecuteBatch int
	SlippageBps  int
}

// Engine advances limit and stop orders through their lifecycle. One
// instance is safe to run concurrently with others against the same
// store: claims are conditional writes, so an order is only ever
// executed by the pass that won it.
type Engine struct {
	store  ports.OrderStore
	oracle ports.PriceOracle
	swap   ports.SwapClient
	txlog  ports.TransactionLog
	cfg    Config
	log    *slog.Logger
}

// New creates an order lifecycle engine.
func New(
	store ports.OrderStore,
	oracle ports.PriceOracle,
	swap ports.SwapClient,
	txlog ports.TransactionLog,
	cfg Config,
	log *slog.Logger,
) *Engine {
	if cfg.MonitorBatch <= 0 || cfg.MonitorBatch > MaxMonitorBatch {
		cfg.MonitorBatch = MaxMonitorBatch
	}
	if cfg.ExecuteBatch <= 0 || cfg.ExecuteBatch > MaxExecuteBatch {
		cfg.ExecuteBatch = MaxExecuteBatch
	}
	if cfg.SlippageBps <= 0 {
		cfg.SlippageBps = defaultSlippageBps
	}
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		store:  store,
		oracle: oracle,
		swap:   swap,
		txlog:  txlog,
		cfg:    cfg,
		log:    log,
	}
}

// claim moves an order between statuses with a conditional write. It
// reports whether this engine won the claim; a lost race is not an error.
func (e *Engine) claim(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error) {
	err := e.store.TransitionOrder(ctx, id, from, to)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ports.ErrStaleStatus):
		metrics.OrderClaimRaces.Inc()
		e.log.Debug("lost order claim", "order_id", id, "from", from, "to", to)
		return false, nil
	default:
		return false, err
	}
}
