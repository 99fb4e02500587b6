package prediction

import (
	"log/slog"

	"github.com/0xWizop/cypherx-engine/internal/ports"
)

const (
	MaxResolveBatch = 10
	MaxPayoutBatch  = 10

	defaultPerTradeGasUSD = 0.50
)

// Config holds tuning for the settlement engine.
type Config struct {
	ResolveBatch int
	PayoutBatch  int

	// PerTradeGasUSD is the estimated gas cost of one payout swap; it sizes
	// the gas-fee pool carved out of loser stakes.
	PerTradeGasUSD float64

	// AutoExecutePayouts enables the winner payout pass. When off, resolved
	// pools complete immediately and payouts are settled off-engine.
	AutoExecutePayouts bool

	// SettlementToken is the asset winners are paid from. Payout swaps sell
	// this token for the pool's token.
	SettlementToken string
}

// Engine resolves expired prediction pools and pays out winners. Safe to
// run in multiple concurrent instances: pools are claimed with conditional
// status writes before any work is done on them.
type Engine struct {
	pools  ports.PoolStore
	oracle ports.PriceOracle
	swap   ports.SwapClient
	cfg    Config
	log    *slog.Logger
}

// New creates a prediction settlement engine.
func New(pools ports.PoolStore, oracle ports.PriceOracle, swap ports.SwapClient, cfg Config, log *slog.Logger) *Engine {
	if cfg.ResolveBatch <= 0 || cfg.ResolveBatch > MaxResolveBatch {
		cfg.ResolveBatch = MaxResolveBatch
	}
	if cfg.PayoutBatch <= 0 || cfg.PayoutBatch > MaxPayoutBatch {
		cfg.PayoutBatch = MaxPayoutBatch
	}
	if cfg.PerTradeGasUSD <= 0 {
		cfg.PerTradeGasUSD = defaultPerTradeGasUSD
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{pools: pools, oracle: oracle, swap: swap, cfg: cfg, log: log}
}
