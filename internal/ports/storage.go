package ports

import (
	"context"
	"errors"
	"time"

	"github.com/0xWizop/cypherx-engine/internal/domain"
)

// Storage sentinel errors.
var (
	ErrOrderNotFound = errors.New("order not found")
	ErrPoolNotFound  = errors.New("pool not found")
	ErrNotOwner      = errors.New("order owned by a different wallet")

	// ErrStaleStatus means a conditional write found the entity's status
	// already changed — another pass claimed it first. Callers skip the
	// entity; this is a lost race, not a failure.
	ErrStaleStatus = errors.New("stale status: entity already claimed")
)

// OrderStore persists conditional orders and owns their status transitions.
// Every transition out of a non-terminal status is a conditional write: it is
// durable only if the stored status still matches the expected pre-state.
type OrderStore interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	ListOrdersByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error)
	ListOrdersByWallet(ctx context.Context, wallet string) ([]domain.Order, error)

	// TransitionOrder performs the compare-and-swap from → to.
	TransitionOrder(ctx context.Context, id string, from, to domain.OrderStatus) error

	// CancelOrder is the owner-initiated PENDING → CANCELLED conditional
	// write; it also verifies ownership.
	CancelOrder(ctx context.Context, id, wallet string) error

	// RecordOrderCheck persists monitor bookkeeping (check count, last
	// checked time, bounded price history, stop-armed flag) without
	// touching the status.
	RecordOrderCheck(ctx context.Context, o *domain.Order) error

	// FinishOrder moves a claimed order to its execution outcome (EXECUTED,
	// PENDING_EXECUTION or FAILED), recording the result fields.
	FinishOrder(ctx context.Context, o *domain.Order, to domain.OrderStatus) error
}

// PoolStore persists prediction pools, their participants, and resolution.
type PoolStore interface {
	CreatePool(ctx context.Context, p *domain.PredictionPool) error
	GetPool(ctx context.Context, id string) (domain.PredictionPool, error)

	// ListExpiredPools returns ACTIVE pools whose end time has passed.
	ListExpiredPools(ctx context.Context, now time.Time, limit int) ([]domain.PredictionPool, error)

	// ListPoolsByExecStatus returns RESOLVED pools in the given execution state.
	ListPoolsByExecStatus(ctx context.Context, es domain.ExecStatus, limit int) ([]domain.PredictionPool, error)

	// TransitionPool performs the compare-and-swap from → to on pool status.
	TransitionPool(ctx context.Context, id string, from, to domain.PoolStatus) error

	// TransitionPoolExec performs the compare-and-swap on execution status.
	TransitionPoolExec(ctx context.Context, id string, from, to domain.ExecStatus) error

	// JoinPool appends a participant; rejects duplicates per wallet and
	// entries into non-ACTIVE pools.
	JoinPool(ctx context.Context, poolID string, p domain.Participant) error

	// SaveResolution persists the resolved pool: outcome, end price, price
	// change, per-participant payouts, and execution status. Conditional on
	// the pool still being RESOLVING.
	SaveResolution(ctx context.Context, p *domain.PredictionPool) error
}

// TransactionLog is the append-only record of completed swaps. Entries are
// written once by the execution path and read back in ascending timestamp
// order, which the FIFO ledger depends on.
type TransactionLog interface {
	Append(ctx context.Context, tx *domain.Transaction) error
	ListByWallet(ctx context.Context, wallet string) ([]domain.Transaction, error)
	ListByWalletYear(ctx context.Context, wallet string, year int) ([]domain.Transaction, error)
}
