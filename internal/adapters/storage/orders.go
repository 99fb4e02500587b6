package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/0xWizop/cypherx-engine/internal/domain"
	"github.com/0xWizop/cypherx-engine/internal/ports"
)

const orderColumns = `id, wallet, type, token_in, token_out, amount_in,
	target_price, stop_price, limit_price, slippage_bps, status, error_message,
	expires_at, good_till_cancel, stop_armed, check_count, last_checked_at,
	price_history, tx_hash, buy_amount, gas_used, gas_cost_usd, created_at, updated_at`

// CreateOrder persists a new order. The caller is expected to have validated
// and normalized it; timestamps are set here.
func (s *SQLiteStore) CreateOrder(ctx context.Context, o *domain.Order) error {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	history, err := json.Marshal(o.PriceHistory)
	if err != nil {
		return fmt.Errorf("storage.CreateOrder: marshal history: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (id, wallet, type, token_in, token_out, amount_in,
			target_price, stop_price, limit_price, slippage_bps, status, error_message,
			expires_at, good_till_cancel, stop_armed, check_count, last_checked_at,
			price_history, tx_hash, buy_amount, gas_used, gas_cost_usd, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Wallet, o.Type, o.TokenIn, o.TokenOut, o.AmountIn,
		o.TargetPrice, o.StopPrice, o.LimitPrice, o.SlippageBps, o.Status, o.ErrorMessage,
		o.ExpiresAt, o.GoodTillCancel, o.StopArmed, o.CheckCount, o.LastCheckedAt,
		string(history), o.TxHash, o.BuyAmount, o.GasUsed, o.GasCostUSD, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage.CreateOrder: %w", err)
	}
	return nil
}

// GetOrder returns the order with the given ID.
func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, ports.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("storage.GetOrder: %w", err)
	}
	return o, nil
}

// ListOrdersByStatus returns up to limit orders in the given status, oldest
// first so long-waiting orders are evaluated before fresh ones.
func (s *SQLiteStore) ListOrdersByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = ? ORDER BY created_at ASC LIMIT ?`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ListOrdersByStatus: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

// ListOrdersByWallet returns all orders owned by a wallet, newest first.
func (s *SQLiteStore) ListOrdersByWallet(ctx context.Context, wallet string) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE wallet = ? ORDER BY created_at DESC`, wallet)
	if err != nil {
		return nil, fmt.Errorf("storage.ListOrdersByWallet: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

// TransitionOrder performs the compare-and-swap from → to. Returns
// ports.ErrStaleStatus when the stored status no longer matches from, and
// ports.ErrOrderNotFound when the order does not exist at all.
func (s *SQLiteStore) TransitionOrder(ctx context.Context, id string, from, to domain.OrderStatus) error {
	if !domain.CanTransition(from, to) {
		return fmt.Errorf("storage.TransitionOrder: illegal transition %s → %s", from, to)
	}
	return s.casUpdate(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		s.probeOrder(id),
		to, time.Now().UTC(), id, from,
	)
}

// CancelOrder is the owner-initiated PENDING → CANCELLED conditional write.
func (s *SQLiteStore) CancelOrder(ctx context.Context, id, wallet string) error {
	var owner string
	err := s.db.QueryRowContext(ctx, `SELECT wallet FROM orders WHERE id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("storage.CancelOrder: %w", err)
	}
	if owner != wallet {
		return ports.ErrNotOwner
	}
	return s.casUpdate(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		s.probeOrder(id),
		domain.OrderStatusCancelled, time.Now().UTC(), id, domain.OrderStatusPending,
	)
}

// RecordOrderCheck persists monitor bookkeeping without touching the status.
func (s *SQLiteStore) RecordOrderCheck(ctx context.Context, o *domain.Order) error {
	history, err := json.Marshal(o.PriceHistory)
	if err != nil {
		return fmt.Errorf("storage.RecordOrderCheck: marshal history: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE orders
		SET check_count = ?, last_checked_at = ?, price_history = ?, stop_armed = ?, updated_at = ?
		WHERE id = ?`,
		o.CheckCount, o.LastCheckedAt, string(history), o.StopArmed, time.Now().UTC(), o.ID,
	)
	if err != nil {
		return fmt.Errorf("storage.RecordOrderCheck: %w", err)
	}
	return nil
}

// FinishOrder moves a claimed (EXECUTING) order to its execution outcome,
// recording the transaction result or the error message.
func (s *SQLiteStore) FinishOrder(ctx context.Context, o *domain.Order, to domain.OrderStatus) error {
	if !domain.CanTransition(domain.OrderStatusExecuting, to) {
		return fmt.Errorf("storage.FinishOrder: illegal outcome %s", to)
	}
	return s.casUpdate(ctx, `
		UPDATE orders
		SET status = ?, error_message = ?, tx_hash = ?, buy_amount = ?, gas_used = ?, gas_cost_usd = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		s.probeOrder(o.ID),
		to, o.ErrorMessage, o.TxHash, o.BuyAmount, o.GasUsed, o.GasCostUSD, time.Now().UTC(),
		o.ID, domain.OrderStatusExecuting,
	)
}

// probeOrder distinguishes a lost race from a missing row after a CAS miss.
func (s *SQLiteStore) probeOrder(id string) func(context.Context) error {
	return func(ctx context.Context) error {
		var status string
		err := s.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ports.ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		return ports.ErrStaleStatus
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o             domain.Order
		expiresAt     sql.NullTime
		lastChecked   sql.NullTime
		target        sql.NullFloat64
		stop          sql.NullFloat64
		limit         sql.NullFloat64
		historyJSON   string
	)
	err := row.Scan(
		&o.ID, &o.Wallet, &o.Type, &o.TokenIn, &o.TokenOut, &o.AmountIn,
		&target, &stop, &limit, &o.SlippageBps, &o.Status, &o.ErrorMessage,
		&expiresAt, &o.GoodTillCancel, &o.StopArmed, &o.CheckCount, &lastChecked,
		&historyJSON, &o.TxHash, &o.BuyAmount, &o.GasUsed, &o.GasCostUSD,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}

	if target.Valid {
		o.TargetPrice = &target.Float64
	}
	if stop.Valid {
		o.StopPrice = &stop.Float64
	}
	if limit.Valid {
		o.LimitPrice = &limit.Float64
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		o.ExpiresAt = &t
	}
	if lastChecked.Valid {
		t := lastChecked.Time
		o.LastCheckedAt = &t
	}
	if err := json.Unmarshal([]byte(historyJSON), &o.PriceHistory); err != nil {
		return domain.Order{}, fmt.Errorf("unmarshal price history: %w", err)
	}
	return o, nil
}

func collectOrders(rows *sql.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
