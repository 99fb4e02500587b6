package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/0xWizop/cypherx-engine/internal/domain"
)

// Append writes one completed swap to the log. Entries are write-once:
// nothing in this store ever updates or deletes a transaction row.
func (s *SQLiteStore) Append(ctx context.Context, tx *domain.Transaction) error {
	tx.Normalize()
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (wallet, tx_hash, token_in, token_out,
			amount_in, amount_out, amount_in_usd, amount_out_usd, gas_cost_usd, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.Wallet, tx.TxHash, tx.TokenIn, tx.TokenOut,
		tx.AmountIn, tx.AmountOut, tx.AmountInUSD, tx.AmountOutUSD, tx.GasCostUSD, tx.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.Append: %w", err)
	}
	if tx.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("storage.Append: last insert id: %w", err)
	}
	return nil
}

// ListByWallet returns the wallet's full log in ascending timestamp order,
// which the FIFO ledger depends on.
func (s *SQLiteStore) ListByWallet(ctx context.Context, wallet string) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, wallet, tx_hash, token_in, token_out,
			amount_in, amount_out, amount_in_usd, amount_out_usd, gas_cost_usd, ts
		FROM transactions WHERE wallet = ? ORDER BY ts ASC, id ASC`, wallet)
	if err != nil {
		return nil, fmt.Errorf("storage.ListByWallet: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListByWalletYear returns the wallet's transactions within one calendar
// year (UTC), ascending.
func (s *SQLiteStore) ListByWalletYear(ctx context.Context, wallet string, year int) ([]domain.Transaction, error) {
	from := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, wallet, tx_hash, token_in, token_out,
			amount_in, amount_out, amount_in_usd, amount_out_usd, gas_cost_usd, ts
		FROM transactions
		WHERE wallet = ? AND ts >= ? AND ts < ?
		ORDER BY ts ASC, id ASC`, wallet, from, to)
	if err != nil {
		return nil, fmt.Errorf("storage.ListByWalletYear: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(
			&t.ID, &t.Wallet, &t.TxHash, &t.TokenIn, &t.TokenOut,
			&t.AmountIn, &t.AmountOut, &t.AmountInUSD, &t.AmountOutUSD, &t.GasCostUSD, &t.Timestamp,
		); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
