package storage

// sqlite.go — persistence for orders, prediction pools and the transaction log.
//
// Claim semantics: every transition out of a non-terminal status is a
// conditional UPDATE (`... WHERE id = ? AND status = ?`). RowsAffected = 0
// means another pass won the race; callers get ports.ErrStaleStatus and skip
// the entity. SQLite's single-writer model makes each UPDATE atomic, so two
// overlapping batch runs can never both claim the same row.

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id               TEXT PRIMARY KEY,
    wallet           TEXT    NOT NULL,
    type             TEXT    NOT NULL,
    token_in         TEXT    NOT NULL,
    token_out        TEXT    NOT NULL,
    amount_in        REAL    NOT NULL,
    target_price     REAL,
    stop_price       REAL,
    limit_price      REAL,
    slippage_bps     INTEGER NOT NULL DEFAULT 0,
    status           TEXT    NOT NULL,
    error_message    TEXT    NOT NULL DEFAULT '',
    expires_at       DATETIME,
    good_till_cancel INTEGER NOT NULL DEFAULT 0,
    stop_armed       INTEGER NOT NULL DEFAULT 0,
    check_count      INTEGER NOT NULL DEFAULT 0,
    last_checked_at  DATETIME,
    price_history    TEXT    NOT NULL DEFAULT '[]',
    tx_hash          TEXT    NOT NULL DEFAULT '',
    buy_amount       REAL    NOT NULL DEFAULT 0,
    gas_used         REAL    NOT NULL DEFAULT 0,
    gas_cost_usd     REAL    NOT NULL DEFAULT 0,
    created_at       DATETIME NOT NULL,
    updated_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status, created_at);
CREATE INDEX IF NOT EXISTS idx_orders_wallet ON orders(wallet, created_at DESC);

CREATE TABLE IF NOT EXISTS pools (
    id               TEXT PRIMARY KEY,
    token_address    TEXT    NOT NULL,
    type             TEXT    NOT NULL,
    threshold_pct    REAL    NOT NULL,
    start_time       DATETIME NOT NULL,
    end_time         DATETIME NOT NULL,
    start_price      REAL    NOT NULL,
    status           TEXT    NOT NULL,
    exec_status      TEXT    NOT NULL,
    end_price        REAL    NOT NULL DEFAULT 0,
    price_change_pct REAL    NOT NULL DEFAULT 0,
    outcome          TEXT    NOT NULL DEFAULT '',
    total_staked     REAL    NOT NULL DEFAULT 0,
    liquidity        REAL    NOT NULL DEFAULT 0,
    max_bet_size     REAL    NOT NULL DEFAULT 0,
    created_at       DATETIME NOT NULL,
    updated_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pools_expiry ON pools(status, end_time);
CREATE INDEX IF NOT EXISTS idx_pools_exec   ON pools(status, exec_status);

CREATE TABLE IF NOT EXISTS participants (
    pool_id    TEXT    NOT NULL REFERENCES pools(id),
    wallet     TEXT    NOT NULL,
    stake      REAL    NOT NULL,
    prediction TEXT    NOT NULL,
    joined_at  DATETIME NOT NULL,
    is_winner  INTEGER,
    payout     REAL    NOT NULL DEFAULT 0,
    PRIMARY KEY (pool_id, wallet)
);

CREATE TABLE IF NOT EXISTS transactions (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    wallet         TEXT    NOT NULL,
    tx_hash        TEXT    NOT NULL,
    token_in       TEXT    NOT NULL,
    token_out      TEXT    NOT NULL,
    amount_in      REAL    NOT NULL,
    amount_out     REAL    NOT NULL,
    amount_in_usd  REAL    NOT NULL,
    amount_out_usd REAL    NOT NULL,
    gas_cost_usd   REAL    NOT NULL DEFAULT 0,
    ts             DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tx_wallet_ts ON transactions(wallet, ts);
`

// SQLiteStore implements ports.OrderStore, ports.PoolStore and
// ports.TransactionLog on a single SQLite database (pure Go, no CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given DSN and
// applies the schema. ":memory:" gives an ephemeral store for tests.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for migrations and test fixtures.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// casUpdate runs a conditional UPDATE and maps "no rows touched" to the
// stale-status sentinel via the supplied probe, which distinguishes a lost
// race from a missing row.
func (s *SQLiteStore) casUpdate(ctx context.Context, query string, probe func(context.Context) error, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return probe(ctx)
	}
	return nil
}
