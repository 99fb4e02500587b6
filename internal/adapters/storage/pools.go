package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/0xWizop/cypherx-engine/internal/domain"
	"github.com/0xWizop/cypherx-engine/internal/ports"
)

const poolColumns = `id, token_address, type, threshold_pct, start_time, end_time,
	start_price, status, exec_status, end_price, price_change_pct, outcome,
	total_staked, liquidity, max_bet_size, created_at, updated_at`

// CreatePool persists a new pool with no participants.
func (s *SQLiteStore) CreatePool(ctx context.Context, p *domain.PredictionPool) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pools (id, token_address, type, threshold_pct, start_time, end_time,
			start_price, status, exec_status, end_price, price_change_pct, outcome,
			total_staked, liquidity, max_bet_size, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TokenAddress, p.Type, p.ThresholdPct, p.StartTime, p.EndTime,
		p.StartPrice, p.Status, p.ExecStatus, p.EndPrice, p.PriceChangePct, string(p.Outcome),
		p.TotalStaked, p.Liquidity, p.MaxBetSize, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage.CreatePool: %w", err)
	}
	return nil
}

// GetPool returns a pool with its participants loaded.
func (s *SQLiteStore) GetPool(ctx context.Context, id string) (domain.PredictionPool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+poolColumns+` FROM pools WHERE id = ?`, id)
	p, err := scanPool(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PredictionPool{}, ports.ErrPoolNotFound
	}
	if err != nil {
		return domain.PredictionPool{}, fmt.Errorf("storage.GetPool: %w", err)
	}
	if p.Participants, err = s.loadParticipants(ctx, p.ID); err != nil {
		return domain.PredictionPool{}, fmt.Errorf("storage.GetPool: %w", err)
	}
	return p, nil
}

// ListExpiredPools returns up to limit ACTIVE pools whose end time has
// passed, oldest expiry first, participants loaded.
func (s *SQLiteStore) ListExpiredPools(ctx context.Context, now time.Time, limit int) ([]domain.PredictionPool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+poolColumns+` FROM pools
		WHERE status = ? AND end_time <= ?
		ORDER BY end_time ASC LIMIT ?`,
		domain.PoolStatusActive, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ListExpiredPools: %w", err)
	}
	defer rows.Close()
	return s.collectPools(ctx, rows)
}

// ListPoolsByExecStatus returns RESOLVED pools awaiting (or stuck in) the
// winner auto-execution pass.
func (s *SQLiteStore) ListPoolsByExecStatus(ctx context.Context, es domain.ExecStatus, limit int) ([]domain.PredictionPool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+poolColumns+` FROM pools
		WHERE status = ? AND exec_status = ?
		ORDER BY end_time ASC LIMIT ?`,
		domain.PoolStatusResolved, es, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ListPoolsByExecStatus: %w", err)
	}
	defer rows.Close()
	return s.collectPools(ctx, rows)
}

// TransitionPool performs the compare-and-swap on pool status.
func (s *SQLiteStore) TransitionPool(ctx context.Context, id string, from, to domain.PoolStatus) error {
	return s.casUpdate(ctx,
		`UPDATE pools SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		s.probePool(id),
		to, time.Now().UTC(), id, from,
	)
}

// TransitionPoolExec performs the compare-and-swap on execution status.
func (s *SQLiteStore) TransitionPoolExec(ctx context.Context, id string, from, to domain.ExecStatus) error {
	return s.casUpdate(ctx,
		`UPDATE pools SET exec_status = ?, updated_at = ? WHERE id = ? AND exec_status = ?`,
		s.probePool(id),
		to, time.Now().UTC(), id, from,
	)
}

// JoinPool appends a participant inside a transaction: the pool must still be
// ACTIVE and before its end time at insert time, the wallet must not already
// hold an entry, and the pool's total stake is bumped atomically with the
// insert. The end-time check here closes the window where a join races the
// resolver's claim on an expired but not yet claimed pool.
func (s *SQLiteStore) JoinPool(ctx context.Context, poolID string, p domain.Participant) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.JoinPool: begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		status  string
		endTime time.Time
	)
	err = tx.QueryRowContext(ctx, `SELECT status, end_time FROM pools WHERE id = ?`, poolID).Scan(&status, &endTime)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.ErrPoolNotFound
	}
	if err != nil {
		return fmt.Errorf("storage.JoinPool: %w", err)
	}
	if domain.PoolStatus(status) != domain.PoolStatusActive || !time.Now().UTC().Before(endTime) {
		return domain.ErrPoolClosed
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO participants (pool_id, wallet, stake, prediction, joined_at, is_winner, payout)
		VALUES (?, ?, ?, ?, ?, NULL, 0)`,
		poolID, p.Wallet, p.Stake, p.Prediction, p.JoinedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return domain.ErrAlreadyJoined
		}
		return fmt.Errorf("storage.JoinPool: insert participant: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE pools SET total_staked = total_staked + ?, updated_at = ? WHERE id = ?`,
		p.Stake, time.Now().UTC(), poolID,
	); err != nil {
		return fmt.Errorf("storage.JoinPool: bump stake: %w", err)
	}

	return tx.Commit()
}

// SaveResolution persists the resolved pool and its per-participant payouts.
// Conditional on the pool still being RESOLVING: a concurrent resolver that
// lost the claim cannot overwrite an already-saved resolution.
func (s *SQLiteStore) SaveResolution(ctx context.Context, p *domain.PredictionPool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveResolution: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE pools
		SET status = ?, exec_status = ?, end_price = ?, price_change_pct = ?, outcome = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		domain.PoolStatusResolved, p.ExecStatus, p.EndPrice, p.PriceChangePct, string(p.Outcome),
		time.Now().UTC(), p.ID, domain.PoolStatusResolving,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveResolution: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return s.probePool(p.ID)(ctx)
	}

	for _, q := range p.Participants {
		if q.IsWinner == nil {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE participants SET is_winner = ?, payout = ? WHERE pool_id = ? AND wallet = ?`,
			*q.IsWinner, q.Payout, p.ID, q.Wallet,
		); err != nil {
			return fmt.Errorf("storage.SaveResolution: participant %s: %w", q.Wallet, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) probePool(id string) func(context.Context) error {
	return func(ctx context.Context) error {
		var status string
		err := s.db.QueryRowContext(ctx, `SELECT status FROM pools WHERE id = ?`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ports.ErrPoolNotFound
		}
		if err != nil {
			return err
		}
		return ports.ErrStaleStatus
	}
}

func (s *SQLiteStore) loadParticipants(ctx context.Context, poolID string) ([]domain.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT wallet, stake, prediction, joined_at, is_winner, payout
		FROM participants WHERE pool_id = ? ORDER BY joined_at ASC`, poolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		var (
			p      domain.Participant
			winner sql.NullBool
		)
		if err := rows.Scan(&p.Wallet, &p.Stake, &p.Prediction, &p.JoinedAt, &winner, &p.Payout); err != nil {
			return nil, err
		}
		if winner.Valid {
			w := winner.Bool
			p.IsWinner = &w
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPool(row rowScanner) (domain.PredictionPool, error) {
	var (
		p       domain.PredictionPool
		outcome string
	)
	err := row.Scan(
		&p.ID, &p.TokenAddress, &p.Type, &p.ThresholdPct, &p.StartTime, &p.EndTime,
		&p.StartPrice, &p.Status, &p.ExecStatus, &p.EndPrice, &p.PriceChangePct, &outcome,
		&p.TotalStaked, &p.Liquidity, &p.MaxBetSize, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.PredictionPool{}, err
	}
	p.Outcome = domain.BetSide(outcome)
	return p, nil
}

func (s *SQLiteStore) collectPools(ctx context.Context, rows *sql.Rows) ([]domain.PredictionPool, error) {
	var pools []domain.PredictionPool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		pools = append(pools, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range pools {
		parts, err := s.loadParticipants(ctx, pools[i].ID)
		if err != nil {
			return nil, err
		}
		pools[i].Participants = parts
	}
	return pools, nil
}
