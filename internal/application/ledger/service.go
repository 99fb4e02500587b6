package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/0xWizop/cypherx-engine/internal/domain"
	"github.com/0xWizop/cypherx-engine/internal/ports"
)

// Service derives positions and tax reports from the transaction log.
// Everything here is a pure read: the log is replayed on each call, so
// the numbers always reflect exactly what was traded.
type Service struct {
	txlog  ports.TransactionLog
	oracle ports.PriceOracle
	native domain.NativeAssets
	log    *slog.Logger
}

// New creates a ledger read service.
func New(txlog ports.TransactionLog, oracle ports.PriceOracle, native domain.NativeAssets, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{txlog: txlog, oracle: oracle, native: native, log: log}
}

// Positions returns the wallet's per-token positions across every token it
// has ever traded. Tokens with a dead price feed report zero unrealized PnL
// rather than failing the whole call.
func (s *Service) Positions(ctx context.Context, wallet string) ([]domain.Position, error) {
	wallet = strings.ToLower(wallet)

	txs, err := s.txlog.ListByWallet(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("ledger.Positions: %w", err)
	}

	book := domain.BuildBook(txs, s.native)
	tokens := book.Tokens()

	positions := make([]domain.Position, 0, len(tokens))
	for _, token := range tokens {
		price, err := s.oracle.GetPrice(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("ledger.Positions: price %s: %w", token, err)
		}
		if price <= 0 {
			s.log.Debug("no price for token, unrealized pnl unavailable", "token", token)
		}
		positions = append(positions, book.Position(wallet, token, price))
	}
	return positions, nil
}

// Position returns the wallet's position in a single token.
func (s *Service) Position(ctx context.Context, wallet, token string) (domain.Position, error) {
	wallet = strings.ToLower(wallet)
	token = strings.ToLower(token)

	txs, err := s.txlog.ListByWallet(ctx, wallet)
	if err != nil {
		return domain.Position{}, fmt.Errorf("ledger.Position: %w", err)
	}

	price, err := s.oracle.GetPrice(ctx, token)
	if err != nil {
		return domain.Position{}, fmt.Errorf("ledger.Position: price %s: %w", token, err)
	}

	book := domain.BuildBook(txs, s.native)
	return book.Position(wallet, token, price), nil
}

// TaxReport builds the wallet's realized gain/loss report for a calendar
// year. A year with no trades yields an all-zero report, not an error.
func (s *Service) TaxReport(ctx context.Context, wallet string, year int) (domain.TaxReport, error) {
	wallet = strings.ToLower(wallet)

	txs, err := s.txlog.ListByWalletYear(ctx, wallet, year)
	if err != nil {
		return domain.TaxReport{}, fmt.Errorf("ledger.TaxReport: %w", err)
	}
	return domain.BuildTaxReport(wallet, year, txs, s.native), nil
}
