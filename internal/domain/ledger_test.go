package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNative = NewNativeAssets([]string{"0xeth"})

func buyTx(token string, amount, unitPrice float64, at time.Time) Transaction {
	return Transaction{
		Wallet:       "0xwallet",
		TxHash:       "0xbuy",
		TokenIn:      "0xeth",
		TokenOut:     token,
		AmountIn:     amount * unitPrice / 3000, // ETH spent, irrelevant to the book
		AmountOut:    amount,
		AmountInUSD:  amount * unitPrice,
		AmountOutUSD: amount * unitPrice,
		Timestamp:    at,
	}
}

func sellTx(token string, amount, unitPrice float64, at time.Time) Transaction {
	return Transaction{
		Wallet:       "0xwallet",
		TxHash:       "0xsell",
		TokenIn:      token,
		TokenOut:     "0xeth",
		AmountIn:     amount,
		AmountOut:    amount * unitPrice / 3000,
		AmountInUSD:  amount * unitPrice,
		AmountOutUSD: amount * unitPrice,
		Timestamp:    at,
	}
}

func TestBook_FIFOConsumption(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	txs := []Transaction{
		buyTx("0xtok", 10, 1.00, t0),
		buyTx("0xtok", 10, 2.00, t0.Add(time.Hour)),
		sellTx("0xtok", 15, 3.00, t0.Add(2*time.Hour)),
	}

	book := BuildBook(txs, testNative)

	// 10@$1 fully consumed, 5@$2 consumed: gain = 10*(3-1) + 5*(3-2) = 25.
	assert.InDelta(t, 25.0, book.RealizedPnL("0xtok"), 1e-9)

	lots := book.OpenLots("0xtok")
	require.Len(t, lots, 1)
	assert.InDelta(t, 5.0, lots[0].Amount, 1e-9)
	assert.InDelta(t, 2.0, lots[0].Price, 1e-9)
}

func TestBook_SellExceedingLotsStops(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	txs := []Transaction{
		buyTx("0xtok", 10, 1.00, t0),
		sellTx("0xtok", 25, 2.00, t0.Add(time.Hour)),
	}

	book := BuildBook(txs, testNative)

	// Only the recorded 10 units are consumed; the book never goes negative.
	assert.InDelta(t, 10.0, book.RealizedPnL("0xtok"), 1e-9)
	assert.Empty(t, book.OpenLots("0xtok"))
}

func TestBook_Position(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	txs := []Transaction{
		buyTx("0xtok", 10, 1.00, t0),
		buyTx("0xtok", 10, 2.00, t0.Add(time.Hour)),
		sellTx("0xtok", 15, 3.00, t0.Add(2*time.Hour)),
	}

	book := BuildBook(txs, testNative)
	pos := book.Position("0xwallet", "0xtok", 4.00)

	assert.Equal(t, PositionOpen, pos.Status)
	assert.InDelta(t, 5.0, pos.Amount, 1e-9)
	assert.InDelta(t, 2.0, pos.AvgEntryPrice, 1e-9)
	assert.InDelta(t, 25.0, pos.RealizedPnL, 1e-9)
	assert.InDelta(t, 10.0, pos.UnrealizedPnL, 1e-9) // (4-2)*5
	assert.Equal(t, t0, pos.FirstBuyAt)
}

func TestBook_PositionClosedAfterFullSell(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	txs := []Transaction{
		buyTx("0xtok", 10, 1.00, t0),
		sellTx("0xtok", 10, 0.50, t0.Add(time.Hour)),
	}

	book := BuildBook(txs, testNative)
	pos := book.Position("0xwallet", "0xtok", 1.00)

	assert.Equal(t, PositionClosed, pos.Status)
	assert.Zero(t, pos.Amount)
	assert.Zero(t, pos.UnrealizedPnL)
	assert.InDelta(t, -5.0, pos.RealizedPnL, 1e-9)
}

func TestBook_PositionNoCurrentPrice(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	book := BuildBook([]Transaction{buyTx("0xtok", 10, 1.00, t0)}, testNative)

	pos := book.Position("0xwallet", "0xtok", 0)
	assert.Equal(t, PositionOpen, pos.Status)
	assert.Zero(t, pos.UnrealizedPnL)
}

func TestBuildTaxReport(t *testing.T) {
	t0 := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		buyTx("0xtok", 10, 1.00, t0),
		sellTx("0xtok", 5, 3.00, t0.AddDate(0, 1, 0)),
		sellTx("0xtok", 5, 0.50, t0.AddDate(0, 2, 0)),
		// Next year — must not appear in the 2025 report.
		buyTx("0xtok", 100, 5.00, t0.AddDate(1, 0, 0)),
	}
	for i := range txs {
		txs[i].GasCostUSD = 0.25
	}

	report := BuildTaxReport("0xwallet", 2025, txs, testNative)

	require.Len(t, report.Records, 3)
	assert.Equal(t, "buy", report.Records[0].Side)
	assert.Zero(t, report.Records[0].RealizedGain)
	assert.InDelta(t, 10.0, report.Records[1].RealizedGain, 1e-9) // 5*(3-1)
	assert.InDelta(t, -2.5, report.Records[2].RealizedGain, 1e-9) // 5*(0.5-1)
	assert.InDelta(t, 10.0, report.TotalRealizedGains, 1e-9)
	assert.InDelta(t, 2.5, report.TotalRealizedLosses, 1e-9)
	assert.InDelta(t, 7.5, report.NetRealizedGain, 1e-9)
	assert.InDelta(t, 0.75, report.TotalGasCostUSD, 1e-9)
}

func TestBuildTaxReport_EmptyYear(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{buyTx("0xtok", 10, 1.00, t0)}

	report := BuildTaxReport("0xwallet", 2026, txs, testNative)

	assert.NotNil(t, report.Records)
	assert.Empty(t, report.Records)
	assert.Zero(t, report.TotalRealizedGains)
	assert.Zero(t, report.TotalRealizedLosses)
	assert.Zero(t, report.NetRealizedGain)
	assert.Zero(t, report.TotalGasCostUSD)
}

func TestBuildTaxReport_Deterministic(t *testing.T) {
	t0 := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		buyTx("0xtok", 10, 1.00, t0),
		sellTx("0xtok", 5, 3.00, t0.Add(time.Hour)),
	}

	a := BuildTaxReport("0xwallet", 2025, txs, testNative)
	b := BuildTaxReport("0xwallet", 2025, txs, testNative)
	assert.Equal(t, a, b)
}
