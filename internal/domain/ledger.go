package domain

import (
	"sort"
	"time"
)

// Lot is an un- or partially-consumed buy with its own cost basis. Lots are
// consumed strictly oldest-first by later sells of the same token.
type Lot struct {
	Token     string
	Price     float64
	Amount    float64
	Timestamp time.Time
}

// PositionStatus tracks whether a derived position is open or closed.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// Position is the derived per-token view of a wallet's holdings. It is
// recomputed from the transaction log on every read, never persisted.
type Position struct {
	Wallet        string
	Token         string
	Amount        float64
	AvgEntryPrice float64
	CurrentPrice  float64
	RealizedPnL   float64
	UnrealizedPnL float64
	Status        PositionStatus
	FirstBuyAt    time.Time
	LastTradeAt   time.Time
}

// Book replays a wallet's transaction log with FIFO lot accounting. It holds
// no state of its own beyond what the replay derives; re-building from the
// same log always yields the same book.
type Book struct {
	lots      map[string][]Lot
	realized  map[string]float64
	firstBuy  map[string]time.Time
	lastTrade map[string]time.Time
}

func newBook() *Book {
	return &Book{
		lots:      make(map[string][]Lot),
		realized:  make(map[string]float64),
		firstBuy:  make(map[string]time.Time),
		lastTrade: make(map[string]time.Time),
	}
}

// BuildBook replays transactions (ascending timestamp) into a FIFO book.
func BuildBook(txs []Transaction, native NativeAssets) *Book {
	b := newBook()
	for i := range txs {
		b.apply(&txs[i], native)
	}
	return b
}

func (b *Book) apply(tx *Transaction, native NativeAssets) {
	token := tx.Token(native)
	b.lastTrade[token] = tx.Timestamp

	if tx.IsBuy(native) {
		if tx.AmountOut <= 0 {
			return
		}
		if _, ok := b.firstBuy[token]; !ok {
			b.firstBuy[token] = tx.Timestamp
		}
		b.lots[token] = append(b.lots[token], Lot{
			Token:     token,
			Price:     tx.AmountOutUSD / tx.AmountOut,
			Amount:    tx.AmountOut,
			Timestamp: tx.Timestamp,
		})
		return
	}

	if tx.AmountIn <= 0 {
		return
	}
	salePrice := tx.AmountInUSD / tx.AmountIn
	gain, _ := b.consume(token, tx.AmountIn, salePrice)
	b.realized[token] += gain
}

// consume drains the oldest lots of token to cover a sell of amount at
// saleUnitPrice. A sell exceeding the recorded lots stops consuming — the
// book never goes negative. Returns the realized gain and amount consumed.
func (b *Book) consume(token string, amount, saleUnitPrice float64) (gain, consumed float64) {
	queue := b.lots[token]
	for amount > 0 && len(queue) > 0 {
		lot := &queue[0]
		take := min(amount, lot.Amount)
		gain += (saleUnitPrice - lot.Price) * take
		consumed += take
		amount -= take
		lot.Amount -= take
		if lot.Amount <= 0 {
			queue = queue[1:]
		}
	}
	b.lots[token] = queue
	return gain, consumed
}

// Tokens returns every token the book has seen, sorted for stable output.
func (b *Book) Tokens() []string {
	tokens := make([]string, 0, len(b.lastTrade))
	for t := range b.lastTrade {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}

// OpenLots returns the unconsumed lots for a token, oldest first.
func (b *Book) OpenLots(token string) []Lot {
	return b.lots[token]
}

// RealizedPnL returns the accumulated realized gain for a token.
func (b *Book) RealizedPnL(token string) float64 {
	return b.realized[token]
}

// Position derives the current view for a token at the given price. The
// remaining amount and size-weighted entry price come from the open lots;
// unrealized PnL needs a live price and is zero when none is available.
func (b *Book) Position(wallet, token string, currentPrice float64) Position {
	p := Position{
		Wallet:       wallet,
		Token:        token,
		CurrentPrice: currentPrice,
		RealizedPnL:  b.realized[token],
		Status:       PositionClosed,
		FirstBuyAt:   b.firstBuy[token],
		LastTradeAt:  b.lastTrade[token],
	}

	var cost float64
	for _, lot := range b.lots[token] {
		p.Amount += lot.Amount
		cost += lot.Amount * lot.Price
	}
	if p.Amount > 0 {
		p.Status = PositionOpen
		p.AvgEntryPrice = cost / p.Amount
		if currentPrice > 0 {
			p.UnrealizedPnL = (currentPrice - p.AvgEntryPrice) * p.Amount
		}
	}
	return p
}

// TaxRecord is one transaction's contribution to a yearly tax report. Buys
// establish cost basis only and carry zero realized gain.
type TaxRecord struct {
	TxHash       string
	Timestamp    time.Time
	Token        string
	Side         string // "buy" or "sell"
	Amount       float64
	UnitPriceUSD float64
	RealizedGain float64
	GasCostUSD   float64
}

// TaxReport is the deterministic per-year FIFO re-derivation of the log.
type TaxReport struct {
	Wallet              string
	Year                int
	Records             []TaxRecord
	TotalRealizedGains  float64
	TotalRealizedLosses float64
	NetRealizedGain     float64
	TotalGasCostUSD     float64
}

// BuildTaxReport re-runs the FIFO algorithm over the transactions of a single
// calendar year, emitting one record per transaction. It is a pure function
// of the input slice: an empty year yields zero totals and no records.
func BuildTaxReport(wallet string, year int, txs []Transaction, native NativeAssets) TaxReport {
	report := TaxReport{
		Wallet:  wallet,
		Year:    year,
		Records: []TaxRecord{},
	}

	book := newBook()

	for i := range txs {
		tx := &txs[i]
		if tx.Timestamp.UTC().Year() != year {
			continue
		}

		token := tx.Token(native)
		rec := TaxRecord{
			TxHash:     tx.TxHash,
			Timestamp:  tx.Timestamp,
			Token:      token,
			GasCostUSD: tx.GasCostUSD,
		}

		if tx.IsBuy(native) {
			rec.Side = "buy"
			rec.Amount = tx.AmountOut
			if tx.AmountOut > 0 {
				rec.UnitPriceUSD = tx.AmountOutUSD / tx.AmountOut
			}
			book.apply(tx, native)
		} else {
			rec.Side = "sell"
			rec.Amount = tx.AmountIn
			if tx.AmountIn > 0 {
				rec.UnitPriceUSD = tx.AmountInUSD / tx.AmountIn
				gain, _ := book.consume(token, tx.AmountIn, rec.UnitPriceUSD)
				rec.RealizedGain = gain
			}
		}

		if rec.RealizedGain > 0 {
			report.TotalRealizedGains += rec.RealizedGain
		} else if rec.RealizedGain < 0 {
			report.TotalRealizedLosses += -rec.RealizedGain
		}
		report.TotalGasCostUSD += rec.GasCostUSD
		report.Records = append(report.Records, rec)
	}

	report.NetRealizedGain = report.TotalRealizedGains - report.TotalRealizedLosses
	return report
}
