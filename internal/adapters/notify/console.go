package notify

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/0xWizop/cypherx-engine/internal/domain"
)

// Console renders positions and tax reports as terminal tables.
type Console struct {
	out io.Writer
}

// NewConsole creates a renderer that writes to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter creates a renderer for tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// PrintPositions renders the wallet's per-token positions.
func (c *Console) PrintPositions(wallet string, positions []domain.Position) {
	if len(positions) == 0 {
		fmt.Fprintf(c.out, "no positions for %s\n", wallet)
		return
	}

	fmt.Fprintf(c.out, "positions for %s\n", wallet)

	table := tablewriter.NewWriter(c.out)
	table.Header("Token", "Status", "Amount", "Avg Entry", "Price", "Unrealized", "Realized", "Last Trade")

	for _, p := range positions {
		price := "-"
		unrealized := "-"
		if p.CurrentPrice > 0 {
			price = fmt.Sprintf("$%.6f", p.CurrentPrice)
			unrealized = fmt.Sprintf("$%.2f", p.UnrealizedPnL)
		}
		table.Append(
			p.Token,
			string(p.Status),
			fmt.Sprintf("%.4f", p.Amount),
			fmt.Sprintf("$%.6f", p.AvgEntryPrice),
			price,
			unrealized,
			fmt.Sprintf("$%.2f", p.RealizedPnL),
			p.LastTradeAt.Format("2006-01-02 15:04"),
		)
	}

	table.Render()
}

// PrintTaxReport renders the per-transaction records and yearly totals.
func (c *Console) PrintTaxReport(report domain.TaxReport) {
	fmt.Fprintf(c.out, "tax report %d for %s\n", report.Year, report.Wallet)

	if len(report.Records) == 0 {
		fmt.Fprintln(c.out, "no trades in this year")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Date", "Side", "Token", "Amount", "Unit Price", "Realized", "Gas")

	for _, r := range report.Records {
		realized := "-"
		if r.Side == "sell" {
			realized = fmt.Sprintf("$%.2f", r.RealizedGain)
		}
		table.Append(
			r.Timestamp.In(time.UTC).Format("2006-01-02"),
			r.Side,
			r.Token,
			fmt.Sprintf("%.4f", r.Amount),
			fmt.Sprintf("$%.6f", r.UnitPriceUSD),
			realized,
			fmt.Sprintf("$%.2f", r.GasCostUSD),
		)
	}

	table.Render()

	fmt.Fprintf(c.out, "  gains $%.2f | losses $%.2f | net $%.2f | gas $%.2f\n",
		report.TotalRealizedGains, report.TotalRealizedLosses,
		report.NetRealizedGain, report.TotalGasCostUSD)
}
