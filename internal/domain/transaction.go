package domain

import (
	"strings"
	"time"
)

// NativeAssets is the set of base-asset addresses (ETH, WETH) used to tag a
// transaction's direction: spending the native asset is a buy of the output
// token, anything else is a sell of the input token.
type NativeAssets map[string]bool

// NewNativeAssets builds the set from configured addresses, lowercased.
func NewNativeAssets(addrs []string) NativeAssets {
	set := make(NativeAssets, len(addrs))
	for _, a := range addrs {
		set[strings.ToLower(a)] = true
	}
	return set
}

// Transaction is one completed swap in the append-only per-wallet log.
// The log is the authoritative input to the ledger; entries are written once
// after a successful execution and never mutated.
type Transaction struct {
	ID           int64
	Wallet       string
	TxHash       string
	TokenIn      string
	TokenOut     string
	AmountIn     float64
	AmountOut    float64
	AmountInUSD  float64
	AmountOutUSD float64
	GasCostUSD   float64
	Timestamp    time.Time
}

// Normalize lowercases all addresses so the ledger keys stay consistent.
func (t *Transaction) Normalize() {
	t.Wallet = strings.ToLower(t.Wallet)
	t.TokenIn = strings.ToLower(t.TokenIn)
	t.TokenOut = strings.ToLower(t.TokenOut)
}

// IsBuy reports whether this transaction acquires TokenOut with the native
// asset. Non-buys are sells of TokenIn.
func (t *Transaction) IsBuy(native NativeAssets) bool {
	return native[strings.ToLower(t.TokenIn)]
}

// Token returns the non-native token this transaction trades.
func (t *Transaction) Token(native NativeAssets) string {
	if t.IsBuy(native) {
		return t.TokenOut
	}
	return t.TokenIn
}
