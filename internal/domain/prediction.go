package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// PredictionType is the direction a pool bets on.
type PredictionType string

const (
	PredictionPump PredictionType = "PUMP"
	PredictionDump PredictionType = "DUMP"
)

// PoolStatus is the resolution lifecycle of a prediction pool.
type PoolStatus string

const (
	PoolStatusActive    PoolStatus = "ACTIVE"
	PoolStatusResolving PoolStatus = "RESOLVING"
	PoolStatusResolved  PoolStatus = "RESOLVED"
)

// ExecStatus tracks the winner auto-execution pass, independent of resolution.
type ExecStatus string

const (
	ExecStatusPending   ExecStatus = "PENDING"
	ExecStatusExecuting ExecStatus = "EXECUTING"
	ExecStatusCompleted ExecStatus = "COMPLETED"
	ExecStatusFailed    ExecStatus = "FAILED"
)

// BetSide is a participant's prediction, and also a pool's resolved outcome.
type BetSide string

const (
	BetYes BetSide = "YES"
	BetNo  BetSide = "NO"
)

// MinStakeUSD is the smallest stake a pool accepts.
const MinStakeUSD = 0.50

// Participant is one wallet's entry in a pool. IsWinner and Payout are
// written exactly once, at resolution.
type Participant struct {
	Wallet     string
	Stake      float64
	Prediction BetSide
	JoinedAt   time.Time
	IsWinner   *bool
	Payout     float64
}

// PredictionPool is a time-boxed binary bet on a token's price move.
type PredictionPool struct {
	ID           string
	TokenAddress string
	Type         PredictionType
	ThresholdPct float64
	StartTime    time.Time
	EndTime      time.Time
	StartPrice   float64

	Status     PoolStatus
	ExecStatus ExecStatus

	// Resolution result, populated on RESOLVED.
	EndPrice       float64
	PriceChangePct float64
	Outcome        BetSide

	Participants []Participant
	TotalStaked  float64
	Liquidity    float64
	MaxBetSize   float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Pool validation errors surfaced on the synchronous create/join paths.
var (
	ErrPoolClosed      = errors.New("pool no longer accepts entries")
	ErrStakeTooSmall   = fmt.Errorf("stake below minimum $%.2f", MinStakeUSD)
	ErrStakeTooLarge   = errors.New("stake above pool max bet size")
	ErrAlreadyJoined   = errors.New("wallet already joined this pool")
	ErrUnknownPoolType = errors.New("unknown prediction type")
)

// Validate checks pool invariants at creation time.
func (p *PredictionPool) Validate() error {
	if p.TokenAddress == "" {
		return errors.New("token address required")
	}
	if p.Type != PredictionPump && p.Type != PredictionDump {
		return ErrUnknownPoolType
	}
	if p.ThresholdPct < 1 || p.ThresholdPct > 100 {
		return fmt.Errorf("threshold %.2f%% out of range [1,100]", p.ThresholdPct)
	}
	if !p.EndTime.After(p.StartTime) {
		return errors.New("end time must be after start time")
	}
	if p.StartPrice <= 0 {
		return errors.New("start price must be positive")
	}
	return nil
}

// CanJoin validates a prospective entry against the pool's current state.
func (p *PredictionPool) CanJoin(wallet string, stake float64, now time.Time) error {
	if p.Status != PoolStatusActive || !now.Before(p.EndTime) {
		return ErrPoolClosed
	}
	if stake < MinStakeUSD {
		return ErrStakeTooSmall
	}
	if p.MaxBetSize > 0 && stake > p.MaxBetSize {
		return ErrStakeTooLarge
	}
	wallet = strings.ToLower(wallet)
	for _, q := range p.Participants {
		if q.Wallet == wallet {
			return ErrAlreadyJoined
		}
	}
	return nil
}

// ResolveOutcome maps the pool's price move to YES or NO.
// PUMP resolves YES when the change meets the threshold upward,
// DUMP resolves YES when it meets the threshold downward.
func ResolveOutcome(t PredictionType, thresholdPct, startPrice, endPrice float64) (BetSide, float64) {
	changePct := (endPrice - startPrice) / startPrice * 100

	switch t {
	case PredictionPump:
		if changePct >= thresholdPct {
			return BetYes, changePct
		}
	case PredictionDump:
		if changePct <= -thresholdPct {
			return BetYes, changePct
		}
	}
	return BetNo, changePct
}

// Settlement summarizes a resolved pool's payout math.
type Settlement struct {
	WinnerCount int
	LoserCount  int
	WinnerStake float64
	LoserStake  float64
	GasFeePool  float64
	TotalPot    float64
}

// ComputePayouts partitions participants by the outcome and distributes the
// pot proportionally to winner stake. The gas-fee pool is carved out of loser
// stakes, capped by the per-trade gas estimate times the winner count. With
// zero winners the pot is not distributed: stakes are absorbed (void case).
// Returns the participants with IsWinner/Payout set, and the settlement sums.
func ComputePayouts(participants []Participant, outcome BetSide, totalStaked, perTradeGasUSD float64) ([]Participant, Settlement) {
	var s Settlement
	out := make([]Participant, len(participants))
	copy(out, participants)

	for i := range out {
		win := out[i].Prediction == outcome
		out[i].IsWinner = &win
		out[i].Payout = 0
		if win {
			s.WinnerCount++
			s.WinnerStake += out[i].Stake
		} else {
			s.LoserCount++
			s.LoserStake += out[i].Stake
		}
	}

	if s.WinnerCount == 0 || s.WinnerStake <= 0 {
		return out, s
	}

	s.GasFeePool = min(s.LoserStake, perTradeGasUSD*float64(s.WinnerCount))
	s.TotalPot = totalStaked - s.GasFeePool

	for i := range out {
		if *out[i].IsWinner {
			out[i].Payout = out[i].Stake / s.WinnerStake * s.TotalPot
		}
	}
	return out, s
}
