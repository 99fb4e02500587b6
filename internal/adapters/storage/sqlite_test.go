package storage_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xWizop/cypherx-engine/internal/adapters/storage"
	"github.com/0xWizop/cypherx-engine/internal/domain"
	"github.com/0xWizop/cypherx-engine/internal/ports"
)

func newStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	s, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr(f float64) *float64 { return &f }

func makeOrder(status domain.OrderStatus) *domain.Order {
	return &domain.Order{
		ID:          uuid.New().String(),
		Wallet:      "0xwallet",
		Type:        domain.OrderTypeLimitBuy,
		TokenIn:     "0xeth",
		TokenOut:    "0xtok",
		AmountIn:    1.5,
		TargetPrice: ptr(0.002),
		SlippageBps: 100,
		Status:      status,
	}
}

func TestOrders_CreateAndGet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	o := makeOrder(domain.OrderStatusPending)
	expires := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	o.ExpiresAt = &expires
	require.NoError(t, s.CreateOrder(ctx, o))

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, domain.OrderTypeLimitBuy, got.Type)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
	require.NotNil(t, got.TargetPrice)
	assert.InDelta(t, 0.002, *got.TargetPrice, 1e-12)
	assert.Nil(t, got.StopPrice)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, expires.Equal(got.ExpiresAt.UTC()))
	assert.Empty(t, got.PriceHistory)
}

func TestOrders_GetMissing(t *testing.T) {
	s := newStore(t)
	_, err := s.GetOrder(context.Background(), "nope")
	assert.ErrorIs(t, err, ports.ErrOrderNotFound)
}

func TestOrders_TransitionCAS(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	o := makeOrder(domain.OrderStatusPending)
	require.NoError(t, s.CreateOrder(ctx, o))

	// First claim wins.
	require.NoError(t, s.TransitionOrder(ctx, o.ID, domain.OrderStatusPending, domain.OrderStatusExecuting))

	// Second claim loses the race.
	err := s.TransitionOrder(ctx, o.ID, domain.OrderStatusPending, domain.OrderStatusExecuting)
	assert.ErrorIs(t, err, ports.ErrStaleStatus)

	err = s.TransitionOrder(ctx, "ghost", domain.OrderStatusPending, domain.OrderStatusExecuting)
	assert.ErrorIs(t, err, ports.ErrOrderNotFound)
}

func TestOrders_IllegalTransitionRejected(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	o := makeOrder(domain.OrderStatusPending)
	require.NoError(t, s.CreateOrder(ctx, o))

	err := s.TransitionOrder(ctx, o.ID, domain.OrderStatusPending, domain.OrderStatusExecuted)
	require.Error(t, err)

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
}

func TestOrders_ConcurrentClaimExactlyOnce(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	o := makeOrder(domain.OrderStatusPending)
	require.NoError(t, s.CreateOrder(ctx, o))

	const racers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.TransitionOrder(ctx, o.ID, domain.OrderStatusPending, domain.OrderStatusExecuting); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one concurrent claim must succeed")
}

func TestOrders_CancelOwnership(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	o := makeOrder(domain.OrderStatusPending)
	require.NoError(t, s.CreateOrder(ctx, o))

	assert.ErrorIs(t, s.CancelOrder(ctx, o.ID, "0xsomeoneelse"), ports.ErrNotOwner)
	require.NoError(t, s.CancelOrder(ctx, o.ID, "0xwallet"))

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, got.Status)

	// Cancel racing after a claim loses.
	o2 := makeOrder(domain.OrderStatusPending)
	require.NoError(t, s.CreateOrder(ctx, o2))
	require.NoError(t, s.TransitionOrder(ctx, o2.ID, domain.OrderStatusPending, domain.OrderStatusExecuting))
	assert.ErrorIs(t, s.CancelOrder(ctx, o2.ID, "0xwallet"), ports.ErrStaleStatus)
}

func TestOrders_RecordCheckBookkeeping(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	o := makeOrder(domain.OrderStatusPending)
	require.NoError(t, s.CreateOrder(ctx, o))

	o.RecordSample(0.0021, time.Now().UTC())
	o.RecordSample(0.0022, time.Now().UTC())
	o.StopArmed = true
	require.NoError(t, s.RecordOrderCheck(ctx, o))

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CheckCount)
	assert.True(t, got.StopArmed)
	require.Len(t, got.PriceHistory, 2)
	assert.InDelta(t, 0.0022, got.PriceHistory[1].Price, 1e-12)
	assert.NotNil(t, got.LastCheckedAt)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
}

func TestOrders_FinishRecordsResult(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	o := makeOrder(domain.OrderStatusPending)
	require.NoError(t, s.CreateOrder(ctx, o))
	require.NoError(t, s.TransitionOrder(ctx, o.ID, domain.OrderStatusPending, domain.OrderStatusExecuting))

	o.TxHash = "0xdeadbeef"
	o.BuyAmount = 1234.5
	o.GasUsed = 21000
	o.GasCostUSD = 0.42
	require.NoError(t, s.FinishOrder(ctx, o, domain.OrderStatusExecuted))

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusExecuted, got.Status)
	assert.Equal(t, "0xdeadbeef", got.TxHash)
	assert.InDelta(t, 1234.5, got.BuyAmount, 1e-9)

	// Finishing twice is a lost race, not a rewrite.
	assert.ErrorIs(t, s.FinishOrder(ctx, o, domain.OrderStatusFailed), ports.ErrStaleStatus)
}

func TestOrders_ListByStatusBounded(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.CreateOrder(ctx, makeOrder(domain.OrderStatusPending)))
	}
	require.NoError(t, s.CreateOrder(ctx, makeOrder(domain.OrderStatusExecuting)))

	pending, err := s.ListOrdersByStatus(ctx, domain.OrderStatusPending, 3)
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	executing, err := s.ListOrdersByStatus(ctx, domain.OrderStatusExecuting, 10)
	require.NoError(t, err)
	assert.Len(t, executing, 1)
}

func makePool(endsIn time.Duration) *domain.PredictionPool {
	now := time.Now().UTC()
	return &domain.PredictionPool{
		ID:           uuid.New().String(),
		TokenAddress: "0xtok",
		Type:         domain.PredictionPump,
		ThresholdPct: 10,
		StartTime:    now.Add(-time.Hour),
		EndTime:      now.Add(endsIn),
		StartPrice:   1.00,
		Status:       domain.PoolStatusActive,
		ExecStatus:   domain.ExecStatusPending,
		Liquidity:    1000,
		MaxBetSize:   100,
	}
}

// expirePool rewinds a pool's end time so the join guard and the
// expired-pool query both see it as past its window.
func expirePool(t *testing.T, s *storage.SQLiteStore, id string) {
	t.Helper()
	past := time.Now().UTC().Add(-time.Minute)
	_, err := s.DB().Exec(`UPDATE pools SET end_time = ? WHERE id = ?`, past, id)
	require.NoError(t, err)
}

func TestPools_JoinAndDuplicate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	pool := makePool(time.Hour)
	require.NoError(t, s.CreatePool(ctx, pool))

	p := domain.Participant{Wallet: "0xa", Stake: 10, Prediction: domain.BetYes, JoinedAt: time.Now().UTC()}
	require.NoError(t, s.JoinPool(ctx, pool.ID, p))
	assert.ErrorIs(t, s.JoinPool(ctx, pool.ID, p), domain.ErrAlreadyJoined)

	got, err := s.GetPool(ctx, pool.ID)
	require.NoError(t, err)
	require.Len(t, got.Participants, 1)
	assert.InDelta(t, 10.0, got.TotalStaked, 1e-9)
	assert.Nil(t, got.Participants[0].IsWinner)
}

func TestPools_JoinClosedPool(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	pool := makePool(time.Hour)
	require.NoError(t, s.CreatePool(ctx, pool))
	require.NoError(t, s.TransitionPool(ctx, pool.ID, domain.PoolStatusActive, domain.PoolStatusResolving))

	p := domain.Participant{Wallet: "0xa", Stake: 10, Prediction: domain.BetYes, JoinedAt: time.Now().UTC()}
	assert.ErrorIs(t, s.JoinPool(ctx, pool.ID, p), domain.ErrPoolClosed)
}

func TestPools_JoinAfterEndTime(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	// Still ACTIVE because no resolver pass has claimed it yet, but the
	// betting window is over: a late join must not dilute the payouts.
	pool := makePool(time.Hour)
	require.NoError(t, s.CreatePool(ctx, pool))
	expirePool(t, s, pool.ID)

	p := domain.Participant{Wallet: "0xa", Stake: 10, Prediction: domain.BetYes, JoinedAt: time.Now().UTC()}
	assert.ErrorIs(t, s.JoinPool(ctx, pool.ID, p), domain.ErrPoolClosed)

	got, err := s.GetPool(ctx, pool.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Participants)
	assert.Zero(t, got.TotalStaked)
}

func TestPools_ExpiredSelection(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	expired := makePool(-time.Minute)
	live := makePool(time.Hour)
	require.NoError(t, s.CreatePool(ctx, expired))
	require.NoError(t, s.CreatePool(ctx, live))

	pools, err := s.ListExpiredPools(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Equal(t, expired.ID, pools[0].ID)
}

func TestPools_ResolutionFlow(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	pool := makePool(time.Hour)
	require.NoError(t, s.CreatePool(ctx, pool))
	require.NoError(t, s.JoinPool(ctx, pool.ID, domain.Participant{
		Wallet: "0xa", Stake: 10, Prediction: domain.BetYes, JoinedAt: time.Now().UTC(),
	}))
	require.NoError(t, s.JoinPool(ctx, pool.ID, domain.Participant{
		Wallet: "0xb", Stake: 20, Prediction: domain.BetNo, JoinedAt: time.Now().UTC(),
	}))
	expirePool(t, s, pool.ID)

	require.NoError(t, s.TransitionPool(ctx, pool.ID, domain.PoolStatusActive, domain.PoolStatusResolving))
	// Concurrent resolver loses the claim.
	assert.ErrorIs(t,
		s.TransitionPool(ctx, pool.ID, domain.PoolStatusActive, domain.PoolStatusResolving),
		ports.ErrStaleStatus)

	resolved, err := s.GetPool(ctx, pool.ID)
	require.NoError(t, err)
	resolved.EndPrice = 1.20
	resolved.PriceChangePct = 20
	resolved.Outcome = domain.BetYes
	resolved.ExecStatus = domain.ExecStatusCompleted
	resolved.Participants, _ = domain.ComputePayouts(resolved.Participants, domain.BetYes, resolved.TotalStaked, 0.50)
	require.NoError(t, s.SaveResolution(ctx, &resolved))

	got, err := s.GetPool(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PoolStatusResolved, got.Status)
	assert.Equal(t, domain.BetYes, got.Outcome)
	require.Len(t, got.Participants, 2)
	require.NotNil(t, got.Participants[0].IsWinner)
	assert.True(t, *got.Participants[0].IsWinner)
	assert.Greater(t, got.Participants[0].Payout, 0.0)
	assert.Zero(t, got.Participants[1].Payout)

	// Saving again is a lost race: the pool already left RESOLVING.
	assert.ErrorIs(t, s.SaveResolution(ctx, &resolved), ports.ErrStaleStatus)
}

func TestPools_ExecStatusCAS(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	pool := makePool(-time.Minute)
	require.NoError(t, s.CreatePool(ctx, pool))

	require.NoError(t, s.TransitionPoolExec(ctx, pool.ID, domain.ExecStatusPending, domain.ExecStatusExecuting))
	assert.ErrorIs(t,
		s.TransitionPoolExec(ctx, pool.ID, domain.ExecStatusPending, domain.ExecStatusExecuting),
		ports.ErrStaleStatus)
}

func TestTxLog_AppendAndOrdering(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	t0 := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	later := domain.Transaction{
		Wallet: "0xW", TxHash: "0x2", TokenIn: "0xTOK", TokenOut: "0xETH",
		AmountIn: 5, AmountOut: 0.001, AmountInUSD: 15, AmountOutUSD: 15,
		Timestamp: t0.Add(time.Hour),
	}
	earlier := domain.Transaction{
		Wallet: "0xW", TxHash: "0x1", TokenIn: "0xETH", TokenOut: "0xTOK",
		AmountIn: 0.002, AmountOut: 10, AmountInUSD: 10, AmountOutUSD: 10,
		Timestamp: t0,
	}

	// Inserted out of order; reads must come back ascending.
	require.NoError(t, s.Append(ctx, &later))
	require.NoError(t, s.Append(ctx, &earlier))

	txs, err := s.ListByWallet(ctx, "0xw")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "0x1", txs[0].TxHash)
	assert.Equal(t, "0x2", txs[1].TxHash)
	// Addresses normalized on append.
	assert.Equal(t, "0xeth", txs[0].TokenIn)

	byYear, err := s.ListByWalletYear(ctx, "0xw", 2025)
	require.NoError(t, err)
	assert.Len(t, byYear, 2)

	empty, err := s.ListByWalletYear(ctx, "0xw", 2023)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
