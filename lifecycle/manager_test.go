package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/crowdsale"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/fixedpoint"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/internal/chainsim"
)

// scriptedSale returns states from a script, repeating the last one.
type scriptedSale struct {
	mu     sync.Mutex
	states []tge.SaleState
	err    error
	calls  int
}

func (s *scriptedSale) ID() string { return "scripted" }

func (s *scriptedSale) State(context.Context, time.Time) (tge.SaleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	i := s.calls - 1
	if i >= len(s.states) {
		i = len(s.states) - 1
	}
	return s.states[i], nil
}

type transition struct {
	from, to tge.SaleState
}

func TestNew_AppliesDefaults(t *testing.T) {
	m := New(Config{Sale: &scriptedSale{states: []tge.SaleState{tge.SaleStateOpen}}})

	assert.Equal(t, 5*time.Second, m.config.PollInterval)
	assert.NotNil(t, m.config.Clock)
	assert.Equal(t, tge.SaleState(""), m.State())
}

func TestPoll_ReportsTransitionsOnce(t *testing.T) {
	sale := &scriptedSale{states: []tge.SaleState{
		tge.SaleStatePending,
		tge.SaleStatePending,
		tge.SaleStateOpen,
		tge.SaleStateClosed,
	}}

	var seen []transition
	m := New(Config{
		Sale: sale,
		OnTransition: func(_ context.Context, from, to tge.SaleState) {
			seen = append(seen, transition{from, to})
		},
	})

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := m.Poll(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, []transition{
		{"", tge.SaleStatePending},
		{tge.SaleStatePending, tge.SaleStateOpen},
		{tge.SaleStateOpen, tge.SaleStateClosed},
	}, seen)
	assert.Equal(t, tge.SaleStateClosed, m.State())
}

func TestRun_ReturnsWhenSaleCloses(t *testing.T) {
	sale := &scriptedSale{states: []tge.SaleState{
		tge.SaleStatePending,
		tge.SaleStateOpen,
		tge.SaleStateClosed,
	}}

	m := New(Config{Sale: sale, PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, m.Run(ctx))
	assert.Equal(t, tge.SaleStateClosed, m.State())
	assert.Equal(t, 3, sale.calls)
}

func TestRun_ContextCancellationStopsPolling(t *testing.T) {
	sale := &scriptedSale{states: []tge.SaleState{tge.SaleStateOpen}}
	m := New(Config{Sale: sale, PollInterval: time.Second})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() {
		done <- m.Run(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Run did not return promptly after context cancellation")
	}
}

func TestRun_PollErrorStopsLoop(t *testing.T) {
	boom := errors.New("ledger unavailable")
	m := New(Config{Sale: &scriptedSale{err: boom}, PollInterval: 10 * time.Millisecond})

	err := m.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRun_WatchesCrowdsaleWindow(t *testing.T) {
	opening := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	closing := opening.Add(2 * time.Hour)

	sale, err := crowdsale.New(crowdsale.Config{
		ID:              "watched-sale",
		Address:         common.HexToAddress("0x5a1e"),
		TokenCap:        fixedpoint.Unit(),
		LotSize:         fixedpoint.Unit(),
		MaxLotsPerBuyer: 1,
		OpeningTime:     opening,
		ClosingTime:     closing,
		Wallet:          common.HexToAddress("0xfee5"),
		PaymentTokens: []tge.PaymentToken{
			{Address: common.HexToAddress("0x05dc"), Decimals: 6, Rate: fixedpoint.Unit()},
		},
	}, crowdsale.WithWhitelist(chainsim.NewAllowList()), crowdsale.WithTokens(chainsim.NewBank()))
	require.NoError(t, err)

	// Each poll advances the clock by an hour.
	var (
		mu  sync.Mutex
		now = opening.Add(-time.Hour)
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		at := now
		now = now.Add(time.Hour)
		return at
	}

	var seen []transition
	m := New(Config{
		Sale:         sale,
		PollInterval: 5 * time.Millisecond,
		Clock:        clock,
		OnTransition: func(_ context.Context, from, to tge.SaleState) {
			seen = append(seen, transition{from, to})
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, m.Run(ctx))
	assert.Equal(t, []transition{
		{"", tge.SaleStatePending},
		{tge.SaleStatePending, tge.SaleStateOpen},
		{tge.SaleStateOpen, tge.SaleStateClosed},
	}, seen)
}
