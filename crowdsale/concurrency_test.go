package crowdsale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/internal/chainsim"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/store"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/store/memory"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/store/sqlstore"
)

func openSQLiteLedger(t *testing.T) *sqlstore.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL",
		filepath.Join(t.TempDir(), "ledger.db"))
	db, err := sql.Open(sqlstore.SQLite.DriverName(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlstore.Migrate(context.Background(), db, sqlstore.SQLite, sqlstore.DefaultTableConfig()))

	return sqlstore.New(db, sqlstore.SQLite)
}

// runCapTrial races two purchases that each fit under the cap alone but not together,
// and returns how many succeeded.
func runCapTrial(t *testing.T, ledger store.AllocationStore, saleID string, rng *rand.Rand) int {
	t.Helper()
	ctx := context.Background()

	cfg := baseConfig()
	cfg.ID = saleID
	cfg.MaxRetries = 64

	// Lots in [1, 10] for each buyer with a combined total above the 10 lot cap.
	first := uint64(rng.Intn(10) + 1)
	second := uint64(11-first) + uint64(rng.Intn(int(first)))

	bank := chainsim.NewBank()
	require.NoError(t, bank.Mint(saleAddr, saleToken, cfg.TokenCap))
	require.NoError(t, bank.Mint(alice, usdc, usdcUnits(1_000)))
	require.NoError(t, bank.Mint(bob, usdc, usdcUnits(1_000)))

	e, err := New(cfg,
		WithWhitelist(chainsim.NewAllowList(alice, bob)),
		WithTokens(bank),
		WithStore(ledger))
	require.NoError(t, err)

	var (
		mu        sync.Mutex
		succeeded int
	)
	g, _ := errgroup.WithContext(ctx)
	for buyer, lots := range map[common.Address]uint64{alice: first, bob: second} {
		g.Go(func() error {
			_, err := e.Purchase(ctx, buyer, usdc, usdcUnits(lots*10), during)
			if errors.Is(err, tge.ErrCapExceeded) || errors.Is(err, tge.ErrNotOpen) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	alloc, err := e.Allocation(ctx)
	require.NoError(t, err)
	assert.False(t, alloc.TokensSold.Gt(cfg.TokenCap))

	sold := new(uint256.Int)
	for _, b := range []common.Address{alice, bob} {
		got, err := bank.BalanceOf(ctx, b, saleToken)
		require.NoError(t, err)
		sold.Add(sold, got)
	}
	assert.True(t, sold.Eq(alloc.TokensSold), "delivered %s, ledger %s", sold.Dec(), alloc.TokensSold.Dec())

	return succeeded
}

func TestPurchase_ConcurrentCapIsLinearizable(t *testing.T) {
	t.Run("memory ledger", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		ledger := memory.New()
		for i := 0; i < 200; i++ {
			n := runCapTrial(t, ledger, fmt.Sprintf("trial-%d", i), rng)
			require.Equal(t, 1, n, "trial %d", i)
		}
	})

	t.Run("sqlite ledger", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping sqlite trials in short mode")
		}
		rng := rand.New(rand.NewSource(11))
		ledger := openSQLiteLedger(t)
		for i := 0; i < 25; i++ {
			n := runCapTrial(t, ledger, fmt.Sprintf("trial-%d", i), rng)
			require.Equal(t, 1, n, "trial %d", i)
		}
	})
}

func TestPurchase_ManyBuyersNeverOversell(t *testing.T) {
	ctx := context.Background()

	cfg := baseConfig()
	cfg.TokenCap = tokens(1_000)
	cfg.MaxLotsPerBuyer = 3
	cfg.MaxRetries = 64

	bank := chainsim.NewBank()
	require.NoError(t, bank.Mint(saleAddr, saleToken, cfg.TokenCap))

	buyers := make([]common.Address, 60)
	list := chainsim.NewAllowList()
	for i := range buyers {
		buyers[i] = common.BigToAddress(uint256.NewInt(uint64(0x1000 + i)).ToBig())
		list.Add(buyers[i])
		require.NoError(t, bank.Mint(buyers[i], usdc, usdcUnits(100)))
	}

	e, err := New(cfg, WithWhitelist(list), WithTokens(bank))
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		accepted int
	)
	g, _ := errgroup.WithContext(ctx)
	for _, buyer := range buyers {
		g.Go(func() error {
			_, err := e.Purchase(ctx, buyer, usdc, usdcUnits(30), during)
			switch {
			case err == nil:
				mu.Lock()
				accepted++
				mu.Unlock()
			case errors.Is(err, tge.ErrCapExceeded), errors.Is(err, tge.ErrNotOpen):
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	// 1000 tokens in 30 token purchases fit 33 buyers.
	assert.Equal(t, 33, accepted)

	alloc, err := e.Allocation(ctx)
	require.NoError(t, err)
	assert.True(t, alloc.TokensSold.Eq(tokens(990)))

	remaining, err := bank.BalanceOf(ctx, saleAddr, saleToken)
	require.NoError(t, err)
	assert.True(t, remaining.Eq(tokens(10)))
}
