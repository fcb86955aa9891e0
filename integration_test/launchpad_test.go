//go:build integration

package integration_test

import (
	"context"
	"database/sql"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/config"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/fixedpoint"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/internal/chainsim"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/pkg/launchpad"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/store"
)

const launchYAML = `
environments:
  e2e:
    deployer: "0x00000000000000000000000000000000000000d1"
    vesting:
      - id: seed-vesting
        cliff: 30d
        percentAtStart: "0"
        percentPerInterval: "10"
        interval: 30d
        intervals: 10
        releaseMethod: interval-end
        allowAccumulate: true
    crowdsales:
      - id: seed-round
        address: "0x0000000000000000000000000000000000005a1e"
        saleToken: "0x00000000000000000000000000000000000070c0"
        tokenCap: "100"
        lotSize: "10"
        maxLotsPerBuyer: 4
        opening: 2024-03-01T00:00:00Z
        closing: 2024-03-08T00:00:00Z
        wallet: "0x000000000000000000000000000000000000fee5"
        vesting: seed-vesting
        paymentTokens:
          - address: "0x00000000000000000000000000000000000005dc"
            decimals: 6
            rate: "0.05"
`

var (
	saleAddr  = common.HexToAddress("0x5a1e")
	saleToken = common.HexToAddress("0x70c0")
	wallet    = common.HexToAddress("0xfee5")
	usdc      = common.HexToAddress("0x05dc")

	purchaseTime = time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	month        = 30 * 24 * time.Hour
)

func units(t *testing.T, s string, decimals uint8) *uint256.Int {
	t.Helper()
	x, err := fixedpoint.ParseUnits(s, decimals)
	require.NoError(t, err)
	return x
}

func buyerAddr(i int) common.Address {
	return common.BigToAddress(big.NewInt(int64(0xb000 + i)))
}

func loadEnv(t *testing.T, b backend) *config.Environment {
	t.Helper()
	f, err := config.Parse([]byte(launchYAML))
	require.NoError(t, err)
	env, err := f.Environment("e2e")
	require.NoError(t, err)
	env.Database = config.Database{Dialect: b.name, TablePrefix: tablePrefix}
	return env
}

// newLaunchpad builds one instance over the shared database. Instances built from
// the same bank and allow list behave like replicas in front of one chain.
func newLaunchpad(t *testing.T, b backend, db *sql.DB, bank *chainsim.Bank, allow *chainsim.AllowList) *launchpad.Launchpad {
	t.Helper()
	lp, err := launchpad.New(context.Background(),
		launchpad.WithEnvironment(loadEnv(t, b)),
		launchpad.WithDatabase(db),
		launchpad.WithWhitelist(allow),
		launchpad.WithTokens(bank),
		launchpad.WithMetricsEnabled(false),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lp.Close() })
	return lp
}

func balance(t *testing.T, bank *chainsim.Bank, account, token common.Address) *uint256.Int {
	t.Helper()
	got, err := bank.BalanceOf(context.Background(), account, token)
	require.NoError(t, err)
	return got
}

func TestPurchaseThenClaim(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend, db *sql.DB) {
		ctx := context.Background()
		alice := buyerAddr(1)

		bank := chainsim.NewBank()
		require.NoError(t, bank.Mint(saleAddr, saleToken, units(t, "100", 18)))
		require.NoError(t, bank.Mint(alice, usdc, units(t, "1.25", 6)))

		lp := newLaunchpad(t, b, db, bank, chainsim.NewAllowList(alice))
		sale, _ := lp.Sale("seed-round")
		seed, _ := lp.Vesting("seed-vesting")

		receipt, err := sale.Purchase(ctx, alice, usdc, units(t, "1.25", 6), purchaseTime)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), receipt.Lots)
		assert.True(t, receipt.Vested)
		assert.Equal(t, units(t, "1", 6), balance(t, bank, wallet, usdc))
		assert.Equal(t, units(t, "0.25", 6), balance(t, bank, alice, usdc))

		_, err = seed.Claim(ctx, alice, purchaseTime.Add(month))
		assert.ErrorIs(t, err, tge.ErrNothingToClaim)

		claimed, err := seed.Claim(ctx, alice, purchaseTime.Add(3*month))
		require.NoError(t, err)
		assert.Equal(t, units(t, "4", 18), claimed)

		grant, err := seed.Grant(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, units(t, "4", 18), grant.ClaimedAmount)

		purchases, err := sale.Purchases(ctx)
		require.NoError(t, err)
		require.Len(t, purchases, 1)
		assert.Equal(t, receipt.ID, purchases[0].ID)
	})
}

func TestConcurrentPurchases_StayWithinCap(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend, db *sql.DB) {
		ctx := context.Background()
		const buyers = 10

		bank := chainsim.NewBank()
		require.NoError(t, bank.Mint(saleAddr, saleToken, units(t, "100", 18)))
		allow := chainsim.NewAllowList()
		for i := 0; i < buyers; i++ {
			allow.Add(buyerAddr(i))
			require.NoError(t, bank.Mint(buyerAddr(i), usdc, units(t, "1", 6)))
		}

		instances := []*launchpad.Launchpad{
			newLaunchpad(t, b, db, bank, allow),
			newLaunchpad(t, b, db, bank, allow),
		}

		results := make([]error, buyers)
		var g errgroup.Group
		for i := 0; i < buyers; i++ {
			sale, _ := instances[i%len(instances)].Sale("seed-round")
			g.Go(func() error {
				_, results[i] = sale.Purchase(ctx, buyerAddr(i), usdc, units(t, "1", 6), purchaseTime)
				return nil
			})
		}
		require.NoError(t, g.Wait())

		succeeded := 0
		for i, err := range results {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, tge.ErrCapExceeded), errors.Is(err, tge.ErrNotOpen), errors.Is(err, store.ErrConflict):
				assert.Equal(t, units(t, "1", 6), balance(t, bank, buyerAddr(i), usdc), "rejected buyer %d keeps the payment", i)
			default:
				t.Fatalf("buyer %d: unexpected error: %v", i, err)
			}
		}

		assert.LessOrEqual(t, succeeded, 5)
		assert.Positive(t, succeeded)

		sale, _ := instances[0].Sale("seed-round")
		alloc, err := sale.Allocation(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint256.NewInt(0).Mul(uint256.NewInt(uint64(succeeded)), units(t, "20", 18)), alloc.TokensSold)
		assert.Equal(t, uint256.NewInt(0).Mul(uint256.NewInt(uint64(succeeded)), units(t, "1", 6)), balance(t, bank, wallet, usdc))

		grants, err := instances[1].Ledger().ListGrants(ctx, "seed-vesting")
		require.NoError(t, err)
		assert.Len(t, grants, succeeded)
	})
}

func TestRestart_RecoversLedgerState(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend, db *sql.DB) {
		ctx := context.Background()
		alice := buyerAddr(1)

		bank := chainsim.NewBank()
		require.NoError(t, bank.Mint(saleAddr, saleToken, units(t, "100", 18)))
		require.NoError(t, bank.Mint(alice, usdc, units(t, "5", 6)))
		allow := chainsim.NewAllowList(alice)

		first := newLaunchpad(t, b, db, bank, allow)
		sale, _ := first.Sale("seed-round")
		_, err := sale.Purchase(ctx, alice, usdc, units(t, "1.5", 6), purchaseTime)
		require.NoError(t, err)
		require.NoError(t, first.Close())

		second := newLaunchpad(t, b, db, bank, allow)
		sale, _ = second.Sale("seed-round")

		lots, err := sale.LotsPurchased(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), lots)

		_, err = sale.Purchase(ctx, alice, usdc, units(t, "1", 6), purchaseTime.Add(time.Hour))
		assert.ErrorIs(t, err, tge.ErrLotLimitExceeded)

		receipt, err := sale.Purchase(ctx, alice, usdc, units(t, "0.5", 6), purchaseTime.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, uint64(1), receipt.Lots)

		seed, _ := second.Vesting("seed-vesting")
		grant, err := seed.Grant(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, units(t, "40", 18), grant.TotalAmount)
		assert.Equal(t, purchaseTime.Unix(), grant.StartTime.Unix())

		purchases, err := sale.Purchases(ctx)
		require.NoError(t, err)
		assert.Len(t, purchases, 2)
	})
}

func TestConcurrentClaims_PayVestedAmountOnce(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend, db *sql.DB) {
		ctx := context.Background()
		alice := buyerAddr(1)

		bank := chainsim.NewBank()
		require.NoError(t, bank.Mint(saleAddr, saleToken, units(t, "100", 18)))
		require.NoError(t, bank.Mint(alice, usdc, units(t, "2", 6)))
		allow := chainsim.NewAllowList(alice)

		instances := []*launchpad.Launchpad{
			newLaunchpad(t, b, db, bank, allow),
			newLaunchpad(t, b, db, bank, allow),
		}
		sale, _ := instances[0].Sale("seed-round")
		_, err := sale.Purchase(ctx, alice, usdc, units(t, "2", 6), purchaseTime)
		require.NoError(t, err)

		claimAt := purchaseTime.Add(6 * month)
		var g errgroup.Group
		for i := 0; i < 8; i++ {
			seed, _ := instances[i%len(instances)].Vesting("seed-vesting")
			g.Go(func() error {
				_, err := seed.Claim(ctx, alice, claimAt)
				if err != nil && !errors.Is(err, tge.ErrNothingToClaim) && !errors.Is(err, store.ErrConflict) {
					return err
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())

		seed, _ := instances[1].Vesting("seed-vesting")
		vested, err := seed.VestedAmount(ctx, alice, claimAt)
		require.NoError(t, err)
		assert.Equal(t, units(t, "20", 18), vested)

		grant, err := seed.Grant(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, balance(t, bank, alice, saleToken), grant.ClaimedAmount)
		assert.True(t, grant.ClaimedAmount.Cmp(vested) <= 0)
	})
}
