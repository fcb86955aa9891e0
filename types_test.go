package tge

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func TestSaleState_Constants(t *testing.T) {
	t.Run("SaleStatePending equals pending", func(t *testing.T) {
		assert.Equal(t, SaleState("pending"), SaleStatePending)
	})

	t.Run("SaleStateOpen equals open", func(t *testing.T) {
		assert.Equal(t, SaleState("open"), SaleStateOpen)
	})

	t.Run("SaleStateClosed equals closed", func(t *testing.T) {
		assert.Equal(t, SaleState("closed"), SaleStateClosed)
	})
}

func TestReleaseMethod_Valid(t *testing.T) {
	assert.True(t, ReleaseMethodIntervalEnd.Valid())
	assert.True(t, ReleaseMethodLinearlyPerSecond.Valid())
	assert.False(t, ReleaseMethod("").Valid())
	assert.False(t, ReleaseMethod("weekly").Valid())
}

func TestGrant_ZeroValues(t *testing.T) {
	t.Run("zero value grant", func(t *testing.T) {
		var g Grant

		assert.Equal(t, "", g.VestingID)
		assert.Equal(t, common.Address{}, g.Beneficiary)
		assert.Nil(t, g.TotalAmount)
		assert.Nil(t, g.ClaimedAmount)
		assert.True(t, g.StartTime.IsZero())
	})

	t.Run("initialized grant", func(t *testing.T) {
		start := time.Unix(1_700_000_000, 0)
		g := Grant{
			VestingID:     "seed",
			Beneficiary:   common.HexToAddress("0x01"),
			TotalAmount:   uint256.NewInt(1000),
			StartTime:     start,
			ClaimedAmount: uint256.NewInt(0),
		}

		assert.Equal(t, "seed", g.VestingID)
		assert.Equal(t, uint64(1000), g.TotalAmount.Uint64())
		assert.True(t, g.ClaimedAmount.IsZero())
		assert.Equal(t, start, g.StartTime)
	})
}
