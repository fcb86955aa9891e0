package vesting

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/fixedpoint"
)

const day = 24 * time.Hour

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func pct(t *testing.T, s string) *uint256.Int {
	t.Helper()
	p, err := fixedpoint.ParsePercent(s)
	require.NoError(t, err)
	return p
}

func airdropSchedule(t *testing.T) tge.Schedule {
	return tge.Schedule{
		PercentAtStart:     pct(t, "100"),
		PercentPerInterval: pct(t, "0"),
		ReleaseMethod:      tge.ReleaseMethodIntervalEnd,
		AllowAccumulate:    true,
	}
}

// monthlySchedule is a 30 day cliff followed by ten 30 day intervals of 10%.
func monthlySchedule(t *testing.T, method tge.ReleaseMethod) tge.Schedule {
	return tge.Schedule{
		CliffDuration:      30 * day,
		PercentAtStart:     pct(t, "0"),
		PercentPerInterval: pct(t, "10"),
		IntervalDuration:   30 * day,
		NumberOfIntervals:  10,
		ReleaseMethod:      method,
		AllowAccumulate:    true,
	}
}

func mustSchedule(t *testing.T, def tge.Schedule) *Schedule {
	t.Helper()
	s, err := NewSchedule(def)
	require.NoError(t, err)
	return s
}

func vestedAt(t *testing.T, s *Schedule, total uint64, at time.Time) uint64 {
	t.Helper()
	v, err := s.VestedAt(uint256.NewInt(total), start, at)
	require.NoError(t, err)
	return v.Uint64()
}

func TestNewSchedule_PercentagesMustSumToExactly100(t *testing.T) {
	t.Run("exact sum accepted", func(t *testing.T) {
		def := tge.Schedule{
			PercentAtStart:     pct(t, "7.5"),
			PercentPerInterval: pct(t, "9.25"),
			IntervalDuration:   day,
			NumberOfIntervals:  10,
			ReleaseMethod:      tge.ReleaseMethodIntervalEnd,
		}
		_, err := NewSchedule(def)
		assert.NoError(t, err)
	})

	t.Run("one unit short rejected", func(t *testing.T) {
		def := monthlySchedule(t, tge.ReleaseMethodIntervalEnd)
		def.PercentAtStart = new(uint256.Int)
		def.PercentPerInterval = pct(t, "9.999999999999999999")
		_, err := NewSchedule(def)
		assert.ErrorIs(t, err, tge.ErrInvalidSchedule)
	})

	t.Run("one unit over rejected", func(t *testing.T) {
		def := monthlySchedule(t, tge.ReleaseMethodIntervalEnd)
		def.PercentAtStart = uint256.NewInt(1)
		_, err := NewSchedule(def)
		assert.ErrorIs(t, err, tge.ErrInvalidSchedule)
	})

	t.Run("overflowing product rejected", func(t *testing.T) {
		def := monthlySchedule(t, tge.ReleaseMethodIntervalEnd)
		def.PercentPerInterval = new(uint256.Int).SetAllOne()
		_, err := NewSchedule(def)
		assert.ErrorIs(t, err, tge.ErrInvalidSchedule)
	})
}

func TestNewSchedule_RejectsBadDurations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*tge.Schedule)
	}{
		{"negative cliff", func(s *tge.Schedule) { s.CliffDuration = -time.Second }},
		{"fractional interval", func(s *tge.Schedule) { s.IntervalDuration = 1500 * time.Millisecond }},
		{"negative gap", func(s *tge.Schedule) { s.GapDuration = -day }},
		{"unknown method", func(s *tge.Schedule) { s.ReleaseMethod = "weekly" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := monthlySchedule(t, tge.ReleaseMethodLinearlyPerSecond)
			tt.mutate(&def)
			_, err := NewSchedule(def)
			assert.ErrorIs(t, err, tge.ErrInvalidSchedule)
		})
	}
}

func TestNewSchedule_CopiesPercentages(t *testing.T) {
	def := monthlySchedule(t, tge.ReleaseMethodIntervalEnd)
	s := mustSchedule(t, def)

	def.PercentPerInterval.SetUint64(0)

	assert.Equal(t, uint64(100), vestedAt(t, s, 1000, start.Add(60*day)))
	assert.True(t, s.Definition().PercentPerInterval.Eq(pct(t, "10")))
}

func TestVestedAt_Airdrop(t *testing.T) {
	s := mustSchedule(t, airdropSchedule(t))

	assert.Equal(t, uint64(0), vestedAt(t, s, 1000, start.Add(-time.Second)))
	assert.Equal(t, uint64(1000), vestedAt(t, s, 1000, start))
	assert.Equal(t, uint64(1000), vestedAt(t, s, 1000, start.Add(365*day)))
}

func TestVestedAt_LinearMonthly(t *testing.T) {
	s := mustSchedule(t, monthlySchedule(t, tge.ReleaseMethodLinearlyPerSecond))

	assert.Equal(t, uint64(0), vestedAt(t, s, 1000, start.Add(30*day)))
	assert.Equal(t, uint64(50), vestedAt(t, s, 1000, start.Add(45*day)))
	assert.Equal(t, uint64(100), vestedAt(t, s, 1000, start.Add(60*day)))
	// The cliff shifts the last interval end to day 330.
	assert.Equal(t, uint64(900), vestedAt(t, s, 1000, start.Add(300*day)))
	assert.Equal(t, uint64(999), vestedAt(t, s, 1000, start.Add(330*day-time.Second)))
	assert.Equal(t, uint64(1000), vestedAt(t, s, 1000, start.Add(330*day)))
	assert.Equal(t, uint64(1000), vestedAt(t, s, 1000, start.Add(3000*day)))
}

func TestVestedAt_IntervalEnd(t *testing.T) {
	s := mustSchedule(t, monthlySchedule(t, tge.ReleaseMethodIntervalEnd))

	assert.Equal(t, uint64(0), vestedAt(t, s, 1000, start.Add(45*day)))
	assert.Equal(t, uint64(0), vestedAt(t, s, 1000, start.Add(60*day-time.Second)))
	assert.Equal(t, uint64(100), vestedAt(t, s, 1000, start.Add(60*day)))
	assert.Equal(t, uint64(900), vestedAt(t, s, 1000, start.Add(329*day)))
	assert.Equal(t, uint64(1000), vestedAt(t, s, 1000, start.Add(330*day)))
}

func TestVestedAt_GapFreezesAccrual(t *testing.T) {
	s := mustSchedule(t, tge.Schedule{
		PercentAtStart:     pct(t, "20"),
		PercentPerInterval: pct(t, "20"),
		IntervalDuration:   10 * day,
		GapDuration:        5 * day,
		NumberOfIntervals:  4,
		ReleaseMethod:      tge.ReleaseMethodLinearlyPerSecond,
	})

	assert.Equal(t, uint64(200), vestedAt(t, s, 1000, start))
	assert.Equal(t, uint64(300), vestedAt(t, s, 1000, start.Add(5*day)))
	assert.Equal(t, uint64(400), vestedAt(t, s, 1000, start.Add(10*day)))
	assert.Equal(t, uint64(400), vestedAt(t, s, 1000, start.Add(12*day)))
	assert.Equal(t, uint64(400), vestedAt(t, s, 1000, start.Add(15*day)))
	assert.Equal(t, uint64(500), vestedAt(t, s, 1000, start.Add(20*day)))
	assert.Equal(t, uint64(1000), vestedAt(t, s, 1000, start.Add(55*day)))
}

func TestVestedAt_MonotonicAndBounded(t *testing.T) {
	schedules := map[string]tge.Schedule{
		"linear":       monthlySchedule(t, tge.ReleaseMethodLinearlyPerSecond),
		"interval end": monthlySchedule(t, tge.ReleaseMethodIntervalEnd),
		"uneven thirds": {
			CliffDuration:      7 * day,
			PercentAtStart:     pct(t, "10"),
			PercentPerInterval: pct(t, "30"),
			IntervalDuration:   13 * day,
			GapDuration:        3 * day,
			NumberOfIntervals:  3,
			ReleaseMethod:      tge.ReleaseMethodLinearlyPerSecond,
		},
	}

	totals := []*uint256.Int{
		uint256.NewInt(1),
		uint256.NewInt(1_000_003),
		uint256.MustFromDecimal("123456789012345678901234567890"),
	}

	for name, def := range schedules {
		t.Run(name, func(t *testing.T) {
			s := mustSchedule(t, def)
			for _, total := range totals {
				prev := new(uint256.Int)
				for at := start.Add(-day); at.Before(start.Add(400 * day)); at = at.Add(7*time.Hour + 13*time.Minute) {
					v, err := s.VestedAt(total, start, at)
					require.NoError(t, err)
					assert.False(t, v.Lt(prev), "vested decreased at %s", at)
					assert.False(t, v.Gt(total), "vested exceeds total at %s", at)
					prev = v
				}
				assert.True(t, prev.Eq(total), "fully vested at the end")
			}
		})
	}
}

func TestClaimable_WithoutAccumulateSettlesOneTrancheAtATime(t *testing.T) {
	s := mustSchedule(t, tge.Schedule{
		PercentAtStart:     pct(t, "10"),
		PercentPerInterval: pct(t, "30"),
		IntervalDuration:   10 * day,
		NumberOfIntervals:  3,
		ReleaseMethod:      tge.ReleaseMethodIntervalEnd,
		AllowAccumulate:    false,
	})

	grant := tge.Grant{TotalAmount: uint256.NewInt(1000), StartTime: start, ClaimedAmount: new(uint256.Int)}
	now := start.Add(35 * day)

	var claims []uint64
	for {
		c, err := s.Claimable(grant, now)
		require.NoError(t, err)
		if c.IsZero() {
			break
		}
		claims = append(claims, c.Uint64())
		grant.ClaimedAmount = new(uint256.Int).Add(grant.ClaimedAmount, c)
	}

	assert.Equal(t, []uint64{100, 300, 300, 300}, claims)
}

func TestClaimable_WithoutAccumulateLinear(t *testing.T) {
	s := mustSchedule(t, tge.Schedule{
		PercentPerInterval: pct(t, "50"),
		IntervalDuration:   10 * day,
		NumberOfIntervals:  2,
		ReleaseMethod:      tge.ReleaseMethodLinearlyPerSecond,
	})

	grant := tge.Grant{TotalAmount: uint256.NewInt(1000), StartTime: start, ClaimedAmount: new(uint256.Int)}
	now := start.Add(15 * day)

	c, err := s.Claimable(grant, now)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), c.Uint64())

	grant.ClaimedAmount = uint256.NewInt(500)
	c, err = s.Claimable(grant, now)
	require.NoError(t, err)
	assert.Equal(t, uint64(250), c.Uint64())

	grant.ClaimedAmount = uint256.NewInt(750)
	c, err = s.Claimable(grant, now)
	require.NoError(t, err)
	assert.True(t, c.IsZero())
}

func TestClaimable_WithAccumulateClaimsEverythingVested(t *testing.T) {
	def := monthlySchedule(t, tge.ReleaseMethodIntervalEnd)
	s := mustSchedule(t, def)

	grant := tge.Grant{TotalAmount: uint256.NewInt(1000), StartTime: start, ClaimedAmount: uint256.NewInt(100)}

	c, err := s.Claimable(grant, start.Add(150*day))
	require.NoError(t, err)
	assert.Equal(t, uint64(300), c.Uint64())
}

func TestReleaseTable(t *testing.T) {
	t.Run("monthly", func(t *testing.T) {
		s := mustSchedule(t, monthlySchedule(t, tge.ReleaseMethodLinearlyPerSecond))

		table, err := s.ReleaseTable(uint256.NewInt(1000), start)
		require.NoError(t, err)
		require.Len(t, table, 11)

		assert.Equal(t, start.Add(30*day), table[0].At)
		assert.True(t, table[0].Cumulative.IsZero())
		assert.Equal(t, start.Add(60*day), table[1].At)
		assert.Equal(t, uint64(100), table[1].Cumulative.Uint64())
		assert.Equal(t, uint64(10), table[10].Index)
		assert.Equal(t, start.Add(330*day), table[10].At)
		assert.Equal(t, uint64(1000), table[10].Cumulative.Uint64())
	})

	t.Run("gaps shift later tranches", func(t *testing.T) {
		s := mustSchedule(t, tge.Schedule{
			PercentAtStart:     pct(t, "50"),
			PercentPerInterval: pct(t, "25"),
			IntervalDuration:   10 * day,
			GapDuration:        5 * day,
			NumberOfIntervals:  2,
			ReleaseMethod:      tge.ReleaseMethodIntervalEnd,
		})

		table, err := s.ReleaseTable(uint256.NewInt(1000), start)
		require.NoError(t, err)
		require.Len(t, table, 3)
		assert.Equal(t, start, table[0].At)
		assert.Equal(t, start.Add(10*day), table[1].At)
		assert.Equal(t, start.Add(25*day), table[2].At)
	})

	t.Run("airdrop has a single tranche", func(t *testing.T) {
		s := mustSchedule(t, airdropSchedule(t))

		table, err := s.ReleaseTable(uint256.NewInt(1000), start)
		require.NoError(t, err)
		require.Len(t, table, 1)
		assert.Equal(t, uint64(1000), table[0].Cumulative.Uint64())
	})
}
