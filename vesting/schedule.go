package vesting

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/fixedpoint"
)

// Schedule is a validated tge.Schedule with its durations reduced to whole seconds.
// It is immutable and safe for concurrent use.
type Schedule struct {
	def tge.Schedule

	cliff    int64
	interval uint64
	gap      uint64
	pas      *uint256.Int
	ppi      *uint256.Int
}

// NewSchedule validates def and returns the schedule it describes.
// Returns tge.ErrInvalidSchedule if the percentages do not sum to exactly 100%, a
// duration is negative or not a whole number of seconds, or the release method is unknown.
func NewSchedule(def tge.Schedule) (*Schedule, error) {
	if !def.ReleaseMethod.Valid() {
		return nil, fmt.Errorf("unknown release method %q: %w", def.ReleaseMethod, tge.ErrInvalidSchedule)
	}

	cliff, err := seconds("cliff", def.CliffDuration)
	if err != nil {
		return nil, err
	}
	interval, err := seconds("interval", def.IntervalDuration)
	if err != nil {
		return nil, err
	}
	gap, err := seconds("gap", def.GapDuration)
	if err != nil {
		return nil, err
	}

	s := &Schedule{
		def:      def,
		cliff:    cliff,
		interval: uint64(interval),
		gap:      uint64(gap),
		pas:      new(uint256.Int).Set(orZero(def.PercentAtStart)),
		ppi:      new(uint256.Int).Set(orZero(def.PercentPerInterval)),
	}

	sum, err := s.cumulativePercent(def.NumberOfIntervals)
	if err != nil {
		return nil, fmt.Errorf("percentages overflow: %w", tge.ErrInvalidSchedule)
	}
	if !sum.Eq(fixedpoint.Percent100()) {
		return nil, fmt.Errorf("percentages sum to %s%%, want 100%%: %w",
			fixedpoint.FormatUnits(sum, fixedpoint.Decimals), tge.ErrInvalidSchedule)
	}

	s.def.PercentAtStart = s.pas
	s.def.PercentPerInterval = s.ppi

	return s, nil
}

func seconds(name string, d time.Duration) (int64, error) {
	if d < 0 {
		return 0, fmt.Errorf("negative %s duration %s: %w", name, d, tge.ErrInvalidSchedule)
	}
	if d%time.Second != 0 {
		return 0, fmt.Errorf("%s duration %s is not whole seconds: %w", name, d, tge.ErrInvalidSchedule)
	}
	return int64(d / time.Second), nil
}

func orZero(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}
	return x
}

// Definition returns a copy of the schedule parameters.
func (s *Schedule) Definition() tge.Schedule {
	def := s.def
	def.PercentAtStart = new(uint256.Int).Set(s.pas)
	def.PercentPerInterval = new(uint256.Int).Set(s.ppi)
	return def
}

// singleRelease reports whether the whole grant vests when the cliff ends.
func (s *Schedule) singleRelease() bool {
	return s.interval == 0 || s.def.NumberOfIntervals == 0
}

// cumulativePercent returns percentAtStart + percentPerInterval * j.
func (s *Schedule) cumulativePercent(j uint64) (*uint256.Int, error) {
	step, err := fixedpoint.Mul(s.ppi, uint256.NewInt(j))
	if err != nil {
		return nil, err
	}
	return fixedpoint.Add(s.pas, step)
}

// progress returns how far the schedule has run at now: the number of completed
// intervals and, under linear release, the seconds elapsed in the interval in progress.
// started is false before the cliff ends.
func (s *Schedule) progress(start, now time.Time) (completed, elapsed uint64, started bool) {
	t := now.Unix() - start.Unix() - s.cliff
	if t < 0 {
		return 0, 0, false
	}
	if s.singleRelease() {
		return s.def.NumberOfIntervals, 0, true
	}

	cycle := s.interval + s.gap
	k, r := uint64(t)/cycle, uint64(t)%cycle

	completed = k
	if r >= s.interval {
		completed++
	} else if s.def.ReleaseMethod == tge.ReleaseMethodLinearlyPerSecond {
		elapsed = r
	}

	if completed >= s.def.NumberOfIntervals {
		return s.def.NumberOfIntervals, 0, true
	}
	return completed, elapsed, true
}

// VestedAt returns the amount of total vested at now for a grant starting at start.
// The result is a single truncation of
// total * (percentAtStart*interval + percentPerInterval*(completed*interval + elapsed)) / (100% * interval)
// and never exceeds total.
func (s *Schedule) VestedAt(total *uint256.Int, start, now time.Time) (*uint256.Int, error) {
	completed, elapsed, started := s.progress(start, now)
	if !started {
		return new(uint256.Int), nil
	}
	if completed == s.def.NumberOfIntervals {
		return new(uint256.Int).Set(total), nil
	}

	iv := uint256.NewInt(s.interval)

	atStart, err := fixedpoint.Mul(s.pas, iv)
	if err != nil {
		return nil, err
	}

	secs, err := fixedpoint.Mul(uint256.NewInt(completed), iv)
	if err != nil {
		return nil, err
	}
	secs, err = fixedpoint.Add(secs, uint256.NewInt(elapsed))
	if err != nil {
		return nil, err
	}

	accrued, err := fixedpoint.Mul(s.ppi, secs)
	if err != nil {
		return nil, err
	}
	numerator, err := fixedpoint.Add(atStart, accrued)
	if err != nil {
		return nil, err
	}

	denominator, err := fixedpoint.Mul(fixedpoint.Percent100(), iv)
	if err != nil {
		return nil, err
	}

	vested, err := fixedpoint.MulDiv(total, numerator, denominator)
	if err != nil {
		return nil, err
	}

	return fixedpoint.Min(vested, total), nil
}

// TrancheAmount returns the cumulative amount of total released once tranche j has
// settled: tranche 0 is the start release and tranche j the end of interval j.
func (s *Schedule) TrancheAmount(total *uint256.Int, j uint64) (*uint256.Int, error) {
	if s.singleRelease() || j >= s.def.NumberOfIntervals {
		return new(uint256.Int).Set(total), nil
	}

	pct, err := s.cumulativePercent(j)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(total, pct, fixedpoint.Percent100())
}

// claimCeiling returns the most a grant may have claimed after the next claim when
// accumulation is disabled: the first tranche boundary above claimed.
// claimed must be below total.
func (s *Schedule) claimCeiling(total, claimed *uint256.Int) (*uint256.Int, error) {
	if s.singleRelease() {
		return new(uint256.Int).Set(total), nil
	}

	lo, hi := uint64(0), s.def.NumberOfIntervals
	for lo < hi {
		mid := lo + (hi-lo)/2
		b, err := s.TrancheAmount(total, mid)
		if err != nil {
			return nil, err
		}
		if b.Gt(claimed) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}

	return s.TrancheAmount(total, lo)
}

// Claimable returns what a grant may claim at now.
// With accumulation the whole vested delta is claimable. Without it a claim stops at the
// next unsettled tranche boundary and later claims settle the following tranches.
func (s *Schedule) Claimable(grant tge.Grant, now time.Time) (*uint256.Int, error) {
	vested, err := s.VestedAt(grant.TotalAmount, grant.StartTime, now)
	if err != nil {
		return nil, err
	}

	claimed := orZero(grant.ClaimedAmount)
	if !vested.Gt(claimed) {
		return new(uint256.Int), nil
	}

	if !s.def.AllowAccumulate {
		ceiling, err := s.claimCeiling(grant.TotalAmount, claimed)
		if err != nil {
			return nil, err
		}
		vested = fixedpoint.Min(vested, ceiling)
	}

	return new(uint256.Int).Sub(vested, claimed), nil
}

// TrancheTime returns when tranche j settles for a grant starting at start.
func (s *Schedule) TrancheTime(start time.Time, j uint64) time.Time {
	at := start.Add(time.Duration(s.cliff) * time.Second)
	if j == 0 || s.singleRelease() {
		return at
	}
	offset := (j-1)*(s.interval+s.gap) + s.interval
	return at.Add(time.Duration(offset) * time.Second)
}

// ReleaseTable lists every tranche of a grant with its settlement time and the
// cumulative amount released by then.
func (s *Schedule) ReleaseTable(total *uint256.Int, start time.Time) ([]tge.Tranche, error) {
	if s.singleRelease() {
		return []tge.Tranche{{Index: 0, At: s.TrancheTime(start, 0), Cumulative: new(uint256.Int).Set(total)}}, nil
	}

	table := make([]tge.Tranche, 0, s.def.NumberOfIntervals+1)
	for j := uint64(0); j <= s.def.NumberOfIntervals; j++ {
		amount, err := s.TrancheAmount(total, j)
		if err != nil {
			return nil, err
		}
		table = append(table, tge.Tranche{Index: j, At: s.TrancheTime(start, j), Cumulative: amount})
	}
	return table, nil
}
