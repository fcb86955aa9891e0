package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/fixedpoint"
)

const day = 24 * time.Hour

func loadFixture(t *testing.T) *File {
	t.Helper()
	f, err := Load(filepath.Join("testdata", "launchpad.yaml"))
	require.NoError(t, err)
	return f
}

func TestLoad_Fixture(t *testing.T) {
	f := loadFixture(t)

	assert.Equal(t, []string{"mainnet", "testnet"}, f.Names())

	env, err := f.Environment("testnet")
	require.NoError(t, err)
	assert.Equal(t, "testnet", env.Name)
	assert.Equal(t, common.HexToAddress("0xd1"), env.Deployer)
	assert.Equal(t, ":9090", env.Metrics.Addr)
	assert.Empty(t, env.Database.Dialect)
	require.Len(t, env.Vesting, 2)
	require.Len(t, env.Crowdsales, 1)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestEnvironment_Unknown(t *testing.T) {
	f := loadFixture(t)

	_, err := f.Environment("devnet")
	require.ErrorIs(t, err, tge.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "mainnet")
}

func TestVesting_Schedule(t *testing.T) {
	f := loadFixture(t)
	env, err := f.Environment("testnet")
	require.NoError(t, err)

	v, ok := env.VestingByID("seed-vesting")
	require.True(t, ok)
	s, err := v.Schedule()
	require.NoError(t, err)

	assert.Equal(t, 30*day, s.CliffDuration)
	assert.Equal(t, 30*day, s.IntervalDuration)
	assert.Zero(t, s.GapDuration)
	assert.Equal(t, uint64(10), s.NumberOfIntervals)
	assert.Equal(t, tge.ReleaseMethodLinearlyPerSecond, s.ReleaseMethod)
	assert.True(t, s.AllowAccumulate)
	assert.True(t, s.PercentAtStart.IsZero())
	assert.Equal(t, "10", fixedpoint.FormatUnits(s.PercentPerInterval, fixedpoint.Decimals))

	airdrop, ok := env.VestingByID("airdrop")
	require.True(t, ok)
	s, err = airdrop.Schedule()
	require.NoError(t, err)
	assert.Equal(t, fixedpoint.Percent100(), s.PercentAtStart)
	assert.Equal(t, tge.ReleaseMethodIntervalEnd, s.ReleaseMethod)

	_, ok = env.VestingByID("team")
	assert.False(t, ok)
}

func TestVesting_ScheduleDefaultsAndGap(t *testing.T) {
	f := loadFixture(t)
	env, err := f.Environment("mainnet")
	require.NoError(t, err)

	assert.Equal(t, "postgres", env.Database.Dialect)
	assert.Equal(t, "launch", env.Database.TablePrefix)
	assert.Equal(t, common.HexToAddress("0xa1"), env.Admin)

	v, ok := env.VestingByID("team")
	require.True(t, ok)
	s, err := v.Schedule()
	require.NoError(t, err)
	assert.Equal(t, 365*day, s.CliffDuration)
	assert.Equal(t, 36*time.Hour, s.GapDuration)
	assert.Equal(t, "7.5", fixedpoint.FormatUnits(s.PercentPerInterval, fixedpoint.Decimals))

	v.ReleaseMethod = ""
	s, err = v.Schedule()
	require.NoError(t, err)
	assert.Equal(t, tge.ReleaseMethodIntervalEnd, s.ReleaseMethod)

	v.ReleaseMethod = "cliff-only"
	_, err = v.Schedule()
	assert.ErrorIs(t, err, tge.ErrInvalidSchedule)
}

func TestCrowdsale_Config(t *testing.T) {
	f := loadFixture(t)
	env, err := f.Environment("testnet")
	require.NoError(t, err)

	cfg, err := env.Crowdsales[0].Config(env.Deployer)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "seed-round", cfg.ID)
	assert.Equal(t, common.HexToAddress("0x5a1e"), cfg.Address)
	assert.Equal(t, env.Deployer, cfg.Deployer)
	assert.Equal(t, "100", fixedpoint.FormatUnits(cfg.TokenCap, fixedpoint.Decimals))
	assert.Equal(t, "10", fixedpoint.FormatUnits(cfg.LotSize, fixedpoint.Decimals))
	assert.Equal(t, uint64(10), cfg.MaxLotsPerBuyer)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), cfg.OpeningTime.UTC())
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), cfg.ClosingTime.UTC())

	require.Len(t, cfg.PaymentTokens, 2)
	// An unquoted 0.05 must still convert exactly.
	for _, pt := range cfg.PaymentTokens {
		assert.Equal(t, "50000000000000000", pt.Rate.Dec())
	}
	assert.Equal(t, uint8(6), cfg.PaymentTokens[0].Decimals)

	require.NotNil(t, cfg.TokenHold)
	assert.Equal(t, common.HexToAddress("0x401d"), cfg.TokenHold.Token)
	assert.Equal(t, "1000", fixedpoint.FormatUnits(cfg.TokenHold.MinAmount, fixedpoint.Decimals))
}

func TestCrowdsale_ConfigTokenHoldDecimals(t *testing.T) {
	f := loadFixture(t)
	env, err := f.Environment("testnet")
	require.NoError(t, err)

	c := env.Crowdsales[0]
	hold := *c.TokenHold
	hold.Decimals = 6
	c.TokenHold = &hold

	cfg, err := c.Config(env.Deployer)
	require.NoError(t, err)
	assert.Equal(t, "1000000000", cfg.TokenHold.MinAmount.Dec())
}

func TestParse_Invalid(t *testing.T) {
	base, err := os.ReadFile(filepath.Join("testdata", "launchpad.yaml"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "no environments",
			doc:     "environments: {}\n",
			wantErr: "no environments defined",
		},
		{
			name:    "unknown dialect",
			doc:     strings.Replace(string(base), "dialect: postgres", "dialect: oracle", 1),
			wantErr: "unsupported database dialect",
		},
		{
			name:    "missing dsn",
			doc:     strings.Replace(string(base), "dsn: postgres://tge@localhost/tge?sslmode=disable", "dsn: \"\"", 1),
			wantErr: "dsn is required",
		},
		{
			name:    "unknown vesting reference",
			doc:     strings.Replace(string(base), "vesting: seed-vesting", "vesting: private-vesting", 1),
			wantErr: "unknown vesting",
		},
		{
			name:    "duplicate vesting",
			doc:     strings.Replace(string(base), "- id: airdrop", "- id: seed-vesting", 1),
			wantErr: "defined twice",
		},
		{
			name:    "lot larger than cap",
			doc:     strings.Replace(string(base), "lotSize: \"10\"", "lotSize: \"200\"", 1),
			wantErr: "seed-round",
		},
		{
			name:    "too many decimals",
			doc:     strings.Replace(string(base), "tokenCap: \"100\"", "tokenCap: \"0.0000000000000000001\"", 1),
			wantErr: "tokenCap",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_InvalidConfigSentinel(t *testing.T) {
	doc := `
environments:
  local:
    database:
      dialect: sqlite3
`
	_, err := Parse([]byte(doc))
	assert.ErrorIs(t, err, tge.ErrInvalidConfig)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "0", want: 0},
		{in: "90s", want: 90 * time.Second},
		{in: "30d", want: 30 * day},
		{in: "1d12h", want: 36 * time.Hour},
		{in: " 2d ", want: 2 * day},
		{in: "xd", wantErr: true},
		{in: "1d-1h", wantErr: true},
		{in: "-5m", wantErr: true},
		{in: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
