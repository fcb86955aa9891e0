// Package config loads per-environment launch parameters: vesting schedules,
// crowdsales, and the ledger database, from a single YAML file.
//
// Percentages, rates, and token amounts are written as decimal strings and converted
// to 18-decimal fixed point without passing through floating point.
package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/crowdsale"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/fixedpoint"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/store/sqlstore"
)

// File is the top level of a launch configuration file.
type File struct {
	Environments map[string]*Environment `yaml:"environments"`
}

// Environment is the configuration of one network.
type Environment struct {
	Name string `yaml:"-"`

	// Deployer may create grants and configure sales until admins are set.
	Deployer common.Address `yaml:"deployer"`

	// Admin, when set, becomes the admin of every sale.
	Admin common.Address `yaml:"admin"`

	Database   Database    `yaml:"database"`
	Metrics    Metrics     `yaml:"metrics"`
	Vesting    []Vesting   `yaml:"vesting"`
	Crowdsales []Crowdsale `yaml:"crowdsales"`
}

// Database selects the allocation and grant ledger.
type Database struct {
	// Dialect is postgres, mysql, or sqlite3. Empty selects the in-memory ledger.
	Dialect string `yaml:"dialect"`

	DSN string `yaml:"dsn"`

	// TablePrefix prefixes the ledger table names (default: tge).
	TablePrefix string `yaml:"tablePrefix"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Addr string `yaml:"addr"`
}

// Vesting describes one vesting schedule.
type Vesting struct {
	ID                 string          `yaml:"id"`
	Cliff              Duration        `yaml:"cliff"`
	PercentAtStart     decimal.Decimal `yaml:"percentAtStart"`
	PercentPerInterval decimal.Decimal `yaml:"percentPerInterval"`
	Interval           Duration        `yaml:"interval"`
	Gap                Duration        `yaml:"gap"`
	Intervals          uint64          `yaml:"intervals"`
	ReleaseMethod      string          `yaml:"releaseMethod"`
	AllowAccumulate    bool            `yaml:"allowAccumulate"`
}

// Crowdsale describes one sale. Token amounts are whole sale tokens.
type Crowdsale struct {
	ID              string          `yaml:"id"`
	Address         common.Address  `yaml:"address"`
	SaleToken       common.Address  `yaml:"saleToken"`
	TokenCap        decimal.Decimal `yaml:"tokenCap"`
	LotSize         decimal.Decimal `yaml:"lotSize"`
	MaxLotsPerBuyer uint64          `yaml:"maxLotsPerBuyer"`
	Opening         time.Time       `yaml:"opening"`
	Closing         time.Time       `yaml:"closing"`
	Wallet          common.Address  `yaml:"wallet"`

	// Vesting names the vesting schedule allocations are granted under.
	// Empty means tokens are transferred to buyers directly.
	Vesting string `yaml:"vesting"`

	PaymentTokens []PaymentToken `yaml:"paymentTokens"`
	TokenHold     *TokenHold     `yaml:"tokenHold"`
}

// PaymentToken is an accepted payment token and its price per sale token.
type PaymentToken struct {
	Address  common.Address  `yaml:"address"`
	Decimals uint8           `yaml:"decimals"`
	Rate     decimal.Decimal `yaml:"rate"`
}

// TokenHold requires buyers to hold MinAmount whole tokens of Token.
type TokenHold struct {
	Token     common.Address  `yaml:"token"`
	Decimals  uint8           `yaml:"decimals"`
	MinAmount decimal.Decimal `yaml:"minAmount"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if len(f.Environments) == 0 {
		return nil, fmt.Errorf("no environments defined: %w", tge.ErrInvalidConfig)
	}

	for name, env := range f.Environments {
		if env == nil {
			return nil, fmt.Errorf("environment %q is empty: %w", name, tge.ErrInvalidConfig)
		}
		env.Name = name
		if err := env.validate(); err != nil {
			return nil, fmt.Errorf("environment %q: %w", name, err)
		}
	}

	return &f, nil
}

// Environment returns the named environment.
func (f *File) Environment(name string) (*Environment, error) {
	env, ok := f.Environments[name]
	if !ok {
		return nil, fmt.Errorf("unknown environment %q (have %v): %w", name, f.Names(), tge.ErrInvalidConfig)
	}
	return env, nil
}

// Names returns the environment names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Environments))
	for name := range f.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Environment) validate() error {
	if e.Database.Dialect != "" {
		if _, err := sqlstore.ParseDialect(e.Database.Dialect); err != nil {
			return fmt.Errorf("database: %v: %w", err, tge.ErrInvalidConfig)
		}
		if e.Database.DSN == "" {
			return fmt.Errorf("database dsn is required for dialect %s: %w", e.Database.Dialect, tge.ErrInvalidConfig)
		}
	}

	vestingIDs := make(map[string]struct{}, len(e.Vesting))
	for _, v := range e.Vesting {
		if _, ok := vestingIDs[v.ID]; ok {
			return fmt.Errorf("vesting %q defined twice: %w", v.ID, tge.ErrInvalidConfig)
		}
		vestingIDs[v.ID] = struct{}{}
		if _, err := v.Schedule(); err != nil {
			return fmt.Errorf("vesting %q: %w", v.ID, err)
		}
	}

	saleIDs := make(map[string]struct{}, len(e.Crowdsales))
	for _, c := range e.Crowdsales {
		if _, ok := saleIDs[c.ID]; ok {
			return fmt.Errorf("crowdsale %q defined twice: %w", c.ID, tge.ErrInvalidConfig)
		}
		saleIDs[c.ID] = struct{}{}
		if c.Vesting != "" {
			if _, ok := vestingIDs[c.Vesting]; !ok {
				return fmt.Errorf("crowdsale %q references unknown vesting %q: %w", c.ID, c.Vesting, tge.ErrInvalidConfig)
			}
		}
		cfg, err := c.Config(e.Deployer)
		if err != nil {
			return fmt.Errorf("crowdsale %q: %w", c.ID, err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("crowdsale %q: %w", c.ID, err)
		}
	}

	return nil
}

// VestingByID returns the named vesting definition.
func (e *Environment) VestingByID(id string) (Vesting, bool) {
	for _, v := range e.Vesting {
		if v.ID == id {
			return v, true
		}
	}
	return Vesting{}, false
}

// Schedule converts the definition to a tge.Schedule. It does not check the
// 100% invariant; the vesting engine does that on construction.
func (v Vesting) Schedule() (tge.Schedule, error) {
	if v.ID == "" {
		return tge.Schedule{}, fmt.Errorf("vesting id is required: %w", tge.ErrInvalidConfig)
	}

	pas, err := fixedpoint.ParsePercent(v.PercentAtStart.String())
	if err != nil {
		return tge.Schedule{}, fmt.Errorf("percentAtStart: %w", err)
	}
	ppi, err := fixedpoint.ParsePercent(v.PercentPerInterval.String())
	if err != nil {
		return tge.Schedule{}, fmt.Errorf("percentPerInterval: %w", err)
	}

	method := tge.ReleaseMethod(v.ReleaseMethod)
	if method == "" {
		method = tge.ReleaseMethodIntervalEnd
	}
	if !method.Valid() {
		return tge.Schedule{}, fmt.Errorf("unknown release method %q: %w", v.ReleaseMethod, tge.ErrInvalidSchedule)
	}

	return tge.Schedule{
		CliffDuration:      v.Cliff.Std(),
		PercentAtStart:     pas,
		PercentPerInterval: ppi,
		IntervalDuration:   v.Interval.Std(),
		GapDuration:        v.Gap.Std(),
		NumberOfIntervals:  v.Intervals,
		ReleaseMethod:      method,
		AllowAccumulate:    v.AllowAccumulate,
	}, nil
}

// Config converts the definition to a crowdsale.Config with deployer as the deployer.
func (c Crowdsale) Config(deployer common.Address) (crowdsale.Config, error) {
	tokenCap, err := fixedpoint.ParseUnits(c.TokenCap.String(), fixedpoint.Decimals)
	if err != nil {
		return crowdsale.Config{}, fmt.Errorf("tokenCap: %w", err)
	}
	lotSize, err := fixedpoint.ParseUnits(c.LotSize.String(), fixedpoint.Decimals)
	if err != nil {
		return crowdsale.Config{}, fmt.Errorf("lotSize: %w", err)
	}

	cfg := crowdsale.Config{
		ID:              c.ID,
		Address:         c.Address,
		SaleToken:       c.SaleToken,
		TokenCap:        tokenCap,
		LotSize:         lotSize,
		MaxLotsPerBuyer: c.MaxLotsPerBuyer,
		OpeningTime:     c.Opening,
		ClosingTime:     c.Closing,
		Wallet:          c.Wallet,
		Deployer:        deployer,
	}

	for _, pt := range c.PaymentTokens {
		rate, err := fixedpoint.ParseUnits(pt.Rate.String(), fixedpoint.Decimals)
		if err != nil {
			return crowdsale.Config{}, fmt.Errorf("rate of %s: %w", pt.Address.Hex(), err)
		}
		cfg.PaymentTokens = append(cfg.PaymentTokens, tge.PaymentToken{
			Address:  pt.Address,
			Decimals: pt.Decimals,
			Rate:     rate,
		})
	}

	if c.TokenHold != nil {
		decimals := c.TokenHold.Decimals
		if decimals == 0 {
			decimals = fixedpoint.Decimals
		}
		minAmount, err := fixedpoint.ParseUnits(c.TokenHold.MinAmount.String(), decimals)
		if err != nil {
			return crowdsale.Config{}, fmt.Errorf("tokenHold.minAmount: %w", err)
		}
		cfg.TokenHold = &tge.TokenHold{Token: c.TokenHold.Token, MinAmount: minAmount}
	}

	return cfg, nil
}
