// Package launchpad wires the vesting and crowdsale engines of one configured
// environment together and runs the one-time admin setup between them.
//
// Setup is idempotent: running New against a ledger and engines that are already
// configured changes nothing.
package launchpad

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/config"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/crowdsale"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/lifecycle"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/metrics"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/store"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/store/memory"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/store/sqlstore"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/vesting"
)

// Ledger persists both grants and allocations.
// *memory.Store and *sqlstore.Store satisfy it.
type Ledger interface {
	store.GrantStore
	store.AllocationStore
}

// Launchpad holds the engines of one environment.
type Launchpad struct {
	env     *config.Environment
	ledger  Ledger
	db      *sql.DB
	ownsDB  bool
	vesting map[string]*vesting.Engine
	sales   map[string]*crowdsale.Engine

	pollInterval time.Duration
	clock        func() time.Time
	logger       tge.Logger
}

// New builds every engine of the environment and grants each sale admin rights on
// its vesting engine.
//
// Required options:
//   - WithEnvironment: the environment to launch
//   - WithWhitelist: buyer whitelist shared by all sales
//   - WithTokens: token balances and transfers
//
// Optional configuration (with defaults):
//   - WithLedger: grant and allocation ledger (default: SQL ledger from the environment's database, or in-memory)
//   - WithDatabase: open database for the SQL ledger (default: opened from the environment's DSN)
//   - WithMigrate: create the ledger tables before use (default: false)
//   - WithPollInterval: sale state poll interval for Run (default: 5s)
//   - WithClock: time source for Run (default: time.Now)
//   - WithLogger: logger for observability (default: nil)
//   - WithMetricsEnabled: enable Prometheus metrics (default: true)
//
// Example:
//
//	lp, err := launchpad.New(ctx,
//	    launchpad.WithEnvironment(env),
//	    launchpad.WithWhitelist(allowList),
//	    launchpad.WithTokens(bank),
//	)
func New(ctx context.Context, opts ...Option) (*Launchpad, error) {
	s := &settings{
		pollInterval:   5 * time.Second,
		clock:          time.Now,
		metricsEnabled: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.env == nil {
		return nil, fmt.Errorf("environment is required: use WithEnvironment option")
	}
	if s.whitelist == nil {
		return nil, fmt.Errorf("whitelist is required: use WithWhitelist option")
	}
	if s.tokens == nil {
		return nil, fmt.Errorf("token provider is required: use WithTokens option")
	}

	lp := &Launchpad{
		env:          s.env,
		ledger:       s.ledger,
		db:           s.db,
		vesting:      make(map[string]*vesting.Engine, len(s.env.Vesting)),
		sales:        make(map[string]*crowdsale.Engine, len(s.env.Crowdsales)),
		pollInterval: s.pollInterval,
		clock:        s.clock,
		logger:       s.logger,
	}

	if err := lp.openLedger(ctx, s.migrate); err != nil {
		return nil, err
	}

	if err := lp.build(ctx, s); err != nil {
		_ = lp.Close()
		return nil, err
	}

	return lp, nil
}

func (lp *Launchpad) openLedger(ctx context.Context, migrate bool) error {
	if lp.ledger != nil {
		return nil
	}

	dbCfg := lp.env.Database
	if dbCfg.Dialect == "" {
		if lp.db != nil {
			return fmt.Errorf("database given without a dialect: %w", tge.ErrInvalidConfig)
		}
		lp.ledger = memory.New()
		return nil
	}

	dialect, err := sqlstore.ParseDialect(dbCfg.Dialect)
	if err != nil {
		return fmt.Errorf("%v: %w", err, tge.ErrInvalidConfig)
	}

	if lp.db == nil {
		db, err := sql.Open(dialect.DriverName(), dbCfg.DSN)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		lp.db = db
		lp.ownsDB = true
	}

	tables := sqlstore.DefaultTableConfig()
	if dbCfg.TablePrefix != "" {
		tables = sqlstore.PrefixedTableConfig(dbCfg.TablePrefix)
	}

	if migrate {
		if err := sqlstore.Migrate(ctx, lp.db, dialect, tables); err != nil {
			_ = lp.Close()
			return err
		}
	}

	lp.ledger = sqlstore.NewWithConfig(lp.db, dialect, tables)
	return nil
}

func (lp *Launchpad) build(ctx context.Context, s *settings) error {
	env := lp.env

	// A vesting engine has a single admin, so at most one sale may deliver into it.
	bound := make(map[string]config.Crowdsale, len(env.Crowdsales))
	for _, c := range env.Crowdsales {
		if c.Vesting == "" {
			continue
		}
		if other, ok := bound[c.Vesting]; ok {
			return fmt.Errorf("vesting %q is the target of both %q and %q: %w",
				c.Vesting, other.ID, c.ID, tge.ErrInvalidConfig)
		}
		bound[c.Vesting] = c
	}

	for _, v := range env.Vesting {
		schedule, err := v.Schedule()
		if err != nil {
			return fmt.Errorf("vesting %q: %w", v.ID, err)
		}

		vcfg := vesting.Config{
			ID:       v.ID,
			Schedule: schedule,
			Store:    lp.ledger,
			Deployer: env.Deployer,
			Logger:   lp.logger,
		}
		if sale, ok := bound[v.ID]; ok {
			vcfg.Payout = s.tokens
			vcfg.Token = sale.SaleToken
			vcfg.Treasury = sale.Address
		}
		if s.metricsEnabled {
			vcfg.Metrics = metrics.NewCollector(v.ID)
		}

		engine, err := vesting.New(vcfg)
		if err != nil {
			return fmt.Errorf("vesting %q: %w", v.ID, err)
		}
		lp.vesting[v.ID] = engine
	}

	for _, c := range env.Crowdsales {
		cfg, err := c.Config(env.Deployer)
		if err != nil {
			return fmt.Errorf("crowdsale %q: %w", c.ID, err)
		}

		saleOpts := []crowdsale.Option{
			crowdsale.WithWhitelist(s.whitelist),
			crowdsale.WithTokens(s.tokens),
			crowdsale.WithStore(lp.ledger),
			crowdsale.WithLogger(lp.logger),
		}
		if c.Vesting != "" {
			target, ok := lp.vesting[c.Vesting]
			if !ok {
				return fmt.Errorf("crowdsale %q references unknown vesting %q: %w", c.ID, c.Vesting, tge.ErrInvalidConfig)
			}
			saleOpts = append(saleOpts, crowdsale.WithVesting(target))
		}
		if s.metricsEnabled {
			saleOpts = append(saleOpts, crowdsale.WithMetrics(metrics.NewCollector(c.ID)))
		}

		sale, err := crowdsale.New(cfg, saleOpts...)
		if err != nil {
			return fmt.Errorf("crowdsale %q: %w", c.ID, err)
		}
		lp.sales[c.ID] = sale
	}

	return lp.Setup(ctx)
}

// Setup makes each sale the admin of its vesting engine and, when the environment
// names an admin, hands each sale to that admin. Steps already done are skipped.
func (lp *Launchpad) Setup(ctx context.Context) error {
	env := lp.env
	for _, c := range env.Crowdsales {
		if c.Vesting != "" {
			if err := lp.bindVesting(ctx, lp.vesting[c.Vesting], c.Address); err != nil {
				return fmt.Errorf("crowdsale %q: %w", c.ID, err)
			}
		}
		if env.Admin != (common.Address{}) {
			if err := lp.setSaleAdmin(ctx, lp.sales[c.ID], env.Admin); err != nil {
				return fmt.Errorf("crowdsale %q: %w", c.ID, err)
			}
		}
	}

	return nil
}

// bindVesting makes saleAddr the admin of engine unless it already is.
func (lp *Launchpad) bindVesting(ctx context.Context, engine *vesting.Engine, saleAddr common.Address) error {
	if admin, ok := engine.Admin(); ok {
		if admin == saleAddr {
			return nil
		}
		return fmt.Errorf("vesting %q is administered by %s: %w", engine.ID(), admin.Hex(), tge.ErrUnauthorized)
	}
	return engine.SetAdmin(ctx, lp.env.Deployer, saleAddr)
}

func (lp *Launchpad) setSaleAdmin(ctx context.Context, sale *crowdsale.Engine, admin common.Address) error {
	if current, ok := sale.Admin(); ok && current == admin {
		return nil
	}
	return sale.SetAdmin(ctx, lp.env.Deployer, admin)
}

// Environment returns the launched environment.
func (lp *Launchpad) Environment() *config.Environment {
	return lp.env
}

// Ledger returns the ledger shared by every engine.
func (lp *Launchpad) Ledger() Ledger {
	return lp.ledger
}

// Vesting returns the vesting engine with the given ID.
func (lp *Launchpad) Vesting(id string) (*vesting.Engine, bool) {
	e, ok := lp.vesting[id]
	return e, ok
}

// Sale returns the crowdsale engine with the given ID.
func (lp *Launchpad) Sale(id string) (*crowdsale.Engine, bool) {
	e, ok := lp.sales[id]
	return e, ok
}

// SaleIDs returns the crowdsale IDs in sorted order.
func (lp *Launchpad) SaleIDs() []string {
	ids := make([]string, 0, len(lp.sales))
	for id := range lp.sales {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Run watches every sale until all of them are closed or ctx is cancelled.
// Returns the first failed state check.
func (lp *Launchpad) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, id := range lp.SaleIDs() {
		m := lifecycle.New(lifecycle.Config{
			Sale:         lp.sales[id],
			PollInterval: lp.pollInterval,
			Clock:        lp.clock,
			Logger:       lp.logger,
		})
		g.Go(func() error {
			return m.Run(gctx)
		})
	}

	return g.Wait()
}

// Close closes the database New opened. A database passed with WithDatabase is left open.
func (lp *Launchpad) Close() error {
	if lp.ownsDB && lp.db != nil {
		err := lp.db.Close()
		lp.db = nil
		return err
	}
	return nil
}
