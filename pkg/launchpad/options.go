package launchpad

import (
	"database/sql"
	"time"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/config"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/crowdsale"
)

// Option configures a Launchpad.
type Option func(*settings)

// settings holds the internal configuration for creating a Launchpad.
type settings struct {
	env            *config.Environment
	whitelist      crowdsale.Whitelist
	tokens         crowdsale.TokenProvider
	ledger         Ledger
	db             *sql.DB
	migrate        bool
	pollInterval   time.Duration
	clock          func() time.Time
	logger         tge.Logger
	metricsEnabled bool
}

// WithEnvironment sets the environment whose engines are built.
func WithEnvironment(env *config.Environment) Option {
	return func(s *settings) {
		s.env = env
	}
}

// WithWhitelist sets the buyer whitelist consulted by every sale.
func WithWhitelist(w crowdsale.Whitelist) Option {
	return func(s *settings) {
		s.whitelist = w
	}
}

// WithTokens sets the token provider used for hold checks, payments, deliveries, and claim payouts.
func WithTokens(p crowdsale.TokenProvider) Option {
	return func(s *settings) {
		s.tokens = p
	}
}

// WithLedger sets a custom ledger, bypassing the environment's database settings.
func WithLedger(l Ledger) Option {
	return func(s *settings) {
		s.ledger = l
	}
}

// WithDatabase sets an already open database for the SQL ledger.
// The environment's dialect and table prefix still apply.
func WithDatabase(db *sql.DB) Option {
	return func(s *settings) {
		s.db = db
	}
}

// WithMigrate creates the ledger tables before the engines are built.
func WithMigrate() Option {
	return func(s *settings) {
		s.migrate = true
	}
}

// WithPollInterval sets how often Run checks sale states.
func WithPollInterval(interval time.Duration) Option {
	return func(s *settings) {
		s.pollInterval = interval
	}
}

// WithClock sets the time source used by Run.
func WithClock(clock func() time.Time) Option {
	return func(s *settings) {
		s.clock = clock
	}
}

// WithLogger sets the logger passed to every engine.
func WithLogger(logger tge.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithMetricsEnabled enables or disables Prometheus metrics.
func WithMetricsEnabled(enabled bool) Option {
	return func(s *settings) {
		s.metricsEnabled = enabled
	}
}
