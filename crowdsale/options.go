package crowdsale

import (
	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/metrics"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/store"
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	whitelist Whitelist
	tokens    TokenProvider
	vesting   VestingTarget
	store     store.AllocationStore
	logger    tge.Logger
	metrics   *metrics.Collector
}

// WithWhitelist sets the whitelist consulted on every purchase.
func WithWhitelist(w Whitelist) Option {
	return func(o *options) {
		o.whitelist = w
	}
}

// WithTokens sets the provider used for hold checks, payment collection, and
// direct delivery.
func WithTokens(p TokenProvider) Option {
	return func(o *options) {
		o.tokens = p
	}
}

// WithVesting routes allocations into grants on v instead of transferring sale
// tokens to the buyer.
func WithVesting(v VestingTarget) Option {
	return func(o *options) {
		o.vesting = v
	}
}

// WithStore sets the allocation ledger.
func WithStore(s store.AllocationStore) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithLogger sets the logger for observability.
func WithLogger(l tge.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets the collector purchases are recorded with.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}
