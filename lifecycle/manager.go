package lifecycle

import (
	"context"
	"sync"
	"time"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
)

// Sale is the crowdsale a Manager watches. *crowdsale.Engine satisfies it.
type Sale interface {
	ID() string
	State(ctx context.Context, now time.Time) (tge.SaleState, error)
}

// Config holds configuration for the lifecycle Manager.
type Config struct {
	// Sale is the crowdsale to watch (required).
	Sale Sale

	// PollInterval is the interval between state checks (default: 5s).
	PollInterval time.Duration

	// Clock returns the current time (default: time.Now).
	Clock func() time.Time

	// OnTransition is called after every observed state change (optional).
	OnTransition func(ctx context.Context, from, to tge.SaleState)

	// Logger is for observability (optional).
	Logger tge.Logger
}

// Manager watches a sale move through pending, open, and closed.
type Manager struct {
	config Config

	mu    sync.Mutex
	state tge.SaleState
}

// New creates a new lifecycle Manager with the given configuration.
// Applies default values for PollInterval and Clock if not set.
func New(cfg Config) *Manager {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Manager{
		config: cfg,
	}
}

// State returns the last observed state, or "" before the first poll.
func (m *Manager) State() tge.SaleState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Poll observes the sale once and reports a transition if the state changed.
func (m *Manager) Poll(ctx context.Context) (tge.SaleState, error) {
	state, err := m.config.Sale.State(ctx, m.config.Clock())
	if err != nil {
		if m.config.Logger != nil {
			m.config.Logger.Error(ctx, "sale state check failed", "sale", m.config.Sale.ID(), "error", err)
		}
		return "", err
	}

	m.mu.Lock()
	previous := m.state
	m.state = state
	m.mu.Unlock()

	if previous == state {
		if m.config.Logger != nil {
			m.config.Logger.Debug(ctx, "sale state unchanged", "sale", m.config.Sale.ID(), "state", state)
		}
		return state, nil
	}

	if m.config.Logger != nil {
		m.config.Logger.Info(ctx, "sale state changed", "sale", m.config.Sale.ID(), "from", previous, "to", state)
	}
	if m.config.OnTransition != nil {
		m.config.OnTransition(ctx, previous, state)
	}

	return state, nil
}

// Run polls the sale until it closes or the context is cancelled.
// Returns nil once the sale is closed or the context ends, and the error of a failed poll.
func (m *Manager) Run(ctx context.Context) error {
	state, err := m.Poll(ctx)
	if err != nil {
		return err
	}
	if state == tge.SaleStateClosed {
		return nil
	}

	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			state, err := m.Poll(ctx)
			if err != nil {
				return err
			}
			if state == tge.SaleStateClosed {
				return nil
			}
		}
	}
}
