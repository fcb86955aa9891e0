package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/config"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/internal/chainsim"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/internal/logging"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/metrics"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/pkg/launchpad"
)

var metricsCommand = cli.Command{
	Name:  "metrics",
	Usage: "Serve Prometheus metrics and track every sale until it closes",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "addr", Usage: "Listen address (default: the environment's metrics address, or :9090)"},
		cli.DurationFlag{Name: "poll", Value: 5 * time.Second, Usage: "Sale state poll interval"},
	},
	Action: runMetrics,
}

func runMetrics(c *cli.Context) error {
	env, err := loadEnvironment(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(c)
	if err != nil {
		return err
	}

	addr := c.String("addr")
	if addr == "" {
		addr = env.Metrics.Addr
	}
	if addr == "" {
		addr = ":9090"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serveMetrics(ctx, env, addr, prometheus.DefaultGatherer, c.Duration("poll"), logger)
}

// serveMetrics exports gatherer on addr and tracks every sale of env until ctx is done.
func serveMetrics(ctx context.Context, env *config.Environment, addr string, gatherer prometheus.Gatherer, poll time.Duration, logger *logging.Logger) error {
	// The exporter only observes sale state and never settles purchases, so it
	// runs against an empty allow list and token ledger.
	lp, err := launchpad.New(ctx,
		launchpad.WithEnvironment(env),
		launchpad.WithWhitelist(chainsim.NewAllowList()),
		launchpad.WithTokens(chainsim.NewBank()),
		launchpad.WithPollInterval(poll),
		launchpad.WithLogger(logger.With("env", env.Name)),
	)
	if err != nil {
		return err
	}
	defer lp.Close()

	server := metrics.NewServerFor(addr, gatherer)
	server.Start()
	logger.Info(ctx, "metrics server started", "addr", addr, "sales", lp.SaleIDs())

	runErr := lp.Run(ctx)
	if err := server.Err(); err != nil {
		return err
	}

	if runErr == nil && ctx.Err() == nil {
		logger.Info(ctx, "all sales closed, serving final metrics until interrupted")
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "failed to shut down metrics server", "error", err)
	}

	return runErr
}
