package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/config"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/internal/logging"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/metrics"
)

func scrape(addr string) (string, error) {
	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	return string(body), err
}

func TestServeMetrics_ExportsClosedSaleUntilCancelled(t *testing.T) {
	f, err := config.Load(fixture)
	require.NoError(t, err)
	env, err := f.Environment("testnet")
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.SaleState)

	logger := logging.NewTerminal(io.Discard, slog.LevelInfo, false)

	const addr = "localhost:9989"
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- serveMetrics(ctx, env, addr, registry, 10*time.Millisecond, logger)
	}()

	require.Eventually(t, func() bool {
		body, err := scrape(addr)
		return err == nil && strings.Contains(body, `tge_sale_state{engine="seed-round",state="closed"} 1`)
	}, 5*time.Second, 20*time.Millisecond)

	body, err := scrape(addr)
	require.NoError(t, err)
	assert.NotContains(t, body, "go_goroutines")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serveMetrics did not return after cancel")
	}

	_, err = scrape(addr)
	assert.Error(t, err)
}
