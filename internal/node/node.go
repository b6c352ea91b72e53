// Copyright 2026 Karn Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/karn-labs/karn"
	"github.com/karn-labs/karn/internal/config"
	"github.com/karn-labs/karn/internal/genesis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Open creates a node from the runtime configuration
func Open(
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
	opts ...karn.ConfigOptionFunc,
) (*karn.Node, error) {
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return nil, err
	}
	nodeOpts := []karn.ConfigOptionFunc{
		karn.WithLogger(logger),
		karn.WithDatabasePath(cfg.DatabasePath),
		karn.WithBadgerCacheSizes(cfg.BadgerBlockCacheSize, cfg.BadgerIndexCacheSize),
		karn.WithShutdownTimeout(shutdownTimeout),
		karn.WithTracing(cfg.Tracing),
		karn.WithTracingStdout(cfg.TracingStdout),
	}
	if promRegistry != nil {
		nodeOpts = append(nodeOpts, karn.WithPrometheusRegistry(promRegistry))
	}
	return karn.New(karn.NewConfig(append(nodeOpts, opts...)...))
}

// OpenWithGenesis opens the node and applies the genesis document at
// genesisPath unless the node was initialized before
func OpenWithGenesis(
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
	genesisPath string,
) (*karn.Node, error) {
	g, err := genesis.Load(genesisPath)
	if err != nil {
		return nil, err
	}
	params, err := g.Params()
	if err != nil {
		return nil, fmt.Errorf("genesis %s: %w", genesisPath, err)
	}
	minDeposit, err := g.MinDeposit()
	if err != nil {
		return nil, fmt.Errorf("genesis %s: %w", genesisPath, err)
	}
	n, err := Open(cfg, logger, promRegistry, karn.WithMinInitialDeposit(minDeposit))
	if err != nil {
		return nil, err
	}
	ok, err := n.Initialized()
	if err != nil {
		_ = n.Close()
		return nil, err
	}
	if ok {
		return n, nil
	}
	if err := n.Initialize(params); err != nil {
		_ = n.Close()
		return nil, fmt.Errorf("apply genesis: %w", err)
	}
	logger.Info(
		"genesis applied",
		"component", "node",
		"file", genesisPath,
		"founders", len(params.Founders),
		"badge_types", len(params.BadgeTypes),
	)
	return n, nil
}

// Run serves the metrics endpoint, the proposal sweeper and the activity
// log until a termination signal arrives
func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return err
	}
	var n *karn.Node
	if _, statErr := os.Stat(cfg.GenesisFile); statErr == nil {
		n, err = OpenWithGenesis(cfg, logger, prometheus.DefaultRegisterer, cfg.GenesisFile)
	} else {
		n, err = Open(cfg, logger, prometheus.DefaultRegisterer)
	}
	if err != nil {
		return err
	}
	if ok, err := n.Initialized(); err != nil || !ok {
		_ = n.Close()
		if err != nil {
			return err
		}
		return fmt.Errorf(
			"node at %s is not initialized and no genesis file was found at %s",
			cfg.DatabasePath,
			cfg.GenesisFile,
		)
	}
	sweeper, err := NewSweeper(n, cfg.SweepSchedule, logger, prometheus.DefaultRegisterer)
	if err != nil {
		_ = n.Close()
		return err
	}
	sweeper.Start()
	activity := NewActivityLog(n.EventBus(), logger)
	activity.Start()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
	logger.Info(
		"serving prometheus metrics on "+metricsAddr,
		"component", "node",
	)
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics listener: %w", err)
		}
	}()

	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	var runErr error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown", "component", "node")
	case runErr = <-errChan:
		logger.Error("node error", "component", "node", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "component", "node", "error", err)
	}
	sweeper.Stop()
	// Closing the node drains committed events into the activity log
	closeErr := n.Close()
	activity.Stop()
	if closeErr != nil {
		logger.Error("shutdown errors occurred", "component", "node", "error", closeErr)
		return errors.Join(runErr, closeErr)
	}
	logger.Info("shutdown complete", "component", "node")
	return runErr
}
