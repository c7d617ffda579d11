// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/hypersim/api"
	"github.com/ava-labs/hypersim/api/jsonrpc"
	"github.com/ava-labs/hypersim/api/ws"
	"github.com/ava-labs/hypersim/config"
	"github.com/ava-labs/hypersim/node"
	"github.com/ava-labs/hypersim/server"
	"github.com/ava-labs/hypersim/txpool"
)

const metricsEndpoint = "/" + api.Name + "/metrics"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an emulation node",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("config", "", "Path to a YAML or JSON config file")
	runCmd.Flags().String("mode", "", "Block build mode (batch, instant or manual)")
	runCmd.Flags().String("address", "", "Address the API listens on")
	runCmd.Flags().String("log-level", "", "Log level")
	runCmd.Flags().String("storage-dir", "", "Persist blocks with pebble in this directory")
}

// loadConfig reads the config file, if any, and applies the flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var (
		cfg = config.NewDefaultConfig()
		err error
	)
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if s, _ := cmd.Flags().GetString("mode"); s != "" {
		cfg.TxPool.Mode, err = txpool.ParseMode(s)
		if err != nil {
			return config.Config{}, err
		}
	}
	if s, _ := cmd.Flags().GetString("address"); s != "" {
		cfg.API.Address = s
	}
	if s, _ := cmd.Flags().GetString("log-level"); s != "" {
		cfg.Log.Level = s
		cfg.Log.DisplayLevel = s
	}
	if s, _ := cmd.Flags().GetString("storage-dir"); s != "" {
		cfg.Storage.Backend = config.PebbleStorage
		cfg.Storage.Directory = s
	}
	return cfg, cfg.Verify()
}

// run serves the node until [ctx] is cancelled or the process is
// interrupted.
func run(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logFactory := newLogFactory(cfg.Log)
	defer logFactory.Close()
	log, err := logFactory.Make("hypersim")
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	if err := errors.Join(
		registry.Register(collectors.NewGoCollector()),
		registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})),
	); err != nil {
		return err
	}

	n, err := node.New(cfg, log, registry, nil)
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}

	listener, err := net.Listen("tcp", cfg.API.Address)
	if err != nil {
		return errors.Join(err, n.Shutdown(context.Background()))
	}
	srv := server.New(log, listener, cfg.API)

	factories := []api.HandlerFactory[api.Node]{jsonrpc.JSONRPCServerFactory{}}
	if cfg.WebSocket.Enabled {
		factories = append(factories, ws.NewWebSocketServerFactory(cfg.WebSocket.Server))
	}
	closers, err := addRoutes(srv, n, factories)
	if err != nil {
		return errors.Join(err, closeAll(closers), n.Shutdown(context.Background()))
	}
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	if err := srv.AddRoute(metricsEndpoint, metricsHandler); err != nil {
		return errors.Join(err, closeAll(closers), n.Shutdown(context.Background()))
	}

	n.Start()
	log.Info("serving api",
		zap.Stringer("address", srv.Addr()),
		zap.String("baseURL", cfg.API.BaseURL),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
		defer cancel()
		// hijacked websocket connections outlive the http server
		return errors.Join(
			srv.Shutdown(shutdownCtx),
			closeAll(closers),
			n.Shutdown(shutdownCtx),
		)
	})
	return g.Wait()
}

// addRoutes mounts every handler under the API name and returns the
// handlers that hold resources until closed.
func addRoutes(srv *server.Server, n api.Node, factories []api.HandlerFactory[api.Node]) ([]io.Closer, error) {
	var closers []io.Closer
	for _, factory := range factories {
		handler, err := factory.New(n)
		if err != nil {
			return closers, err
		}
		if c, ok := handler.Handler.(io.Closer); ok {
			closers = append(closers, c)
		}
		if err := srv.AddRoute("/"+api.Name+handler.Path, handler.Handler); err != nil {
			return closers, err
		}
	}
	return closers, nil
}

func closeAll(closers []io.Closer) error {
	errs := make([]error, 0, len(closers))
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
