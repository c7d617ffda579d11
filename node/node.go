// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/utils/timer/mockable"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ava-labs/hypersim/api"
	"github.com/ava-labs/hypersim/blockchain"
	"github.com/ava-labs/hypersim/config"
	"github.com/ava-labs/hypersim/inherent"
	"github.com/ava-labs/hypersim/txpool"

	hypertrace "github.com/ava-labs/hypersim/trace"
)

var _ api.Node = (*Node)(nil)

// Node is a single emulated block producer: a chain, the txpool feeding
// it, and everything the txpool needs to build blocks.
type Node struct {
	config config.Config
	log    logging.Logger
	tracer trace.Tracer

	chain     *blockchain.Chain
	assembler *blockchain.Assembler
	inherents *inherent.Provider
	txPool    *txpool.TxPool
}

// New opens the configured store and assembles a node on top of it.
// [clock] may be nil to use the wall clock.
func New(
	cfg config.Config,
	log logging.Logger,
	registerer prometheus.Registerer,
	clock *mockable.Clock,
) (*Node, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	tracer, err := hypertrace.New(cfg.Trace)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	store, err := openStore(cfg.Storage, registerer)
	if err != nil {
		return nil, errors.Join(err, tracer.Close())
	}
	genesis, err := blockchain.NewGenesis(cfg.GenesisTimestamp)
	if err != nil {
		return nil, errors.Join(err, store.Close(), tracer.Close())
	}
	chain, err := blockchain.New(log, store, genesis)
	if err != nil {
		return nil, errors.Join(err, store.Close(), tracer.Close())
	}

	n := &Node{
		config:    cfg,
		log:       log,
		tracer:    tracer,
		chain:     chain,
		assembler: blockchain.NewAssembler(log, chain, cfg.Assembler),
		inherents: inherent.New(log, cfg.Inherent, clock),
	}
	n.txPool, err = txpool.New(
		cfg.TxPool,
		log,
		tracer,
		registerer,
		chain,
		n.inherents,
		n.assembler.Assemble,
	)
	if err != nil {
		return nil, errors.Join(err, chain.Close(), tracer.Close())
	}
	return n, nil
}

func openStore(cfg config.StorageConfig, registerer prometheus.Registerer) (*blockchain.Store, error) {
	switch cfg.Backend {
	case config.PebbleStorage:
		return blockchain.NewPebbleStore(cfg.Directory, cfg.Pebble, registerer)
	case config.MemoryStorage:
		return blockchain.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidStorage, cfg.Backend)
	}
}

// Start marks the chain ready and starts producing blocks.
func (n *Node) Start() {
	n.chain.MarkReady()
	n.txPool.Start()

	head := n.chain.Head()
	n.log.Info("node started",
		zap.Stringer("mode", n.txPool.Mode()),
		zap.Stringer("head", head.Hash()),
		zap.Uint64("height", head.Number),
	)
}

// Shutdown stops the txpool before closing the chain so no build can
// write to a closed store.
func (n *Node) Shutdown(ctx context.Context) error {
	n.log.Info("shutting down node")
	return errors.Join(
		n.txPool.Shutdown(ctx),
		n.chain.Close(),
		n.tracer.Close(),
	)
}

func (n *Node) Config() config.Config {
	return n.config
}

func (n *Node) Tracer() trace.Tracer {
	return n.tracer
}

func (n *Node) Logger() logging.Logger {
	return n.log
}

func (n *Node) TxPool() api.TxPool {
	return n.txPool
}

func (n *Node) Chain() api.Chain {
	return n.chain
}
