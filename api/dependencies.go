// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"context"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/logging"

	"github.com/ava-labs/hypersim/blockchain"
	"github.com/ava-labs/hypersim/event"
	"github.com/ava-labs/hypersim/txpool"
)

// Node is what the API surfaces need from a running emulation node.
type Node interface {
	Tracer() trace.Tracer
	Logger() logging.Logger

	TxPool() TxPool
	Chain() Chain
}

type TxPool interface {
	Mode() txpool.Mode
	SubmitTransaction(ctx context.Context, tx []byte) error
	SubmitUpward(ctx context.Context, origin uint32, msgs [][]byte) error
	SubmitDownward(ctx context.Context, msgs []blockchain.DownwardMessage) error
	SubmitHorizontal(ctx context.Context, origin uint32, msgs []blockchain.HorizontalMessage) error
	BuildBlock(ctx context.Context, overrides *txpool.Overrides) error
	PendingTransactions() [][]byte
	PendingCount(ctx context.Context) (int, error)
	ApplyErrors() *event.Dispatcher[txpool.ApplyError]
	NewHeads() *event.Dispatcher[*blockchain.Block]
}

type Chain interface {
	Head() *blockchain.Block
	GetBlock(id ids.ID) (*blockchain.Block, error)
	GetBlockByNumber(height uint64) (*blockchain.Block, error)
}
