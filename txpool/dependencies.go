// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"context"

	"github.com/ava-labs/hypersim/blockchain"
)

// Chain supplies the block to build on and accepts the blocks produced.
type Chain interface {
	AwaitReady(context.Context) error
	Head() *blockchain.Block
	SetHead(context.Context, *blockchain.Block) error
}

// InherentProvider derives the protocol-mandated inputs of a block.
type InherentProvider interface {
	CreateInherents(
		ctx context.Context,
		parent *blockchain.Block,
		params BuildParams,
	) (*blockchain.Inherents, error)
}

// AssembleFunc executes [txs] on top of [parent] and returns the new block
// along with the transactions that were valid but did not fit.
// [onApplyError] is called once for every transaction that failed to apply.
type AssembleFunc func(
	ctx context.Context,
	parent *blockchain.Block,
	inherents *blockchain.Inherents,
	txs [][]byte,
	upward map[uint32][][]byte,
	onApplyError func(tx []byte, err error),
) (*blockchain.Block, [][]byte, error)
