// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blockchain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/utils/set"
	"go.uber.org/zap"

	"github.com/ava-labs/hypersim/lifecycle"
)

const defaultBlockCacheSize = 256

// Chain is the emulated chain a block producer builds on top of. It owns
// the head pointer, a readiness signal, and the block store.
type Chain struct {
	log   logging.Logger
	ready *lifecycle.ChanReady
	store *Store

	blocks *cache.LRU[ids.ID, *Block]

	lock     sync.RWMutex
	head     *Block
	included set.Set[ids.ID]
}

// New returns a chain backed by [store]. If the store already has a head
// it is resumed, otherwise [genesis] is written and becomes the head.
//
// The returned chain is not ready until [Chain.MarkReady] is called.
func New(log logging.Logger, store *Store, genesis *Block) (*Chain, error) {
	c := &Chain{
		log:      log,
		ready:    lifecycle.NewChanReady(),
		store:    store,
		blocks:   &cache.LRU[ids.ID, *Block]{Size: defaultBlockCacheSize},
		included: set.Set[ids.ID]{},
	}

	headID, err := store.GetHead()
	switch {
	case errors.Is(err, database.ErrNotFound):
		if err := store.PutBlock(genesis); err != nil {
			return nil, err
		}
		if err := store.SetHead(genesis.Hash()); err != nil {
			return nil, err
		}
		c.head = genesis
	case err != nil:
		return nil, err
	default:
		head, err := store.GetBlock(headID)
		if err != nil {
			return nil, fmt.Errorf("unable to load head: %w", err)
		}
		c.head = head
	}
	c.blocks.Put(c.head.Hash(), c.head)
	c.log.Info("initialized chain",
		zap.Stringer("head", c.head.Hash()),
		zap.Uint64("height", c.head.Number),
	)
	return c, nil
}

func (c *Chain) MarkReady() {
	c.ready.MarkReady()
}

func (c *Chain) Ready() bool {
	return c.ready.Ready()
}

func (c *Chain) AwaitReady(ctx context.Context) error {
	return c.ready.AwaitReady(ctx)
}

func (c *Chain) Head() *Block {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.head
}

// SetHead persists [blk] and makes it the new head. [blk] must extend a
// block already known to the chain.
func (c *Chain) SetHead(ctx context.Context, blk *Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.lock.Lock()
	defer c.lock.Unlock()

	if blk.Number > 0 {
		parent, err := c.getBlock(blk.ParentHash)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMissingParent, err)
		}
		if parent.Number+1 != blk.Number {
			return fmt.Errorf("%w: parent=%d block=%d", ErrInvalidHeight, parent.Number, blk.Number)
		}
	}
	if err := c.store.PutBlock(blk); err != nil {
		return err
	}
	if err := c.store.SetHead(blk.Hash()); err != nil {
		return err
	}
	c.blocks.Put(blk.Hash(), blk)
	for _, tx := range blk.Extrinsics {
		c.included.Add(HashExtrinsic(tx))
	}
	c.head = blk
	c.log.Debug("set head",
		zap.Stringer("hash", blk.Hash()),
		zap.Uint64("height", blk.Number),
		zap.Int("extrinsics", len(blk.Extrinsics)),
	)
	return nil
}

func (c *Chain) GetBlock(id ids.ID) (*Block, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.getBlock(id)
}

func (c *Chain) getBlock(id ids.ID) (*Block, error) {
	if blk, ok := c.blocks.Get(id); ok {
		return blk, nil
	}
	blk, err := c.store.GetBlock(id)
	if err != nil {
		return nil, err
	}
	c.blocks.Put(id, blk)
	return blk, nil
}

func (c *Chain) GetBlockByNumber(height uint64) (*Block, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	id, err := c.store.GetHash(height)
	if err != nil {
		return nil, err
	}
	return c.getBlock(id)
}

// IsIncluded reports whether a transaction with hash [txID] has been
// committed by this chain since it was opened.
func (c *Chain) IsIncluded(txID ids.ID) bool {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.included.Contains(txID)
}

func (c *Chain) Close() error {
	return c.store.Close()
}
