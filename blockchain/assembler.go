// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blockchain

import (
	"context"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/utils/set"
	"github.com/ava-labs/avalanchego/utils/units"
	"go.uber.org/zap"
)

type AssemblerConfig struct {
	MaxBlockTxs  int `json:"maxBlockTxs"  yaml:"maxBlockTxs"`
	MaxBlockSize int `json:"maxBlockSize" yaml:"maxBlockSize"` // bytes of extrinsics
}

func NewDefaultAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{
		MaxBlockTxs:  1_024,
		MaxBlockSize: 2 * units.MiB,
	}
}

// IncludedChecker reports whether a transaction is already part of the
// chain.
type IncludedChecker interface {
	IsIncluded(txID ids.ID) bool
}

// Assembler executes transactions on top of a parent block and produces
// the next block.
type Assembler struct {
	log    logging.Logger
	chain  IncludedChecker
	config AssemblerConfig
}

func NewAssembler(log logging.Logger, chain IncludedChecker, config AssemblerConfig) *Assembler {
	return &Assembler{
		log:    log,
		chain:  chain,
		config: config,
	}
}

// Assemble applies [txs] in order on top of [parent].
//
// Transactions that fail to apply are reported to [onApplyError] and
// dropped. Once the block is full, the remaining transactions are
// returned, in order, as not included.
func (a *Assembler) Assemble(
	ctx context.Context,
	parent *Block,
	inherents *Inherents,
	txs [][]byte,
	upward map[uint32][][]byte,
	onApplyError func(tx []byte, err error),
) (*Block, [][]byte, error) {
	if parent == nil {
		return nil, nil, ErrMissingParent
	}
	if inherents == nil {
		return nil, nil, ErrMissingInherents
	}

	var (
		included    = make([][]byte, 0, min(len(txs), a.config.MaxBlockTxs))
		notIncluded [][]byte
		seen        = set.NewSet[ids.ID](len(txs))
		size        int
	)
	for i, tx := range txs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if len(tx) == 0 {
			onApplyError(tx, ErrEmptyTransaction)
			continue
		}
		if len(tx) > a.config.MaxBlockSize {
			onApplyError(tx, fmt.Errorf("%w: size=%d max=%d", ErrExhaustsResources, len(tx), a.config.MaxBlockSize))
			continue
		}
		txID := HashExtrinsic(tx)
		if seen.Contains(txID) || a.chain.IsIncluded(txID) {
			onApplyError(tx, fmt.Errorf("%w: %s", ErrAlreadyIncluded, txID))
			continue
		}
		if len(included) >= a.config.MaxBlockTxs || size+len(tx) > a.config.MaxBlockSize {
			notIncluded = append(notIncluded, txs[i:]...)
			break
		}
		seen.Add(txID)
		included = append(included, tx)
		size += len(tx)
	}

	blk, err := NewBlock(
		parent.Hash(),
		parent.Number+1,
		inherents.Timestamp,
		inherents.Validation,
		included,
		SortedOrigins(upward),
	)
	if err != nil {
		return nil, nil, err
	}
	a.log.Debug("assembled block",
		zap.Stringer("hash", blk.Hash()),
		zap.Uint64("height", blk.Number),
		zap.Int("included", len(included)),
		zap.Int("notIncluded", len(notIncluded)),
		zap.Int("size", size),
	)
	return blk, notIncluded, nil
}
