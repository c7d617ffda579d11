// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package inherent

import (
	"context"
	"errors"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/utils/timer/mockable"
	"go.uber.org/zap"

	"github.com/ava-labs/hypersim/blockchain"
	"github.com/ava-labs/hypersim/txpool"
)

const DefaultSlotDuration = 6 * time.Second

var (
	_ txpool.InherentProvider = (*Provider)(nil)

	ErrMissingParent = errors.New("missing parent")
)

type Config struct {
	SlotDuration time.Duration `json:"slotDuration" yaml:"slotDuration"`
}

func NewDefaultConfig() Config {
	return Config{SlotDuration: DefaultSlotDuration}
}

// Provider derives the timestamp and validation data of the next block.
type Provider struct {
	log    logging.Logger
	config Config
	clock  *mockable.Clock
}

func New(log logging.Logger, config Config, clock *mockable.Clock) *Provider {
	if clock == nil {
		clock = &mockable.Clock{}
	}
	return &Provider{
		log:    log,
		config: config,
		clock:  clock,
	}
}

// CreateInherents returns inherents for a child of [parent]. The timestamp
// advances by at least one slot and never falls behind the wall clock.
func (p *Provider) CreateInherents(
	_ context.Context,
	parent *blockchain.Block,
	params txpool.BuildParams,
) (*blockchain.Inherents, error) {
	if parent == nil {
		return nil, ErrMissingParent
	}
	timestamp := max(
		parent.Timestamp+p.config.SlotDuration.Milliseconds(),
		p.clock.Time().UnixMilli(),
	)
	validation := &blockchain.ValidationData{
		RelayParentNumber:  parent.RelayParentNumber + 1,
		DownwardMessages:   params.DownwardMessages,
		HorizontalMessages: params.HorizontalMessages,
	}
	p.log.Debug("created inherents",
		zap.Int64("timestamp", timestamp),
		zap.Uint64("relayParent", validation.RelayParentNumber),
		zap.Int("downward", len(validation.DownwardMessages)),
		zap.Int("horizontalOrigins", len(validation.HorizontalMessages)),
	)
	return &blockchain.Inherents{
		Timestamp:  timestamp,
		Validation: validation,
	}, nil
}
