// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package builder

import (
	"context"

	"github.com/ava-labs/avalanchego/utils/logging"
)

var _ Builder = (*Manual)(nil)

// Manual never schedules a build. Blocks are only produced when the block
// producer is asked for one explicitly.
type Manual struct {
	logger    logging.Logger
	doneBuild chan struct{}
}

func NewManual(logger logging.Logger) *Manual {
	return &Manual{
		logger:    logger,
		doneBuild: make(chan struct{}),
	}
}

func (b *Manual) Start() {
	close(b.doneBuild)
}

// Queue never builds in [Manual].
func (b *Manual) Queue(context.Context) {
	b.logger.Debug("holding work until an explicit build")
}

func (*Manual) Cancel() {}

func (b *Manual) Done() {
	<-b.doneBuild
}
