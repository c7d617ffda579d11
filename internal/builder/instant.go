// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package builder

import (
	"context"

	"github.com/ava-labs/avalanchego/utils/logging"
	"go.uber.org/zap"
)

var _ Builder = (*Instant)(nil)

// Instant schedules one build for every unit of submitted work.
type Instant struct {
	build     BuildFunc
	logger    logging.Logger
	doneBuild chan struct{}
}

func NewInstant(build BuildFunc, logger logging.Logger) *Instant {
	return &Instant{
		build:     build,
		logger:    logger,
		doneBuild: make(chan struct{}),
	}
}

func (b *Instant) Start() {
	close(b.doneBuild)
}

func (b *Instant) Queue(ctx context.Context) {
	if err := b.build(ctx); err != nil {
		b.logger.Warn("unable to build", zap.Error(err))
	}
}

// Cancel is a no-op in [Instant]. Every Queue has already built.
func (*Instant) Cancel() {}

func (b *Instant) Done() {
	<-b.doneBuild
}
