// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"time"

	"github.com/ava-labs/hypersim/internal/builder"
)

type Config struct {
	Mode Mode `json:"mode" yaml:"mode"`

	// Only used in [Batch] mode.
	BatchQuietWindow time.Duration `json:"batchQuietWindow" yaml:"batchQuietWindow"`
	BatchMaxWait     time.Duration `json:"batchMaxWait"     yaml:"batchMaxWait"`
}

func NewDefaultConfig() Config {
	return Config{
		Mode:             Batch,
		BatchQuietWindow: builder.DefaultQuietWindow,
		BatchMaxWait:     builder.DefaultMaxWait,
	}
}
