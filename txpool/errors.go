// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import "errors"

var (
	ErrInvalidMode   = errors.New("invalid build mode")
	ErrClosed        = errors.New("txpool closed")
	ErrBuildFailed   = errors.New("block build failed")
	errNoPendingWork = errors.New("building without a queued request")
)
