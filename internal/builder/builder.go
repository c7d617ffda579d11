// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package builder

import "context"

// BuildFunc asks the block producer to schedule a build from the work it
// has accumulated. It must not wait for the block to be produced.
type BuildFunc func(context.Context) error

// Builder decides when submitted work is turned into a build request.
type Builder interface {
	Start()
	Queue(context.Context) // new work submitted
	Cancel()               // queued work was built explicitly
	Done()                 // wait after stop
}
