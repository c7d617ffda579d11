// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCompletionResolvesOnce(t *testing.T) {
	require := require.New(t)

	errFirst := errors.New("first")
	c := newCompletion()
	require.True(c.resolve(errFirst))
	require.False(c.resolve(nil))

	// resolved completions return without consulting ctx
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 3; i++ {
		require.ErrorIs(c.Wait(ctx), errFirst)
	}
}

func TestCompletionWaitAbandoned(t *testing.T) {
	require := require.New(t)

	c := newCompletion()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(c.Wait(ctx), context.DeadlineExceeded)

	// Abandoning the wait does not resolve the completion.
	require.True(c.resolve(nil))
	require.NoError(c.Wait(context.Background()))
}
