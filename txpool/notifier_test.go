// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNotifierDeliversInOrder(t *testing.T) {
	require := require.New(t)

	n := newNotifier()
	unblock := make(chan struct{})
	delivered := make(chan int, 10)
	require.True(n.push(func() {
		<-unblock
	}))
	for i := 0; i < 10; i++ {
		i := i
		require.True(n.push(func() {
			delivered <- i
		}))
	}
	require.Empty(delivered)

	close(unblock)
	require.NoError(n.close(context.Background()))
	require.Len(delivered, 10)
	for i := 0; i < 10; i++ {
		require.Equal(i, <-delivered)
	}

	require.False(n.push(func() {}))
	require.NoError(n.close(context.Background()))
}

func TestNotifierCloseTimeout(t *testing.T) {
	require := require.New(t)

	n := newNotifier()
	unblock := make(chan struct{})
	require.True(n.push(func() {
		<-unblock
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(n.close(ctx), context.DeadlineExceeded)

	close(unblock)
	require.NoError(n.close(context.Background()))
}
