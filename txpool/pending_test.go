// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/hypersim/blockchain"
)

func newTestPending() *pendingWork {
	p := newPendingWork()
	p.addTransaction([]byte{1})
	p.addTransaction([]byte{2})
	p.addUpward(1, [][]byte{{0xa}})
	p.addDownward([]blockchain.DownwardMessage{{SentAt: 1, Msg: []byte{0xb}}})
	p.addHorizontal(2, []blockchain.HorizontalMessage{{SentAt: 1, Data: []byte{0xc}}})
	return p
}

func TestPendingDrainAll(t *testing.T) {
	require := require.New(t)

	p := newTestPending()
	require.False(p.empty())
	params := p.drainAll()
	require.True(p.empty())
	require.Equal([][]byte{{1}, {2}}, params.Transactions)
	require.Equal(map[uint32][][]byte{1: {{0xa}}}, params.UpwardMessages)
	require.Len(params.DownwardMessages, 1)
	require.Len(params.HorizontalMessages[2], 1)

	empty := p.drainAll()
	require.Empty(empty.Transactions)
	require.Empty(empty.UpwardMessages)
	require.Empty(empty.DownwardMessages)
	require.Empty(empty.HorizontalMessages)

	// The snapshot is not affected by later submissions.
	p.addUpward(1, [][]byte{{0xd}})
	require.False(p.empty())
	require.Equal(map[uint32][][]byte{1: {{0xa}}}, params.UpwardMessages)
}

func TestPendingResolveOverrides(t *testing.T) {
	tests := []struct {
		name               string
		overrides          *Overrides
		expectedTxs        [][]byte
		expectedRemaining  [][]byte
		expectUpwardKept   bool
		expectDownwardKept bool
	}{
		{
			name:        "no overrides drains everything",
			expectedTxs: [][]byte{{1}, {2}},
		},
		{
			name:              "overridden transactions leave the pool",
			overrides:         &Overrides{Transactions: [][]byte{{9}}},
			expectedTxs:       [][]byte{{9}},
			expectedRemaining: [][]byte{{1}, {2}},
		},
		{
			name: "overridden messages leave the pool",
			overrides: &Overrides{
				UpwardMessages:   map[uint32][][]byte{},
				DownwardMessages: []blockchain.DownwardMessage{},
			},
			expectedTxs:        [][]byte{{1}, {2}},
			expectUpwardKept:   true,
			expectDownwardKept: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			p := newTestPending()
			params := p.resolve(tt.overrides)
			require.Equal(tt.expectedTxs, params.Transactions)
			require.Equal(tt.expectedRemaining, p.pendingTransactions())
			if tt.expectUpwardKept {
				require.Empty(params.UpwardMessages)
				require.Len(p.upward, 1)
			} else {
				require.Len(params.UpwardMessages, 1)
				require.Empty(p.upward)
			}
			if tt.expectDownwardKept {
				require.Empty(params.DownwardMessages)
				require.Len(p.downward, 1)
			} else {
				require.Len(params.DownwardMessages, 1)
				require.Empty(p.downward)
			}
			require.Len(params.HorizontalMessages, 1)
			require.Empty(p.horizontal)
		})
	}
}

func TestPendingRequeue(t *testing.T) {
	require := require.New(t)

	p := newPendingWork()
	p.addTransaction([]byte{3})
	p.requeue([][]byte{{1}, {2}})
	require.Equal([][]byte{{1}, {2}, {3}}, p.pendingTransactions())

	p.requeue(nil)
	require.Equal([][]byte{{1}, {2}, {3}}, p.drainTransactions())
}
