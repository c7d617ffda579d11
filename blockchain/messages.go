// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blockchain

import (
	"slices"

	"golang.org/x/exp/maps"
)

// DownwardMessage is sent from the relay chain to this chain.
type DownwardMessage struct {
	SentAt uint32 `json:"sentAt"`
	Msg    []byte `json:"msg"`
}

// HorizontalMessage is sent from a sibling chain to this chain.
type HorizontalMessage struct {
	SentAt uint32 `json:"sentAt"`
	Data   []byte `json:"data"`
}

// OriginMessages groups upward messages by the chain that produced them.
type OriginMessages struct {
	Origin   uint32   `json:"origin"`
	Messages [][]byte `json:"messages"`
}

// ValidationData is the relay-chain context a parachain block is built
// against.
type ValidationData struct {
	RelayParentNumber  uint64                         `json:"relayParentNumber"`
	DownwardMessages   []DownwardMessage              `json:"downwardMessages"`
	HorizontalMessages map[uint32][]HorizontalMessage `json:"horizontalMessages"`
}

// Inherents are the protocol-mandated inputs of a block that are not
// signed transactions.
type Inherents struct {
	Timestamp  int64           `json:"timestamp"` // unix millis
	Validation *ValidationData `json:"validation"`
}

// SortedOrigins returns the upward messages of [m] ordered by origin.
// Origins without messages are dropped.
func SortedOrigins(m map[uint32][][]byte) []OriginMessages {
	origins := maps.Keys(m)
	slices.Sort(origins)
	out := make([]OriginMessages, 0, len(origins))
	for _, origin := range origins {
		msgs := m[origin]
		if len(msgs) == 0 {
			continue
		}
		out = append(out, OriginMessages{
			Origin:   origin,
			Messages: slices.Clone(msgs),
		})
	}
	return out
}
