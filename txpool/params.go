// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import "github.com/ava-labs/hypersim/blockchain"

// BuildParams is the full set of inputs of a single block build. It is a
// snapshot: once handed to the pool it must not be modified.
type BuildParams struct {
	Transactions       [][]byte                                  `json:"transactions"`
	UpwardMessages     map[uint32][][]byte                       `json:"upwardMessages"`
	DownwardMessages   []blockchain.DownwardMessage              `json:"downwardMessages"`
	HorizontalMessages map[uint32][]blockchain.HorizontalMessage `json:"horizontalMessages"`
}

// Overrides replaces parts of the pending work when building a block.
// A nil field is taken from the pool; a non-nil (possibly empty) field is
// used as is and leaves the corresponding pending work untouched.
type Overrides struct {
	Transactions       [][]byte                                  `json:"transactions,omitempty"`
	UpwardMessages     map[uint32][][]byte                       `json:"upwardMessages,omitempty"`
	DownwardMessages   []blockchain.DownwardMessage              `json:"downwardMessages,omitempty"`
	HorizontalMessages map[uint32][]blockchain.HorizontalMessage `json:"horizontalMessages,omitempty"`
}
