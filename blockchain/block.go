// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blockchain

import (
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/near/borsh-go"
	"golang.org/x/crypto/blake2b"
)

// Block is a block produced by the emulated runtime.
type Block struct {
	ParentHash ids.ID
	Number     uint64
	Timestamp  int64

	RelayParentNumber   uint64
	ProcessedDownward   uint32
	ProcessedHorizontal uint32

	Extrinsics     [][]byte
	UpwardMessages []OriginMessages

	hash  ids.ID
	bytes []byte
}

// encodedBlock is the borsh layout of a [Block].
type encodedBlock struct {
	ParentHash          [32]byte
	Number              uint64
	Timestamp           int64
	RelayParentNumber   uint64
	ProcessedDownward   uint32
	ProcessedHorizontal uint32
	Extrinsics          [][]byte
	UpwardMessages      []OriginMessages
}

// header is the hashed part of a block. The body is committed to through
// [ExtrinsicsRoot] and [MessagesRoot].
type header struct {
	ParentHash          [32]byte
	Number              uint64
	Timestamp           int64
	RelayParentNumber   uint64
	ProcessedDownward   uint32
	ProcessedHorizontal uint32
	ExtrinsicsRoot      [32]byte
	MessagesRoot        [32]byte
}

// NewBlock computes the hash and encoding of a block with the provided
// contents.
func NewBlock(
	parent ids.ID,
	number uint64,
	timestamp int64,
	validation *ValidationData,
	extrinsics [][]byte,
	upward []OriginMessages,
) (*Block, error) {
	b := &Block{
		ParentHash:     parent,
		Number:         number,
		Timestamp:      timestamp,
		Extrinsics:     extrinsics,
		UpwardMessages: upward,
	}
	if validation != nil {
		b.RelayParentNumber = validation.RelayParentNumber
		b.ProcessedDownward = uint32(len(validation.DownwardMessages))
		for _, msgs := range validation.HorizontalMessages {
			b.ProcessedHorizontal += uint32(len(msgs))
		}
	}
	if err := b.init(); err != nil {
		return nil, err
	}
	return b, nil
}

// NewGenesis returns the block every emulated chain starts from.
func NewGenesis(timestamp int64) (*Block, error) {
	return NewBlock(ids.Empty, 0, timestamp, nil, nil, nil)
}

func (b *Block) init() error {
	hdr, err := borsh.Serialize(b.header())
	if err != nil {
		return fmt.Errorf("%w: header: %w", ErrEncoding, err)
	}
	bytes, err := borsh.Serialize(encodedBlock{
		ParentHash:          b.ParentHash,
		Number:              b.Number,
		Timestamp:           b.Timestamp,
		RelayParentNumber:   b.RelayParentNumber,
		ProcessedDownward:   b.ProcessedDownward,
		ProcessedHorizontal: b.ProcessedHorizontal,
		Extrinsics:          b.Extrinsics,
		UpwardMessages:      b.UpwardMessages,
	})
	if err != nil {
		return fmt.Errorf("%w: block: %w", ErrEncoding, err)
	}
	b.hash = blake2b.Sum256(hdr)
	b.bytes = bytes
	return nil
}

func (b *Block) header() header {
	return header{
		ParentHash:          b.ParentHash,
		Number:              b.Number,
		Timestamp:           b.Timestamp,
		RelayParentNumber:   b.RelayParentNumber,
		ProcessedDownward:   b.ProcessedDownward,
		ProcessedHorizontal: b.ProcessedHorizontal,
		ExtrinsicsRoot:      listRoot(b.Extrinsics),
		MessagesRoot:        messagesRoot(b.UpwardMessages),
	}
}

func (b *Block) Hash() ids.ID {
	return b.hash
}

func (b *Block) Bytes() []byte {
	return b.bytes
}

func (b *Block) String() string {
	return fmt.Sprintf("#%d (%s)", b.Number, b.hash)
}

// ParseBlock decodes a block produced by [Block.Bytes].
func ParseBlock(bytes []byte) (*Block, error) {
	var e encodedBlock
	if err := borsh.Deserialize(&e, bytes); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	b := &Block{
		ParentHash:          e.ParentHash,
		Number:              e.Number,
		Timestamp:           e.Timestamp,
		RelayParentNumber:   e.RelayParentNumber,
		ProcessedDownward:   e.ProcessedDownward,
		ProcessedHorizontal: e.ProcessedHorizontal,
		Extrinsics:          e.Extrinsics,
		UpwardMessages:      e.UpwardMessages,
	}
	if err := b.init(); err != nil {
		return nil, err
	}
	return b, nil
}

// HashExtrinsic returns the identifier the runtime uses for [tx].
func HashExtrinsic(tx []byte) ids.ID {
	return blake2b.Sum256(tx)
}

func listRoot(items [][]byte) [32]byte {
	buf := make([]byte, 0, len(items)*ids.IDLen)
	for _, item := range items {
		h := blake2b.Sum256(item)
		buf = append(buf, h[:]...)
	}
	return blake2b.Sum256(buf)
}

func messagesRoot(origins []OriginMessages) [32]byte {
	buf := make([]byte, 0, len(origins)*ids.IDLen)
	for _, o := range origins {
		h := listRoot(o.Messages)
		buf = append(buf, byte(o.Origin>>24), byte(o.Origin>>16), byte(o.Origin>>8), byte(o.Origin))
		buf = append(buf, h[:]...)
	}
	return blake2b.Sum256(buf)
}
