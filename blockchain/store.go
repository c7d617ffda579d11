// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blockchain

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
)

const (
	blockPrefix  byte = 0x0
	heightPrefix byte = 0x1
	headPrefix   byte = 0x2
)

// KeyValue is the subset of a key/value database the block store needs.
type KeyValue interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
	Put(key []byte, value []byte) error
	Close() error
}

var (
	_ KeyValue = (*memdb.Database)(nil)
	_ KeyValue = (*pebbleDB)(nil)
)

// Store persists blocks by hash and indexes them by height.
type Store struct {
	db KeyValue
}

func NewStore(db KeyValue) *Store {
	return &Store{db: db}
}

// NewMemoryStore returns a [Store] that lives only as long as the process.
func NewMemoryStore() *Store {
	return NewStore(memdb.New())
}

func blockKey(id ids.ID) []byte {
	k := make([]byte, 1+ids.IDLen)
	k[0] = blockPrefix
	copy(k[1:], id[:])
	return k
}

func heightKey(height uint64) []byte {
	k := make([]byte, 1+8)
	k[0] = heightPrefix
	binary.BigEndian.PutUint64(k[1:], height)
	return k
}

func headKey() []byte {
	return []byte{headPrefix}
}

func (s *Store) PutBlock(blk *Block) error {
	id := blk.Hash()
	if err := s.db.Put(blockKey(id), blk.Bytes()); err != nil {
		return err
	}
	return s.db.Put(heightKey(blk.Number), id[:])
}

func (s *Store) GetBlock(id ids.ID) (*Block, error) {
	b, err := s.db.Get(blockKey(id))
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return ParseBlock(b)
}

func (s *Store) GetHash(height uint64) (ids.ID, error) {
	b, err := s.db.Get(heightKey(height))
	if errors.Is(err, database.ErrNotFound) {
		return ids.Empty, fmt.Errorf("%w: height %d", ErrBlockNotFound, height)
	}
	if err != nil {
		return ids.Empty, err
	}
	return ids.ToID(b)
}

func (s *Store) SetHead(id ids.ID) error {
	return s.db.Put(headKey(), id[:])
}

// GetHead returns the last head written to the store, or
// [database.ErrNotFound] when the store is empty.
func (s *Store) GetHead() (ids.ID, error) {
	b, err := s.db.Get(headKey())
	if err != nil {
		return ids.Empty, err
	}
	return ids.ToID(b)
}

func (s *Store) Close() error {
	return s.db.Close()
}
