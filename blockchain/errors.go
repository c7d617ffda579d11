// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blockchain

import "errors"

var (
	ErrEncoding          = errors.New("invalid block encoding")
	ErrBlockNotFound     = errors.New("block not found")
	ErrMissingParent     = errors.New("missing parent block")
	ErrMissingInherents  = errors.New("missing inherents")
	ErrInvalidHeight     = errors.New("invalid block height")
	ErrEmptyTransaction  = errors.New("empty transaction")
	ErrAlreadyIncluded   = errors.New("transaction already included")
	ErrExhaustsResources = errors.New("transaction exhausts block resources")
)
