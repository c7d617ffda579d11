// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"encoding/hex"
	"strings"
)

const hexPrefix = "0x"

// ToHex returns the 0x-prefixed hex encoding of b.
func ToHex(b []byte) string {
	return hexPrefix + hex.EncodeToString(b)
}

// LoadHex decodes a 0x-prefixed hex string. If [expectedSize] is not -1,
// the decoded value must be exactly that many bytes.
func LoadHex(s string, expectedSize int) ([]byte, error) {
	if !strings.HasPrefix(s, hexPrefix) {
		return nil, ErrMissingHex
	}
	bytes, err := hex.DecodeString(s[len(hexPrefix):])
	if err != nil {
		return nil, err
	}
	if expectedSize != -1 && len(bytes) != expectedSize {
		return nil, ErrInvalidSize
	}
	return bytes, nil
}

// Bytes is a byte slice that is represented as 0x-prefixed hex in JSON
// and YAML.
type Bytes []byte

func (b Bytes) String() string {
	return ToHex(b)
}

func (b Bytes) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Bytes) UnmarshalText(text []byte) error {
	bytes, err := LoadHex(string(text), -1)
	if err != nil {
		return err
	}
	*b = bytes
	return nil
}

// ToBytesList converts a list of hex values to raw byte slices.
func ToBytesList(l []Bytes) [][]byte {
	if l == nil {
		return nil
	}
	out := make([][]byte, len(l))
	for i, b := range l {
		out[i] = b
	}
	return out
}

// FromBytesList is the inverse of [ToBytesList].
func FromBytesList(l [][]byte) []Bytes {
	out := make([]Bytes, len(l))
	for i, b := range l {
		out[i] = b
	}
	return out
}
