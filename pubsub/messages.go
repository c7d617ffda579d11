// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pubsub

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CreateBatchMessage frames [msgs], each a JSON value, as a single JSON
// array.
func CreateBatchMessage(msgs [][]byte) []byte {
	raw := make([]json.RawMessage, len(msgs))
	for i, msg := range msgs {
		raw[i] = msg
	}
	// Marshalling a slice of valid raw values cannot fail.
	b, _ := json.Marshal(raw)
	return b
}

// ParseBatchMessage splits a frame sent by a peer into its messages. A
// frame is either a JSON array of messages or a single message.
func ParseBatchMessage(maxSize int, msg []byte) ([][]byte, error) {
	if len(msg) > maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(msg), maxSize)
	}
	trimmed := bytes.TrimSpace(msg)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return [][]byte{trimmed}, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, err
	}
	msgs := make([][]byte, len(raw))
	for i, r := range raw {
		msgs[i] = r
	}
	return msgs, nil
}
