// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ws

import (
	"encoding/json"
	"errors"

	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/hypersim/blockchain"
	"github.com/ava-labs/hypersim/codec"
	"github.com/ava-labs/hypersim/rpc"
	"github.com/ava-labs/hypersim/txpool"
)

// Message kinds. Requests from a peer and messages pushed to it share the
// same envelope.
const (
	BlockMode      = "block"
	ApplyErrorMode = "applyError"
	TxMode         = "tx"
	ErrorMode      = "error"
)

var ErrUnknownMode = errors.New("unknown message mode")

// Request is sent by a peer. [BlockMode] and [ApplyErrorMode] subscribe
// the peer to the corresponding stream, [TxMode] submits [Tx].
type Request struct {
	Mode string      `json:"mode"`
	Tx   codec.Bytes `json:"tx,omitempty"`
}

type Block struct {
	BlockID             ids.ID        `json:"blockID"`
	ParentID            ids.ID        `json:"parentID"`
	Height              uint64        `json:"height"`
	Timestamp           int64         `json:"timestamp"`
	RelayParentNumber   uint64        `json:"relayParentNumber"`
	ProcessedDownward   uint32        `json:"processedDownward"`
	ProcessedHorizontal uint32        `json:"processedHorizontal"`
	Extrinsics          []codec.Bytes `json:"extrinsics"`
}

// Message is pushed to a peer. [Error] carries the same code a JSON-RPC
// caller would see for the failure.
type Message struct {
	Mode  string             `json:"mode"`
	Block *Block             `json:"block,omitempty"`
	TxID  ids.ID             `json:"txID"`
	Tx    codec.Bytes        `json:"tx,omitempty"`
	Error *rpc.ResponseError `json:"error,omitempty"`
}

func packRequest(req Request) ([]byte, error) {
	return json.Marshal(req)
}

func unpackRequest(b []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(b, &req); err != nil {
		return Request{}, err
	}
	switch req.Mode {
	case BlockMode, ApplyErrorMode, TxMode:
		return req, nil
	default:
		return Request{}, ErrUnknownMode
	}
}

func packBlockMessage(blk *blockchain.Block) ([]byte, error) {
	return json.Marshal(Message{
		Mode: BlockMode,
		Block: &Block{
			BlockID:             blk.Hash(),
			ParentID:            blk.ParentHash,
			Height:              blk.Number,
			Timestamp:           blk.Timestamp,
			RelayParentNumber:   blk.RelayParentNumber,
			ProcessedDownward:   blk.ProcessedDownward,
			ProcessedHorizontal: blk.ProcessedHorizontal,
			Extrinsics:          codec.FromBytesList(blk.Extrinsics),
		},
	})
}

func packApplyErrorMessage(e txpool.ApplyError) ([]byte, error) {
	return json.Marshal(Message{
		Mode:  ApplyErrorMode,
		TxID:  blockchain.HashExtrinsic(e.Tx),
		Tx:    e.Tx,
		Error: rpc.InvalidTransaction(e.Err),
	})
}

// packTxMessage acknowledges a submission, or reports why it was refused.
func packTxMessage(txID ids.ID, err error) ([]byte, error) {
	return json.Marshal(Message{
		Mode:  TxMode,
		TxID:  txID,
		Error: rpc.ToResponseError(rpc.CodeServerError, err),
	})
}

func packErrorMessage(err error) ([]byte, error) {
	return json.Marshal(Message{
		Mode:  ErrorMode,
		Error: rpc.InvalidParams("%s", err),
	})
}

func unpackMessage(b []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(b, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
