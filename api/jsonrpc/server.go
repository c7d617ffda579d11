// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package jsonrpc

import (
	"context"
	"errors"
	"net/http"

	"github.com/ava-labs/avalanchego/ids"
	"go.uber.org/zap"

	"github.com/ava-labs/hypersim/api"
	"github.com/ava-labs/hypersim/blockchain"
	"github.com/ava-labs/hypersim/codec"
	"github.com/ava-labs/hypersim/rpc"
	"github.com/ava-labs/hypersim/txpool"
)

const (
	Endpoint = "/coreapi"

	maxNewBlockCount = 1_024
)

var _ api.HandlerFactory[api.Node] = (*JSONRPCServerFactory)(nil)

type JSONRPCServerFactory struct{}

func (JSONRPCServerFactory) New(node api.Node) (api.Handler, error) {
	handler, err := api.NewJSONRPCHandler(api.Name, NewJSONRPCServer(node))
	if err != nil {
		return api.Handler{}, err
	}
	return api.Handler{
		Path:    Endpoint,
		Handler: handler,
	}, nil
}

type JSONRPCServer struct {
	node api.Node
}

func NewJSONRPCServer(node api.Node) *JSONRPCServer {
	return &JSONRPCServer{node}
}

// toJSONRPCError gives every error a stable code before it is written to
// the wire.
func toJSONRPCError(err error) error {
	if err == nil {
		return nil
	}
	code := rpc.CodeServerError
	switch {
	case errors.Is(err, txpool.ErrBuildFailed):
		code = rpc.CodeBuildFailed
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		code = rpc.CodeRequestTimeout
	}
	return rpc.ToResponseError(code, err).JSONRPCError()
}

type PingReply struct {
	Success bool `json:"success"`
}

func (j *JSONRPCServer) Ping(_ *http.Request, _ *struct{}, reply *PingReply) error {
	j.node.Logger().Info("ping")
	reply.Success = true
	return nil
}

type ModeReply struct {
	Mode txpool.Mode `json:"mode"`
}

func (j *JSONRPCServer) Mode(_ *http.Request, _ *struct{}, reply *ModeReply) error {
	reply.Mode = j.node.TxPool().Mode()
	return nil
}

type SubmitTransactionArgs struct {
	Tx codec.Bytes `json:"tx"`
}

type SubmitTransactionReply struct {
	TxID ids.ID `json:"txId"`
}

func (j *JSONRPCServer) SubmitTransaction(
	req *http.Request,
	args *SubmitTransactionArgs,
	reply *SubmitTransactionReply,
) error {
	ctx, span := j.node.Tracer().Start(req.Context(), "JSONRPCServer.SubmitTransaction")
	defer span.End()

	if len(args.Tx) == 0 {
		return rpc.InvalidParams("empty transaction").JSONRPCError()
	}
	if err := j.node.TxPool().SubmitTransaction(ctx, args.Tx); err != nil {
		return toJSONRPCError(err)
	}
	reply.TxID = blockchain.HashExtrinsic(args.Tx)
	return nil
}

type SubmitUpwardArgs struct {
	Origin   uint32        `json:"origin"`
	Messages []codec.Bytes `json:"messages"`
}

func (j *JSONRPCServer) SubmitUpward(req *http.Request, args *SubmitUpwardArgs, _ *struct{}) error {
	ctx, span := j.node.Tracer().Start(req.Context(), "JSONRPCServer.SubmitUpward")
	defer span.End()

	return toJSONRPCError(j.node.TxPool().SubmitUpward(ctx, args.Origin, codec.ToBytesList(args.Messages)))
}

type DownwardMessage struct {
	SentAt uint32      `json:"sentAt"`
	Msg    codec.Bytes `json:"msg"`
}

type SubmitDownwardArgs struct {
	Messages []DownwardMessage `json:"messages"`
}

func (j *JSONRPCServer) SubmitDownward(req *http.Request, args *SubmitDownwardArgs, _ *struct{}) error {
	ctx, span := j.node.Tracer().Start(req.Context(), "JSONRPCServer.SubmitDownward")
	defer span.End()

	return toJSONRPCError(j.node.TxPool().SubmitDownward(ctx, toDownward(args.Messages)))
}

type HorizontalMessage struct {
	SentAt uint32      `json:"sentAt"`
	Data   codec.Bytes `json:"data"`
}

type SubmitHorizontalArgs struct {
	Origin   uint32              `json:"origin"`
	Messages []HorizontalMessage `json:"messages"`
}

func (j *JSONRPCServer) SubmitHorizontal(req *http.Request, args *SubmitHorizontalArgs, _ *struct{}) error {
	ctx, span := j.node.Tracer().Start(req.Context(), "JSONRPCServer.SubmitHorizontal")
	defer span.End()

	return toJSONRPCError(j.node.TxPool().SubmitHorizontal(ctx, args.Origin, toHorizontal(args.Messages)))
}

// NewBlockArgs builds [Count] blocks. Every field left out is taken from
// the pending work of the pool.
type NewBlockArgs struct {
	Count              int                            `json:"count"`
	Transactions       []codec.Bytes                  `json:"transactions,omitempty"`
	UpwardMessages     map[uint32][]codec.Bytes       `json:"upwardMessages,omitempty"`
	DownwardMessages   []DownwardMessage              `json:"downwardMessages,omitempty"`
	HorizontalMessages map[uint32][]HorizontalMessage `json:"horizontalMessages,omitempty"`
}

func (a *NewBlockArgs) overrides() *txpool.Overrides {
	o := &txpool.Overrides{
		Transactions: codec.ToBytesList(a.Transactions),
	}
	if a.UpwardMessages != nil {
		o.UpwardMessages = make(map[uint32][][]byte, len(a.UpwardMessages))
		for origin, msgs := range a.UpwardMessages {
			o.UpwardMessages[origin] = codec.ToBytesList(msgs)
		}
	}
	if a.DownwardMessages != nil {
		o.DownwardMessages = toDownward(a.DownwardMessages)
	}
	if a.HorizontalMessages != nil {
		o.HorizontalMessages = make(map[uint32][]blockchain.HorizontalMessage, len(a.HorizontalMessages))
		for origin, msgs := range a.HorizontalMessages {
			o.HorizontalMessages[origin] = toHorizontal(msgs)
		}
	}
	return o
}

type NewBlockReply struct {
	BlockID ids.ID `json:"blockId"`
	Height  uint64 `json:"height"`
}

func (j *JSONRPCServer) NewBlock(req *http.Request, args *NewBlockArgs, reply *NewBlockReply) error {
	ctx, span := j.node.Tracer().Start(req.Context(), "JSONRPCServer.NewBlock")
	defer span.End()

	count := args.Count
	if count == 0 {
		count = 1
	}
	if count < 0 || count > maxNewBlockCount {
		return rpc.InvalidParams("count must be between 1 and %d", maxNewBlockCount).JSONRPCError()
	}
	for i := 0; i < count; i++ {
		if err := j.node.TxPool().BuildBlock(ctx, args.overrides()); err != nil {
			j.node.Logger().Warn("unable to build requested block",
				zap.Int("built", i),
				zap.Int("requested", count),
				zap.Error(err),
			)
			return toJSONRPCError(err)
		}
	}
	head := j.node.Chain().Head()
	reply.BlockID = head.Hash()
	reply.Height = head.Number
	return nil
}

type PendingTransactionsReply struct {
	Transactions []codec.Bytes `json:"transactions"`
}

func (j *JSONRPCServer) PendingTransactions(_ *http.Request, _ *struct{}, reply *PendingTransactionsReply) error {
	reply.Transactions = codec.FromBytesList(j.node.TxPool().PendingTransactions())
	return nil
}

type PendingCountReply struct {
	Count int `json:"count"`
}

// PendingCount waits for every build requested so far before replying.
func (j *JSONRPCServer) PendingCount(req *http.Request, _ *struct{}, reply *PendingCountReply) error {
	count, err := j.node.TxPool().PendingCount(req.Context())
	if err != nil {
		return toJSONRPCError(err)
	}
	reply.Count = count
	return nil
}

type BlockArgs struct {
	BlockID ids.ID `json:"blockId"`
	Height  uint64 `json:"height"`
}

type BlockReply struct {
	BlockID           ids.ID                      `json:"blockId"`
	ParentID          ids.ID                      `json:"parentId"`
	Height            uint64                      `json:"height"`
	Timestamp         int64                       `json:"timestamp"`
	RelayParentNumber uint64                      `json:"relayParentNumber"`
	Extrinsics        []codec.Bytes               `json:"extrinsics"`
	UpwardMessages    []blockchain.OriginMessages `json:"upwardMessages"`
}

func newBlockReply(blk *blockchain.Block, reply *BlockReply) {
	reply.BlockID = blk.Hash()
	reply.ParentID = blk.ParentHash
	reply.Height = blk.Number
	reply.Timestamp = blk.Timestamp
	reply.RelayParentNumber = blk.RelayParentNumber
	reply.Extrinsics = codec.FromBytesList(blk.Extrinsics)
	reply.UpwardMessages = blk.UpwardMessages
}

func (j *JSONRPCServer) Head(_ *http.Request, _ *struct{}, reply *BlockReply) error {
	newBlockReply(j.node.Chain().Head(), reply)
	return nil
}

// Block looks a block up by [BlockArgs.BlockID], or by height when no ID
// is provided.
func (j *JSONRPCServer) Block(_ *http.Request, args *BlockArgs, reply *BlockReply) error {
	var (
		blk *blockchain.Block
		err error
	)
	if args.BlockID != ids.Empty {
		blk, err = j.node.Chain().GetBlock(args.BlockID)
	} else {
		blk, err = j.node.Chain().GetBlockByNumber(args.Height)
	}
	if errors.Is(err, blockchain.ErrBlockNotFound) {
		return rpc.InvalidParams("block not found").JSONRPCError()
	}
	if err != nil {
		return toJSONRPCError(err)
	}
	newBlockReply(blk, reply)
	return nil
}

func toDownward(msgs []DownwardMessage) []blockchain.DownwardMessage {
	out := make([]blockchain.DownwardMessage, len(msgs))
	for i, msg := range msgs {
		out[i] = blockchain.DownwardMessage{SentAt: msg.SentAt, Msg: msg.Msg}
	}
	return out
}

func toHorizontal(msgs []HorizontalMessage) []blockchain.HorizontalMessage {
	out := make([]blockchain.HorizontalMessage, len(msgs))
	for i, msg := range msgs {
		out[i] = blockchain.HorizontalMessage{SentAt: msg.SentAt, Data: msg.Data}
	}
	return out
}
