// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package jsonrpc

import (
	"context"
	"strings"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/rpc"

	"github.com/ava-labs/hypersim/api"
	"github.com/ava-labs/hypersim/codec"
	"github.com/ava-labs/hypersim/txpool"
)

type JSONRPCClient struct {
	requester rpc.EndpointRequester
}

func NewJSONRPCClient(uri string) *JSONRPCClient {
	uri = strings.TrimSuffix(uri, "/")
	uri += Endpoint
	return &JSONRPCClient{requester: rpc.NewEndpointRequester(uri)}
}

func (cli *JSONRPCClient) send(ctx context.Context, method string, args any, reply any) error {
	return cli.requester.SendRequest(ctx, api.Name+"."+method, args, reply)
}

func (cli *JSONRPCClient) Ping(ctx context.Context) (bool, error) {
	resp := new(PingReply)
	err := cli.send(ctx, "ping", struct{}{}, resp)
	return resp.Success, err
}

func (cli *JSONRPCClient) Mode(ctx context.Context) (txpool.Mode, error) {
	resp := new(ModeReply)
	err := cli.send(ctx, "mode", struct{}{}, resp)
	return resp.Mode, err
}

func (cli *JSONRPCClient) SubmitTransaction(ctx context.Context, tx []byte) (ids.ID, error) {
	resp := new(SubmitTransactionReply)
	err := cli.send(ctx, "submitTransaction", &SubmitTransactionArgs{Tx: tx}, resp)
	return resp.TxID, err
}

func (cli *JSONRPCClient) SubmitUpward(ctx context.Context, origin uint32, msgs [][]byte) error {
	return cli.send(ctx, "submitUpward", &SubmitUpwardArgs{
		Origin:   origin,
		Messages: codec.FromBytesList(msgs),
	}, new(struct{}))
}

func (cli *JSONRPCClient) SubmitDownward(ctx context.Context, msgs []DownwardMessage) error {
	return cli.send(ctx, "submitDownward", &SubmitDownwardArgs{Messages: msgs}, new(struct{}))
}

func (cli *JSONRPCClient) SubmitHorizontal(ctx context.Context, origin uint32, msgs []HorizontalMessage) error {
	return cli.send(ctx, "submitHorizontal", &SubmitHorizontalArgs{
		Origin:   origin,
		Messages: msgs,
	}, new(struct{}))
}

func (cli *JSONRPCClient) NewBlock(ctx context.Context, args *NewBlockArgs) (ids.ID, uint64, error) {
	if args == nil {
		args = &NewBlockArgs{}
	}
	resp := new(NewBlockReply)
	err := cli.send(ctx, "newBlock", args, resp)
	return resp.BlockID, resp.Height, err
}

func (cli *JSONRPCClient) PendingTransactions(ctx context.Context) ([][]byte, error) {
	resp := new(PendingTransactionsReply)
	err := cli.send(ctx, "pendingTransactions", struct{}{}, resp)
	return codec.ToBytesList(resp.Transactions), err
}

func (cli *JSONRPCClient) PendingCount(ctx context.Context) (int, error) {
	resp := new(PendingCountReply)
	err := cli.send(ctx, "pendingCount", struct{}{}, resp)
	return resp.Count, err
}

func (cli *JSONRPCClient) Head(ctx context.Context) (*BlockReply, error) {
	resp := new(BlockReply)
	err := cli.send(ctx, "head", struct{}{}, resp)
	return resp, err
}

func (cli *JSONRPCClient) BlockByHeight(ctx context.Context, height uint64) (*BlockReply, error) {
	resp := new(BlockReply)
	err := cli.send(ctx, "block", &BlockArgs{Height: height}, resp)
	return resp, err
}
