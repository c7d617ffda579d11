// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ws

import (
	"context"
	"errors"
	"net/http"

	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/logging"
	"go.uber.org/zap"

	"github.com/ava-labs/hypersim/api"
	"github.com/ava-labs/hypersim/blockchain"
	"github.com/ava-labs/hypersim/pubsub"
	"github.com/ava-labs/hypersim/rpc"
	"github.com/ava-labs/hypersim/txpool"
)

const Endpoint = "/corews"

var _ api.HandlerFactory[api.Node] = (*WebSocketServerFactory)(nil)

type WebSocketServerFactory struct {
	config pubsub.ServerConfig
}

func NewWebSocketServerFactory(config pubsub.ServerConfig) *WebSocketServerFactory {
	return &WebSocketServerFactory{config: config}
}

func (w *WebSocketServerFactory) New(node api.Node) (api.Handler, error) {
	return api.Handler{
		Path:    Endpoint,
		Handler: NewWebSocketServer(node, w.config),
	}, nil
}

// WebSocketServer pushes new heads and apply failures to the peers that
// subscribed to them, and accepts transactions.
type WebSocketServer struct {
	node   api.Node
	logger logging.Logger
	tracer trace.Tracer

	s *pubsub.Server

	blockListeners *pubsub.Connections
	errorListeners *pubsub.Connections

	unsubscribeBlocks func() error
	unsubscribeErrors func() error
}

func NewWebSocketServer(node api.Node, config pubsub.ServerConfig) *WebSocketServer {
	w := &WebSocketServer{
		node:           node,
		logger:         node.Logger(),
		tracer:         node.Tracer(),
		blockListeners: pubsub.NewConnections(),
		errorListeners: pubsub.NewConnections(),
	}
	w.s = pubsub.New(w.logger, config, w.MessageCallback())
	w.unsubscribeBlocks = node.TxPool().NewHeads().SubscribeFunc(w.AcceptBlock)
	w.unsubscribeErrors = node.TxPool().ApplyErrors().SubscribeFunc(w.AcceptApplyError)
	return w
}

func (w *WebSocketServer) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	w.s.ServeHTTP(rw, r)
}

func (w *WebSocketServer) AcceptBlock(_ context.Context, blk *blockchain.Block) error {
	if w.blockListeners.Len() == 0 {
		return nil
	}
	bytes, err := packBlockMessage(blk)
	if err != nil {
		return err
	}
	for _, conn := range w.s.Publish(bytes, w.blockListeners) {
		w.blockListeners.Remove(conn)
	}
	return nil
}

func (w *WebSocketServer) AcceptApplyError(_ context.Context, e txpool.ApplyError) error {
	if w.errorListeners.Len() == 0 {
		return nil
	}
	bytes, err := packApplyErrorMessage(e)
	if err != nil {
		return err
	}
	for _, conn := range w.s.Publish(bytes, w.errorListeners) {
		w.errorListeners.Remove(conn)
	}
	return nil
}

func (w *WebSocketServer) MessageCallback() pubsub.Callback {
	return func(msgBytes []byte, c *pubsub.Connection) {
		ctx, span := w.tracer.Start(context.Background(), "WebSocketServer.Callback")
		defer span.End()

		req, err := unpackRequest(msgBytes)
		if err != nil {
			w.logger.Debug("failed to unmarshal msg",
				zap.Int("len", len(msgBytes)),
				zap.Error(err),
			)
			msg, packErr := packErrorMessage(err)
			w.reply(c, msg, packErr)
			return
		}

		switch req.Mode {
		case BlockMode:
			w.blockListeners.Add(c)
			w.logger.Debug("added block listener")
		case ApplyErrorMode:
			w.errorListeners.Add(c)
			w.logger.Debug("added apply error listener")
		case TxMode:
			txID := blockchain.HashExtrinsic(req.Tx)
			err := w.submit(ctx, req.Tx)
			if err != nil {
				w.logger.Debug("failed to submit tx",
					zap.Stringer("txID", txID),
					zap.Error(err),
				)
			} else {
				w.logger.Debug("submitted tx", zap.Stringer("txID", txID))
			}
			msg, packErr := packTxMessage(txID, err)
			w.reply(c, msg, packErr)
		}
	}
}

func (w *WebSocketServer) submit(ctx context.Context, tx []byte) error {
	if len(tx) == 0 {
		return rpc.InvalidParams("empty transaction")
	}
	return w.node.TxPool().SubmitTransaction(ctx, tx)
}

func (w *WebSocketServer) reply(c *pubsub.Connection, msg []byte, err error) {
	if err != nil {
		w.logger.Error("failed to pack reply", zap.Error(err))
		return
	}
	if !c.Send(msg) {
		w.logger.Verbo("dropping reply due to too many pending messages")
	}
}

// Close stops listening to the node and disconnects every peer.
func (w *WebSocketServer) Close() error {
	err := errors.Join(w.unsubscribeBlocks(), w.unsubscribeErrors())
	w.s.Close()
	return err
}
