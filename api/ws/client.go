// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ava-labs/hypersim/pubsub"
)

type WebSocketClient struct {
	conn *websocket.Conn

	wl sync.Mutex

	rl      sync.Mutex
	pending []*Message

	cl sync.Once
}

// NewWebSocketClient dials the websocket server at [uri].
func NewWebSocketClient(uri string) (*WebSocketClient, error) {
	conn, resp, err := websocket.DefaultDialer.Dial(uri, nil)
	if err != nil {
		return nil, err
	}
	// not using resp for now
	resp.Body.Close()
	return &WebSocketClient{conn: conn}, nil
}

func (c *WebSocketClient) RegisterBlocks() error {
	return c.send(Request{Mode: BlockMode})
}

func (c *WebSocketClient) RegisterApplyErrors() error {
	return c.send(Request{Mode: ApplyErrorMode})
}

// SubmitTx sends [tx] to the server. The server answers with a [TxMode]
// message.
func (c *WebSocketClient) SubmitTx(tx []byte) error {
	return c.send(Request{Mode: TxMode, Tx: tx})
}

func (c *WebSocketClient) send(req Request) error {
	msg, err := packRequest(req)
	if err != nil {
		return err
	}

	c.wl.Lock()
	defer c.wl.Unlock()

	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Listen returns the next message pushed by the server. If [ctx] has a
// deadline, reading stops at that deadline.
func (c *WebSocketClient) Listen(ctx context.Context) (*Message, error) {
	c.rl.Lock()
	defer c.rl.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	for len(c.pending) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		msgs, err := pubsub.ParseBatchMessage(len(frame), frame)
		if err != nil {
			return nil, err
		}
		for _, b := range msgs {
			msg, err := unpackMessage(b)
			if err != nil {
				return nil, err
			}
			c.pending = append(c.pending, msg)
		}
	}
	msg := c.pending[0]
	c.pending = c.pending[1:]
	return msg, nil
}

// ListenFor skips messages until one of [mode] arrives.
func (c *WebSocketClient) ListenFor(ctx context.Context, mode string) (*Message, error) {
	for {
		msg, err := c.Listen(ctx)
		if err != nil {
			return nil, err
		}
		if msg.Mode == mode {
			return msg, nil
		}
	}
}

func (c *WebSocketClient) Close() error {
	var err error
	c.cl.Do(func() {
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err = c.conn.Close()
	})
	return err
}
