// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pubsub

import (
	"net/http"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type ServerConfig struct {
	// Size of the ws read buffer
	ReadBufferSize int `json:"readBufferSize" yaml:"readBufferSize"`
	// Size of the ws write buffer
	WriteBufferSize int `json:"writeBufferSize" yaml:"writeBufferSize"`
	// Time allowed to write a message to the peer.
	WriteWait time.Duration `json:"writeWait" yaml:"writeWait"`
	// Time allowed to read the next pong message from the peer.
	PongWait time.Duration `json:"pongWait" yaml:"pongWait"`
	// Send pings to peer with this period. Must be less than pongWait.
	PingPeriod time.Duration `json:"pingPeriod" yaml:"pingPeriod"`
	// Maximum message size in bytes allowed from peer.
	MaxReadMessageSize int `json:"maxReadMessageSize" yaml:"maxReadMessageSize"`
	// Maximum size of a batch of messages sent to a peer.
	MaxWriteMessageSize int `json:"maxWriteMessageSize" yaml:"maxWriteMessageSize"`
	// Maximum number of pending frames to send to a peer.
	MaxPendingMessages int `json:"maxPendingMessages" yaml:"maxPendingMessages"`
	// Maximum amount of time to wait before flushing a batch.
	TargetWriteLatency time.Duration `json:"targetWriteLatency" yaml:"targetWriteLatency"`
}

func NewDefaultServerConfig() ServerConfig {
	return ServerConfig{
		ReadBufferSize:      readBufferSize,
		WriteBufferSize:     writeBufferSize,
		WriteWait:           writeWait,
		PongWait:            pongWait,
		PingPeriod:          pingPeriod,
		MaxReadMessageSize:  maxReadMessageSize,
		MaxWriteMessageSize: maxWriteBatchSize,
		MaxPendingMessages:  maxPendingMessages,
		TargetWriteLatency:  targetWriteLatency,
	}
}

// Server maintains the set of active peers and sends messages to them.
//
// Connect to the server with websocket.DefaultDialer.Dial().
type Server struct {
	log      logging.Logger
	config   ServerConfig
	callback Callback
	upgrader *websocket.Upgrader

	conns *Connections
}

// New returns a new Server. [callback] is called for every message a
// peer sends, if not nil.
func New(log logging.Logger, config ServerConfig, callback Callback) *Server {
	return &Server{
		log:      log,
		config:   config,
		callback: callback,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		conns: NewConnections(),
	}
}

// ServeHTTP upgrades the request to a websocket connection and starts
// its read and write loops.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("failed to upgrade",
			zap.Error(err),
		)
		return
	}
	conn := &Connection{
		s:    s,
		conn: wsConn,
		mb: NewMessageBuffer(
			s.log,
			s.config.MaxPendingMessages,
			s.config.MaxWriteMessageSize,
			s.config.TargetWriteLatency,
		),
	}
	conn.active.Store(true)
	s.conns.Add(conn)

	go conn.writePump()
	go conn.readPump()
}

// Publish sends [msg] to the members of [toConns] that are still
// connected, and returns the ones that are not.
func (s *Server) Publish(msg []byte, toConns *Connections) []*Connection {
	var inactive []*Connection
	for _, conn := range toConns.Conns() {
		if !s.conns.Has(conn) {
			inactive = append(inactive, conn)
			continue
		}
		if !conn.Send(msg) {
			s.log.Verbo("dropping message to subscribed connection due to too many pending messages")
		}
	}
	return inactive
}

// Broadcast sends [msg] to every connected peer.
func (s *Server) Broadcast(msg []byte) {
	s.Publish(msg, s.conns)
}

func (s *Server) Connections() *Connections {
	return s.conns
}

func (s *Server) removeConnection(conn *Connection) {
	s.conns.Remove(conn)
}

// Close disconnects every peer.
func (s *Server) Close() {
	for _, conn := range s.conns.Conns() {
		s.removeConnection(conn)
		conn.deactivate()
	}
}
