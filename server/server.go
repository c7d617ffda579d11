// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Config is the API section of the node config.
type Config struct {
	Address         string        `json:"address"         yaml:"address"`
	BaseURL         string        `json:"baseURL"         yaml:"baseURL"`
	AllowedOrigins  []string      `json:"allowedOrigins"  yaml:"allowedOrigins"`
	AllowedHosts    []string      `json:"allowedHosts"    yaml:"allowedHosts"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`

	ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
	// Zero leaves long-lived websocket connections alone.
	IdleTimeout time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
}

func NewDefaultConfig() Config {
	return Config{
		Address:           "127.0.0.1:9650",
		BaseURL:           "/ext",
		AllowedOrigins:    []string{"*"},
		AllowedHosts:      []string{"localhost"},
		ShutdownTimeout:   10 * time.Second,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Server serves the node's JSON-RPC, websocket and metrics handlers below
// a single base URL.
type Server struct {
	log      logging.Logger
	baseURL  string
	router   *router
	srv      *http.Server
	listener net.Listener
}

// New wraps every route in host filtering, CORS and gzip.
func New(log logging.Logger, listener net.Listener, config Config) *Server {
	router := newRouter()
	handler := gziphandler.GzipHandler(
		cors.New(cors.Options{
			AllowedOrigins:   config.AllowedOrigins,
			AllowCredentials: true,
		}).Handler(filterInvalidHosts(router, config.AllowedHosts)),
	)
	log.Info("API created",
		zap.Strings("allowedOrigins", config.AllowedOrigins),
		zap.Strings("allowedHosts", config.AllowedHosts),
	)
	return &Server{
		log:     log,
		baseURL: config.BaseURL,
		router:  router,
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: config.ReadHeaderTimeout,
			IdleTimeout:       config.IdleTimeout,
		},
		listener: listener,
	}
}

// AddRoute serves [handler] at [endpoint] below the base URL.
func (s *Server) AddRoute(endpoint string, handler http.Handler) error {
	s.log.Info("adding route",
		zap.String("baseURL", s.baseURL),
		zap.String("endpoint", endpoint),
	)
	return s.router.AddRouter(s.baseURL, endpoint, handler)
}

// Serve blocks until the server is shut down, returning
// [http.ErrServerClosed] in that case.
func (s *Server) Serve() error {
	return s.srv.Serve(s.listener)
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Shutdown stops accepting requests and waits for in-flight ones until
// [ctx] is done, after which remaining connections are closed.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	_ = s.srv.Close()
	return err
}
