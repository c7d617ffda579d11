// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/stretchr/testify/require"
)

func TestServerRoutes(t *testing.T) {
	require := require.New(t)

	config := NewDefaultConfig()
	config.AllowedHosts = []string{"*"}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(err)
	s := New(logging.NoLog{}, listener, config)

	hello := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hello"))
	})
	require.NoError(s.AddRoute("/hypersim/hello", hello))
	require.ErrorIs(s.AddRoute("/hypersim/hello", hello), errRouteExists)

	done := make(chan error, 1)
	go func() {
		done <- s.Serve()
	}()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://"+s.Addr().String()+"/ext/hypersim/hello", nil)
	require.NoError(err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(err)
	require.NoError(resp.Body.Close())
	require.Equal(http.StatusOK, resp.StatusCode)
	require.Equal("hello", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(s.Shutdown(ctx))
	require.ErrorIs(<-done, http.ErrServerClosed)
}

func TestFilterInvalidHosts(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	tests := []struct {
		name     string
		allowed  []string
		host     string
		expected int
	}{
		{name: "wildcard", allowed: []string{"*"}, host: "example.com", expected: http.StatusOK},
		{name: "allowed name", allowed: []string{"localhost"}, host: "LOCALHOST:9650", expected: http.StatusOK},
		{name: "ip", allowed: []string{"localhost"}, host: "10.0.0.1:9650", expected: http.StatusOK},
		{name: "unknown name", allowed: []string{"localhost"}, host: "example.com", expected: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Host = tt.host
			rec := httptest.NewRecorder()
			filterInvalidHosts(ok, tt.allowed).ServeHTTP(rec, req)
			require.Equal(tt.expected, rec.Code)
		})
	}
}
