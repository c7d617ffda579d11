// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResponseErrorJSON(t *testing.T) {
	require := require.New(t)

	err := NewResponseError(CodeServerError, "boom")
	b, jsonErr := json.Marshal(err)
	require.NoError(jsonErr)
	require.JSONEq(`{"code":-32000,"message":"boom"}`, string(b))
	require.Equal("-32000: boom", err.Error())

	var decoded ResponseError
	require.NoError(json.Unmarshal(b, &decoded))
	require.Equal(*err, decoded)
}

func TestToResponseError(t *testing.T) {
	require := require.New(t)

	require.Nil(ToResponseError(CodeServerError, nil))

	plain := errors.New("plain")
	r := ToResponseError(CodeBuildFailed, plain)
	require.Equal(CodeBuildFailed, r.Code)
	require.Equal("plain", r.Message)

	wrapped := fmt.Errorf("outer: %w", InvalidParams("bad %d", 1))
	r = ToResponseError(CodeServerError, wrapped)
	require.Equal(CodeInvalidParams, r.Code)
	require.Equal("bad 1", r.Message)

	require.Equal(CodeInvalidTx, InvalidTransaction(plain).Code)
}
