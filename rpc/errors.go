// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/rpc/v2/json2"
)

const (
	CodeInvalidParams  = -32602
	CodeServerError    = -32000
	CodeInvalidTx      = 1010
	CodeBuildFailed    = 1011
	CodeRequestTimeout = 1012
)

var _ error = (*ResponseError)(nil)

// ResponseError is the error shape reported to request/response callers.
// It serializes as {"code": ..., "message": ...}.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewResponseError(code int, message string) *ResponseError {
	return &ResponseError{
		Code:    code,
		Message: message,
	}
}

func (r *ResponseError) Error() string {
	return fmt.Sprintf("%d: %s", r.Code, r.Message)
}

func (r *ResponseError) MarshalJSON() ([]byte, error) {
	type plain ResponseError
	return json.Marshal((*plain)(r))
}

// ToResponseError returns [err] as a *ResponseError, wrapping it with
// [code] when it is not one already. A nil error stays nil.
func ToResponseError(code int, err error) *ResponseError {
	if err == nil {
		return nil
	}
	var r *ResponseError
	if errors.As(err, &r) {
		return r
	}
	return NewResponseError(code, err.Error())
}

func InvalidParams(format string, args ...any) *ResponseError {
	return NewResponseError(CodeInvalidParams, fmt.Sprintf(format, args...))
}

func InvalidTransaction(err error) *ResponseError {
	return ToResponseError(CodeInvalidTx, err)
}

// JSONRPCError converts [r] to the error type the JSON-RPC codec writes
// to the wire with its code intact.
func (r *ResponseError) JSONRPCError() *json2.Error {
	return &json2.Error{
		Code:    json2.ErrorCode(r.Code),
		Message: r.Message,
	}
}
