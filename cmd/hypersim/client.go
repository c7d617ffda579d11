// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/spf13/cobra"

	"github.com/ava-labs/hypersim/api/jsonrpc"
	"github.com/ava-labs/hypersim/codec"
)

func init() {
	rootCmd.AddCommand(pingCmd, submitCmd, newBlockCmd, headCmd, pendingCmd)
	submitCmd.Flags().String("tx", "", "0x-prefixed transaction")
	newBlockCmd.Flags().Int("count", 1, "Number of blocks to build")
}

func newClient(cmd *cobra.Command) (*jsonrpc.JSONRPCClient, error) {
	endpoint, err := cmd.Flags().GetString("endpoint")
	if err != nil {
		return nil, fmt.Errorf("failed to get endpoint flag: %w", err)
	}
	return jsonrpc.NewJSONRPCClient(endpoint), nil
}

func printValue(cmd *cobra.Command, v fmt.Stringer) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if strings.ToLower(output) == "json" {
		jsonBytes, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		cmd.Println(string(jsonBytes))
		return nil
	}
	cmd.Println(v.String())
	return nil
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that a node is reachable",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		mode, err := client.Mode(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to reach node: %w", err)
		}
		return printValue(cmd, pingResponse{Mode: mode.String()})
	},
}

type pingResponse struct {
	Mode string `json:"mode"`
}

func (r pingResponse) String() string {
	return "node is up, build mode " + r.Mode
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a transaction",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := cmd.Flags().GetString("tx")
		if err != nil {
			return err
		}
		tx, err := codec.LoadHex(s, -1)
		if err != nil {
			return fmt.Errorf("failed to decode tx: %w", err)
		}
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		txID, err := client.SubmitTransaction(cmd.Context(), tx)
		if err != nil {
			return err
		}
		return printValue(cmd, submitResponse{TxID: txID})
	},
}

type submitResponse struct {
	TxID ids.ID `json:"txId"`
}

func (r submitResponse) String() string {
	return "submitted " + r.TxID.String()
}

var newBlockCmd = &cobra.Command{
	Use:   "new-block",
	Short: "Build blocks from the pending work of a node",
	RunE: func(cmd *cobra.Command, _ []string) error {
		count, err := cmd.Flags().GetInt("count")
		if err != nil {
			return err
		}
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		blkID, height, err := client.NewBlock(cmd.Context(), &jsonrpc.NewBlockArgs{Count: count})
		if err != nil {
			return err
		}
		return printValue(cmd, newBlockResponse{BlockID: blkID, Height: height})
	},
}

type newBlockResponse struct {
	BlockID ids.ID `json:"blockId"`
	Height  uint64 `json:"height"`
}

func (r newBlockResponse) String() string {
	return fmt.Sprintf("head %s at height %d", r.BlockID, r.Height)
}

var headCmd = &cobra.Command{
	Use:   "head",
	Short: "Print the head block",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		head, err := client.Head(cmd.Context())
		if err != nil {
			return err
		}
		return printValue(cmd, headResponse{head})
	},
}

type headResponse struct {
	*jsonrpc.BlockReply
}

func (r headResponse) String() string {
	return fmt.Sprintf("%s height=%d timestamp=%d extrinsics=%d",
		r.BlockID,
		r.Height,
		r.Timestamp,
		len(r.Extrinsics),
	)
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Print the transactions waiting for a block",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		txs, err := client.PendingTransactions(cmd.Context())
		if err != nil {
			return err
		}
		return printValue(cmd, pendingResponse{Transactions: codec.FromBytesList(txs)})
	},
}

type pendingResponse struct {
	Transactions []codec.Bytes `json:"transactions"`
}

func (r pendingResponse) String() string {
	lines := make([]string, 0, len(r.Transactions)+1)
	lines = append(lines, fmt.Sprintf("%d pending", len(r.Transactions)))
	for _, tx := range r.Transactions {
		lines = append(lines, tx.String())
	}
	return strings.Join(lines, "\n")
}
