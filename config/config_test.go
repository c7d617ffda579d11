// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/hypersim/txpool"
)

func TestParseYAML(t *testing.T) {
	require := require.New(t)

	c, err := ParseYAML([]byte(`
txpool:
  mode: instant
  batchQuietWindow: 50ms
inherent:
  slotDuration: 12s
storage:
  backend: pebble
  directory: /tmp/hypersim
`))
	require.NoError(err)
	require.Equal(txpool.Instant, c.TxPool.Mode)
	require.Equal(50*time.Millisecond, c.TxPool.BatchQuietWindow)
	require.Equal(txpool.NewDefaultConfig().BatchMaxWait, c.TxPool.BatchMaxWait)
	require.Equal(12*time.Second, c.Inherent.SlotDuration)
	require.Equal(PebbleStorage, c.Storage.Backend)

	// Untouched sections keep their defaults.
	defaults := NewDefaultConfig()
	require.Equal(defaults.API, c.API)
	require.Equal(defaults.Storage.Pebble, c.Storage.Pebble)
}

func TestParseYAMLUnknownField(t *testing.T) {
	_, err := ParseYAML([]byte("txpool:\n  unknown: 1\n"))
	require.Error(t, err)
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectedErr error
		check       func(*require.Assertions, Config)
	}{
		{
			name:  "empty",
			input: "",
			check: func(require *require.Assertions, c Config) {
				require.Equal(NewDefaultConfig(), c)
			},
		},
		{
			name:  "sections",
			input: `{"txpool":{"mode":"manual"},"genesisTimestamp":1000,"assembler":{"maxBlockTxs":2}}`,
			check: func(require *require.Assertions, c Config) {
				require.Equal(txpool.Manual, c.TxPool.Mode)
				require.Equal(int64(1000), c.GenesisTimestamp)
				require.Equal(2, c.Assembler.MaxBlockTxs)
				require.Equal(NewDefaultConfig().Assembler.MaxBlockSize, c.Assembler.MaxBlockSize)
			},
		},
		{
			name:        "invalid mode",
			input:       `{"txpool":{"mode":"eager"}}`,
			expectedErr: txpool.ErrInvalidMode,
		},
		{
			name:        "pebble without directory",
			input:       `{"storage":{"backend":"pebble"}}`,
			expectedErr: ErrInvalidStorage,
		},
		{
			name:        "unknown backend",
			input:       `{"storage":{"backend":"leveldb"}}`,
			expectedErr: ErrInvalidStorage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			c, err := ParseJSON([]byte(tt.input))
			require.ErrorIs(err, tt.expectedErr)
			if tt.check != nil {
				tt.check(require, c)
			}
		})
	}
}

func TestGetConfig(t *testing.T) {
	require := require.New(t)

	type section struct {
		A int `json:"a"`
		B int `json:"b"`
	}
	s := Sections{"present": []byte(`{"a":5}`)}

	c, err := GetConfig(s, "present", section{A: 1, B: 2})
	require.NoError(err)
	require.Equal(section{A: 5, B: 2}, c)

	c, err = GetConfig(s, "missing", section{A: 1, B: 2})
	require.NoError(err)
	require.Equal(section{A: 1, B: 2}, c)
}

func TestLoad(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(os.WriteFile(jsonPath, []byte(`{"txpool":{"mode":"instant"}}`), 0o600))
	c, err := Load(jsonPath)
	require.NoError(err)
	require.Equal(txpool.Instant, c.TxPool.Mode)

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(os.WriteFile(yamlPath, []byte("txpool:\n  mode: manual\n"), 0o600))
	c, err = Load(yamlPath)
	require.NoError(err)
	require.Equal(txpool.Manual, c.TxPool.Mode)
}
