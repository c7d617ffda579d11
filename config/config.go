// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/ava-labs/hypersim/blockchain"
	"github.com/ava-labs/hypersim/inherent"
	"github.com/ava-labs/hypersim/pubsub"
	"github.com/ava-labs/hypersim/server"
	"github.com/ava-labs/hypersim/trace"
	"github.com/ava-labs/hypersim/txpool"
)

const (
	MemoryStorage = "memory"
	PebbleStorage = "pebble"
)

var ErrInvalidStorage = errors.New("invalid storage backend")

type LogConfig struct {
	Level        string `json:"level"        yaml:"level"`
	DisplayLevel string `json:"displayLevel" yaml:"displayLevel"`
	Format       string `json:"format"       yaml:"format"`
	// Log files are only written when [Directory] is set.
	Directory string `json:"directory" yaml:"directory"`
	MaxSize   int    `json:"maxSize"   yaml:"maxSize"` // megabytes
	MaxFiles  int    `json:"maxFiles"  yaml:"maxFiles"`
	MaxAge    int    `json:"maxAge"    yaml:"maxAge"` // days
	Compress  bool   `json:"compress"  yaml:"compress"`
}

type WebSocketConfig struct {
	Enabled bool                `json:"enabled" yaml:"enabled"`
	Server  pubsub.ServerConfig `json:"server"  yaml:"server"`
}

type StorageConfig struct {
	Backend   string                  `json:"backend"   yaml:"backend"`
	Directory string                  `json:"directory" yaml:"directory"`
	Pebble    blockchain.PebbleConfig `json:"pebble"    yaml:"pebble"`
}

type Config struct {
	Log       LogConfig                  `json:"log"       yaml:"log"`
	API       server.Config              `json:"api"       yaml:"api"`
	WebSocket WebSocketConfig            `json:"websocket" yaml:"websocket"`
	TxPool    txpool.Config              `json:"txpool"    yaml:"txpool"`
	Inherent  inherent.Config            `json:"inherent"  yaml:"inherent"`
	Assembler blockchain.AssemblerConfig `json:"assembler" yaml:"assembler"`
	Storage   StorageConfig              `json:"storage"   yaml:"storage"`
	Trace     trace.Config               `json:"trace"     yaml:"trace"`

	// Unix millis of the genesis block.
	GenesisTimestamp int64 `json:"genesisTimestamp" yaml:"genesisTimestamp"`
}

func NewDefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:        "info",
			DisplayLevel: "info",
			Format:       "auto",
			MaxSize:      8,
			MaxFiles:     7,
			MaxAge:       0,
			Compress:     false,
		},
		API: server.NewDefaultConfig(),
		WebSocket: WebSocketConfig{
			Enabled: true,
			Server:  pubsub.NewDefaultServerConfig(),
		},
		TxPool:    txpool.NewDefaultConfig(),
		Inherent:  inherent.NewDefaultConfig(),
		Assembler: blockchain.NewDefaultAssemblerConfig(),
		Storage: StorageConfig{
			Backend: MemoryStorage,
			Pebble:  blockchain.NewDefaultPebbleConfig(),
		},
		Trace: trace.NewDefaultConfig(),
	}
}

func (c *Config) Verify() error {
	switch c.Storage.Backend {
	case MemoryStorage:
	case PebbleStorage:
		if c.Storage.Directory == "" {
			return fmt.Errorf("%w: %s requires a directory", ErrInvalidStorage, PebbleStorage)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStorage, c.Storage.Backend)
	}
	if c.TxPool.Mode > txpool.Manual {
		return fmt.Errorf("%w: %d", txpool.ErrInvalidMode, c.TxPool.Mode)
	}
	return nil
}

// Load reads the config at [path] on top of the defaults. Files ending in
// .json are parsed as JSON, everything else as YAML.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(b)
	}
	return ParseYAML(b)
}

func ParseYAML(b []byte) (Config, error) {
	c := NewDefaultConfig()
	if err := yaml.UnmarshalStrict(b, &c); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal yaml config: %w", err)
	}
	return c, c.Verify()
}

// ParseJSON reads a JSON object whose keys are the sections of [Config].
// Every section is optional and falls back to its default.
func ParseJSON(b []byte) (Config, error) {
	sections := make(Sections)
	if len(b) > 0 {
		if err := json.Unmarshal(b, &sections); err != nil {
			return Config{}, fmt.Errorf("failed to unmarshal json config: %w", err)
		}
	}

	var (
		c   = NewDefaultConfig()
		err error
	)
	if c.Log, err = GetConfig(sections, "log", c.Log); err != nil {
		return Config{}, err
	}
	if c.API, err = GetConfig(sections, "api", c.API); err != nil {
		return Config{}, err
	}
	if c.WebSocket, err = GetConfig(sections, "websocket", c.WebSocket); err != nil {
		return Config{}, err
	}
	if c.TxPool, err = GetConfig(sections, "txpool", c.TxPool); err != nil {
		return Config{}, err
	}
	if c.Inherent, err = GetConfig(sections, "inherent", c.Inherent); err != nil {
		return Config{}, err
	}
	if c.Assembler, err = GetConfig(sections, "assembler", c.Assembler); err != nil {
		return Config{}, err
	}
	if c.Storage, err = GetConfig(sections, "storage", c.Storage); err != nil {
		return Config{}, err
	}
	if c.Trace, err = GetConfig(sections, "trace", c.Trace); err != nil {
		return Config{}, err
	}
	if c.GenesisTimestamp, err = GetConfig(sections, "genesisTimestamp", c.GenesisTimestamp); err != nil {
		return Config{}, err
	}
	return c, c.Verify()
}
