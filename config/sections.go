// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"fmt"
)

// Sections holds the raw JSON of named sub-configurations, so each
// component can decode its own section into its own type.
type Sections map[string]json.RawMessage

// GetConfig decodes the section [key] on top of [defaultConfig]. A missing
// section returns [defaultConfig] unchanged.
func GetConfig[T any](s Sections, key string, defaultConfig T) (T, error) {
	raw, ok := s[key]
	if !ok || len(raw) == 0 {
		return defaultConfig, nil
	}
	config := defaultConfig
	if err := json.Unmarshal(raw, &config); err != nil {
		return defaultConfig, fmt.Errorf("failed to unmarshal %q config %q: %w", key, string(raw), err)
	}
	return config, nil
}
