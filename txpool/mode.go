// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"fmt"
	"strings"
)

// Mode selects when submitted work is turned into a block.
type Mode uint8

const (
	Batch   Mode = iota // one block per burst of submissions, default
	Instant             // one block per submission
	Manual              // only build when asked to
)

func (m Mode) String() string {
	switch m {
	case Batch:
		return "batch"
	case Instant:
		return "instant"
	case Manual:
		return "manual"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "batch":
		return Batch, nil
	case "instant":
		return Instant, nil
	case "manual":
		return Manual, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	if m > Manual {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

func (m Mode) MarshalYAML() (any, error) {
	text, err := m.MarshalText()
	return string(text), err
}

func (m *Mode) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return m.UnmarshalText([]byte(s))
}
