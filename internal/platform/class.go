// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"fmt"
	"strings"
)

// Class determines which RAPL power domains a processor implements
type Class int

const (
	Unknown Class = iota
	Unsupported
	// Desktop (client) parts implement package, core and graphics domains
	Desktop
	// Server parts implement package, core and memory domains
	Server
)

func (c Class) String() string {
	switch c {
	case Desktop:
		return "desktop"
	case Server:
		return "server"
	case Unsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Supported reports whether energy can be sampled on this class
func (c Class) Supported() bool {
	return c == Desktop || c == Server
}

// ParseClass parses a class name; "client" is accepted as an alias of desktop
func ParseClass(s string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desktop", "client":
		return Desktop, nil
	case "server":
		return Server, nil
	case "unsupported":
		return Unsupported, nil
	case "", "unknown", "auto":
		return Unknown, nil
	default:
		return Unknown, fmt.Errorf("invalid platform class %q", s)
	}
}

// MarshalYAML encodes the class by name
func (c Class) MarshalYAML() (any, error) {
	return c.String(), nil
}

// UnmarshalYAML decodes a class name
func (c *Class) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseClass(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
