// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the dashboard
type KeyMap struct {
	Quit key.Binding
}

// DefaultKeyMap stops the monitor on q, Q, esc and ctrl+c. The terminal is in
// raw mode while the dashboard runs, so ctrl+c arrives as a key and not as SIGINT.
var DefaultKeyMap = KeyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "Q", "esc", "ctrl+c"),
		key.WithHelp("q/esc", "quit"),
	),
}
