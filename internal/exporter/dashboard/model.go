// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sustainable-computing-io/powermon/internal/monitor"
)

// snapshotMsg carries a published snapshot into the program's event loop
type snapshotMsg monitor.Snapshot

// model is the bubbletea model of the dashboard. Quit keys only raise the
// shared flag; the program itself is stopped once the monitor has returned.
type model struct {
	keys   KeyMap
	styles styles
	quit   *atomic.Bool

	snapshot monitor.Snapshot
	received bool
}

func newModel(quit *atomic.Bool) model {
	return model{
		keys:   DefaultKeyMap,
		styles: defaultStyles(),
		quit:   quit,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snapshot = monitor.Snapshot(msg)
		m.received = true
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quit.Store(true)
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	if !m.received {
		b.WriteString("Waiting for the first reading...\n")
	} else {
		s := m.snapshot
		b.WriteString(header(m.styles, s.Platform, s.PowerCeiling))
		b.WriteString("\n\n")
		b.WriteString(m.styles.gauge(s.PackagePower(), s.PowerCeiling))
		b.WriteString("\n\n")
		writeReadings(&b, s)
	}

	b.WriteString("\n")
	if m.quit.Load() {
		b.WriteString(m.styles.help.Render("stopping..."))
	} else {
		help := m.keys.Quit.Help()
		b.WriteString(m.styles.help.Render(help.Key + ": " + help.Desc))
	}
	b.WriteString("\n")
	return b.String()
}
