// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/sustainable-computing-io/powermon/internal/device"
	"github.com/sustainable-computing-io/powermon/internal/monitor"
	"github.com/sustainable-computing-io/powermon/internal/platform"
)

// gaugeWidth is the number of cells of a full scale gauge
const gaugeWidth = 67

type styles struct {
	title    lipgloss.Style
	subtitle lipgloss.Style
	low      lipgloss.Style
	medium   lipgloss.Style
	high     lipgloss.Style
	help     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true),
		subtitle: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		low:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		medium:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		high:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		help:     lipgloss.NewStyle().Faint(true),
	}
}

// gaugeCells returns the filled cells for power against a ceiling in watts
func gaugeCells(power device.Power, ceiling uint64) int {
	if ceiling == 0 || power <= 0 {
		return 0
	}
	n := int(math.Floor(gaugeWidth / float64(ceiling) * power.Watts()))
	return min(n, gaugeWidth)
}

func (s styles) gauge(power device.Power, ceiling uint64) string {
	filled := gaugeCells(power, ceiling)

	style := s.low
	switch {
	case filled*5 >= gaugeWidth*4:
		style = s.high
	case filled*2 >= gaugeWidth:
		style = s.medium
	}

	bar := style.Render(strings.Repeat("|", filled)) + strings.Repeat(" ", gaugeWidth-filled)
	return fmt.Sprintf("%6.2fW [%s] %dW", power.Watts(), bar, ceiling)
}

func header(s styles, id platform.Identity, ceiling uint64) string {
	return s.title.Render(id.Model) + "\n" +
		s.subtitle.Render(fmt.Sprintf("(Arch: %s, Limit: %dW)", id.Family, ceiling))
}

// readingRows returns one row per domain: name, energy in the window, average
// power over the window and energy since start
func readingRows(snapshot monitor.Snapshot) [][]string {
	row := func(name string, delta, total device.Energy) []string {
		return []string{name, delta.String(), delta.Over(snapshot.Window).String(), total.String()}
	}

	rows := [][]string{
		row("Package", snapshot.Delta.Package, snapshot.Total.Package),
		row("Uncore", snapshot.Delta.Uncore(), snapshot.Total.Uncore()),
		row("x86 Cores", snapshot.Delta.Core, snapshot.Total.Core),
	}
	if snapshot.Platform.Class == platform.Server {
		return append(rows, row("DRAM", snapshot.Delta.Memory, snapshot.Total.Memory))
	}
	return append(rows, row("GPU", snapshot.Delta.Graphics, snapshot.Total.Graphics))
}

func writeReadings(out io.Writer, snapshot monitor.Snapshot) {
	table := tablewriter.NewWriter(out)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Formatting.Alignment = tw.AlignRight
	})
	table.Header([]string{"Domain", "Current", "Power", "Total"})
	_ = table.Bulk(readingRows(snapshot))
	_ = table.Render()
}
