// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"time"

	"github.com/sustainable-computing-io/powermon/internal/device"
	"github.com/sustainable-computing-io/powermon/internal/platform"
	"github.com/sustainable-computing-io/powermon/internal/rapl"
)

// AccumulatedEnergy tracks energy per domain; it has the shape of an
// EnergySample but every domain is tracked regardless of platform class
type AccumulatedEnergy struct {
	Package  device.Energy
	Core     device.Energy
	Graphics device.Energy
	Memory   device.Energy
}

// Uncore is the package energy not attributed to the cores or the graphics
// plane; readings taken a few microseconds apart can make it slightly negative
// so it is clamped at zero
func (a AccumulatedEnergy) Uncore() device.Energy {
	u := a.Package - (a.Core + a.Graphics)
	if u < 0 {
		return 0
	}
	return u
}

func (a *AccumulatedEnergy) add(gained rapl.EnergySample) {
	a.Package += gained.Package
	a.Core += gained.Core
	a.Graphics += gained.Graphics
	a.Memory += gained.Memory
}

// Snapshot is the periodic output of the monitor. It is passed by value and
// never shares state with the accumulator.
type Snapshot struct {
	Sequence  uint64        // 1 for the first flush
	Timestamp time.Time     // time of the sample that closed the window
	Window    time.Duration // time covered by Delta

	Delta AccumulatedEnergy // since the previous flush
	Total AccumulatedEnergy // since start

	// PowerCeiling in watts is the larger of the package minimum and thermal spec power
	PowerCeiling uint64
	Platform     platform.Identity
}

// PackagePower returns the average package power over the window
func (s Snapshot) PackagePower() device.Power {
	return s.Delta.Package.Over(s.Window)
}
