// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"github.com/sustainable-computing-io/powermon/internal/device"
	"github.com/sustainable-computing-io/powermon/internal/rapl"
)

// Accumulator turns successive energy samples into per-domain delta and total
// energy. It is not safe for concurrent use.
type Accumulator struct {
	thresholds rapl.WraparoundThresholds
	flushEvery int

	last  rapl.EnergySample
	delta AccumulatedEnergy
	total AccumulatedEnergy
	ticks int
}

// NewAccumulator starts accumulating from first; Add reports a due flush every flushEvery ticks
func NewAccumulator(th rapl.WraparoundThresholds, first rapl.EnergySample, flushEvery int) *Accumulator {
	if flushEvery < 1 {
		flushEvery = 1
	}
	return &Accumulator{
		thresholds: th,
		flushEvery: flushEvery,
		last:       first,
	}
}

// Add accounts the energy gained since the previous sample and returns true
// when a flush is due
func (a *Accumulator) Add(current rapl.EnergySample) bool {
	gained := rapl.EnergySample{
		Package:  a.gained(a.last.Package, current.Package),
		Core:     a.gained(a.last.Core, current.Core),
		Graphics: a.gained(a.last.Graphics, current.Graphics),
		Memory:   a.gained(a.last.Memory, current.Memory),
	}
	a.delta.add(gained)
	a.total.add(gained)

	a.last = current
	a.ticks++
	return a.ticks >= a.flushEvery
}

func (a *Accumulator) gained(last, current device.Energy) device.Energy {
	return device.Energy(a.thresholds.EnergyGained(float64(last), float64(current)))
}

// Flush returns copies of the delta and total energy, then resets delta and the tick count
func (a *Accumulator) Flush() (delta, total AccumulatedEnergy) {
	delta, total = a.delta, a.total
	a.delta = AccumulatedEnergy{}
	a.ticks = 0
	return delta, total
}

// Delta returns the energy accumulated since the last flush
func (a *Accumulator) Delta() AccumulatedEnergy {
	return a.delta
}

// Total returns the energy accumulated since start
func (a *Accumulator) Total() AccumulatedEnergy {
	return a.total
}

// Ticks returns the number of samples added since the last flush
func (a *Accumulator) Ticks() int {
	return a.ticks
}
