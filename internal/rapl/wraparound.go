// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package rapl

import "math"

// WraparoundThresholds are the largest real values the 32-bit status
// counters reach before they wrap to zero
type WraparoundThresholds struct {
	StatusMax   float64 // joules, energy status counters
	ThrottleMax float64 // seconds, throttle (perf status) counter
}

// DeriveWraparoundThresholds scales the maximum 32-bit count by the energy and time units
func DeriveWraparoundThresholds(f ScalingFactors) WraparoundThresholds {
	return WraparoundThresholds{
		StatusMax:   f.Energy * math.MaxUint32,
		ThrottleMax: f.Time * math.MaxUint32,
	}
}

// EnergyGained returns the energy consumed between two readings of one counter.
// A lower current reading means the counter wrapped exactly once.
func (w WraparoundThresholds) EnergyGained(last, current float64) float64 {
	if current < last {
		return (w.StatusMax - last) + current
	}
	return current - last
}
