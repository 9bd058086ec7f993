// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package rapl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveWraparoundThresholds(t *testing.T) {
	f := ScalingFactorsFromRaw(0x000A0E03)
	w := DeriveWraparoundThresholds(f)

	assert.Equal(t, f.Energy*4294967295, w.StatusMax)
	assert.Equal(t, f.Time*4294967295, w.ThrottleMax)
	assert.Greater(t, w.StatusMax, 0.0)

	one := DeriveWraparoundThresholds(ScalingFactors{Energy: 1, Power: 1, Time: 1})
	assert.Equal(t, 4294967295.0, one.StatusMax)
	assert.Equal(t, 4294967295.0, one.ThrottleMax)
}

func TestWraparoundThresholds_EnergyGained(t *testing.T) {
	w := DeriveWraparoundThresholds(ScalingFactors{Energy: 1.0 / 16384, Power: 1, Time: 1})

	t.Run("monotonic", func(t *testing.T) {
		assert.Equal(t, 5.0, w.EnergyGained(10, 15))
		assert.Equal(t, 0.0, w.EnergyGained(10, 10))
	})

	t.Run("wrapped", func(t *testing.T) {
		last := 0.95 * w.StatusMax
		current := 0.05 * w.StatusMax
		gained := w.EnergyGained(last, current)
		assert.Equal(t, w.StatusMax-last+current, gained)
		assert.InDelta(t, 0.1*w.StatusMax, gained, 1e-6)
	})

	t.Run("wrapped gain is never negative", func(t *testing.T) {
		for _, pair := range [][2]float64{
			{w.StatusMax, 0},
			{1, 0},
			{w.StatusMax, w.StatusMax - 1e-9},
			{0.5 * w.StatusMax, 0.25 * w.StatusMax},
		} {
			assert.GreaterOrEqual(t, w.EnergyGained(pair[0], pair[1]), 0.0, "last=%v current=%v", pair[0], pair[1])
		}
	})
}
