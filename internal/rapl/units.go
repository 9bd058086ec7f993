// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package rapl

import (
	"fmt"

	"github.com/sustainable-computing-io/powermon/internal/device"
)

// ScalingFactors convert raw RAPL counts into joules, watts and seconds.
// Each factor is 1/2^e for the exponent advertised in IA32_RAPL_POWER_UNIT.
type ScalingFactors struct {
	Energy float64 // joules per count
	Power  float64 // watts per count
	Time   float64 // seconds per count
}

// ScalingFactorsFromRaw decodes the unit register value
func ScalingFactorsFromRaw(raw uint64) ScalingFactors {
	return ScalingFactors{
		Energy: unitFactor(device.EnergyUnitField.Extract(raw)),
		Power:  unitFactor(device.PowerUnitField.Extract(raw)),
		Time:   unitFactor(device.TimeUnitField.Extract(raw)),
	}
}

// DeriveScalingFactors reads the unit register once; a read failure is fatal to the caller
func DeriveScalingFactors(r device.RegisterReader) (ScalingFactors, error) {
	raw, err := r.ReadRegister(device.MSRPowerUnit)
	if err != nil {
		return ScalingFactors{}, fmt.Errorf("failed to read RAPL units: %w", err)
	}
	return ScalingFactorsFromRaw(raw), nil
}

// unitFactor returns 1/2^e exactly; 2^0 is 1 so e == 0 yields 1
func unitFactor(e uint64) float64 {
	return 1 / float64(uint64(1)<<e)
}

func (s ScalingFactors) String() string {
	return fmt.Sprintf("energy=%gJ power=%gW time=%gs", s.Energy, s.Power, s.Time)
}
