// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package rapl

import (
	"fmt"
	"math"
	"time"

	"github.com/sustainable-computing-io/powermon/internal/device"
)

// PowerInfo holds the package power range advertised in MSR_PKG_POWER_INFO
type PowerInfo struct {
	ThermalSpec   device.Power
	Minimum       device.Power
	Maximum       device.Power
	MaxTimeWindow time.Duration
}

// PowerInfoFromRaw decodes MSR_PKG_POWER_INFO using the power and time units
func PowerInfoFromRaw(raw uint64, f ScalingFactors) PowerInfo {
	seconds := float64(device.MaximumTimeField.Extract(raw)) * f.Time
	return PowerInfo{
		ThermalSpec:   device.Power(float64(device.ThermalSpecPowerField.Extract(raw)) * f.Power),
		Minimum:       device.Power(float64(device.MinimumPowerField.Extract(raw)) * f.Power),
		Maximum:       device.Power(float64(device.MaximumPowerField.Extract(raw)) * f.Power),
		MaxTimeWindow: time.Duration(seconds * float64(time.Second)),
	}
}

// ReadPowerInfo reads MSR_PKG_POWER_INFO once
func ReadPowerInfo(r device.RegisterReader, f ScalingFactors) (PowerInfo, error) {
	raw, err := r.ReadRegister(device.MSRPkgPowerInfo)
	if err != nil {
		return PowerInfo{}, fmt.Errorf("failed to read package power info: %w", err)
	}
	return PowerInfoFromRaw(raw, f), nil
}

// Ceiling is the larger of the minimum and thermal spec power in whole watts.
// It only scales the display.
func (p PowerInfo) Ceiling() uint64 {
	w := math.Max(p.Minimum.Watts(), p.ThermalSpec.Watts())
	if w <= 0 {
		return 0
	}
	return uint64(math.Floor(w))
}
