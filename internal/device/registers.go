// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package device

import "fmt"

// MSR addresses of the Intel RAPL interface
const (
	// MSRPowerUnit (IA32_RAPL_POWER_UNIT) holds the power, energy and time unit exponents
	MSRPowerUnit uint32 = 0x606

	MSRPkgPowerLimit uint32 = 0x610
	MSRPkgPerfStatus uint32 = 0x613 // throttled time
	MSRPkgPowerInfo  uint32 = 0x614

	// Energy counters (32-bit, wraparound at ~4 billion)
	MSRPkgEnergyStatus  uint32 = 0x611 // Package energy counter
	MSRPP0EnergyStatus  uint32 = 0x639 // Power Plane 0 (cores) energy counter
	MSRPP1EnergyStatus  uint32 = 0x641 // Power Plane 1 (graphics) energy counter
	MSRDRAMEnergyStatus uint32 = 0x619 // DRAM energy counter

	MSRDRAMPowerInfo uint32 = 0x61c
)

var registerNames = map[uint32]string{
	MSRPowerUnit:        "IA32_RAPL_POWER_UNIT",
	MSRPkgPowerLimit:    "MSR_PKG_POWER_LIMIT",
	MSRPkgEnergyStatus:  "MSR_PKG_ENERGY_STATUS",
	MSRPkgPerfStatus:    "MSR_PKG_PERF_STATUS",
	MSRPkgPowerInfo:     "MSR_PKG_POWER_INFO",
	MSRPP0EnergyStatus:  "MSR_PP0_ENERGY_STATUS",
	MSRPP1EnergyStatus:  "MSR_PP1_ENERGY_STATUS",
	MSRDRAMEnergyStatus: "MSR_DRAM_ENERGY_STATUS",
	MSRDRAMPowerInfo:    "MSR_DRAM_POWER_INFO",
}

// RegisterName returns the documented name of the register or its hex address
// when the register is not part of the RAPL map
func RegisterName(id uint32) string {
	if name, ok := registerNames[id]; ok {
		return name
	}
	return fmt.Sprintf("0x%x", id)
}

// Field describes a bit-field inside a 64-bit register value
type Field struct {
	Offset uint
	Width  uint
}

// Extract returns the field's bits of raw shifted down to bit 0
func (f Field) Extract(raw uint64) uint64 {
	if f.Width == 0 {
		return 0
	}
	if f.Width >= 64 {
		return raw >> f.Offset
	}
	return (raw >> f.Offset) & (1<<f.Width - 1)
}

// Bit layouts of the RAPL registers
var (
	// IA32_RAPL_POWER_UNIT
	PowerUnitField  = Field{Offset: 0, Width: 4}
	EnergyUnitField = Field{Offset: 8, Width: 5}
	TimeUnitField   = Field{Offset: 16, Width: 4}

	// *_ENERGY_STATUS; the upper 32 bits are reserved
	EnergyCounterField = Field{Offset: 0, Width: 32}

	// MSR_PKG_POWER_INFO
	ThermalSpecPowerField = Field{Offset: 0, Width: 15}
	MinimumPowerField     = Field{Offset: 16, Width: 15}
	MaximumPowerField     = Field{Offset: 32, Width: 15}
	MaximumTimeField      = Field{Offset: 48, Width: 6}
)
