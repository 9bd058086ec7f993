// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package rapl

import (
	"fmt"

	"github.com/sustainable-computing-io/powermon/internal/device"
	"github.com/sustainable-computing-io/powermon/internal/platform"
)

// EnergySample is one reading of every domain counter, in joules.
// Only one of Graphics and Memory is sampled, depending on the platform class;
// the other one is always zero.
type EnergySample struct {
	Package  device.Energy
	Core     device.Energy
	Graphics device.Energy
	Memory   device.Energy
}

// Sampler reads the energy status registers of the domains present on a platform class
type Sampler struct {
	reader  device.RegisterReader
	factors ScalingFactors
	class   platform.Class
}

// NewSampler returns a sampler for class; only desktop and server classes can be sampled
func NewSampler(r device.RegisterReader, f ScalingFactors, class platform.Class) (*Sampler, error) {
	if !class.Supported() {
		return nil, fmt.Errorf("cannot sample energy on %s platform", class)
	}
	return &Sampler{reader: r, factors: f, class: class}, nil
}

// Domains returns the status registers read on every sample
func (s *Sampler) Domains() []uint32 {
	ids := []uint32{device.MSRPkgEnergyStatus, device.MSRPP0EnergyStatus}
	if s.class == platform.Desktop {
		return append(ids, device.MSRPP1EnergyStatus)
	}
	return append(ids, device.MSRDRAMEnergyStatus)
}

// Sample reads all domain counters; no partial sample is returned on error
func (s *Sampler) Sample() (EnergySample, error) {
	var sample EnergySample
	var err error

	if sample.Package, err = s.readEnergy(device.MSRPkgEnergyStatus); err != nil {
		return EnergySample{}, err
	}
	if sample.Core, err = s.readEnergy(device.MSRPP0EnergyStatus); err != nil {
		return EnergySample{}, err
	}

	switch s.class {
	case platform.Desktop:
		sample.Graphics, err = s.readEnergy(device.MSRPP1EnergyStatus)
	case platform.Server:
		sample.Memory, err = s.readEnergy(device.MSRDRAMEnergyStatus)
	}
	if err != nil {
		return EnergySample{}, err
	}

	return sample, nil
}

func (s *Sampler) readEnergy(id uint32) (device.Energy, error) {
	raw, err := s.reader.ReadRegister(id)
	if err != nil {
		return 0, fmt.Errorf("failed to sample energy: %w", err)
	}
	return device.Energy(float64(device.EnergyCounterField.Extract(raw)) * s.factors.Energy), nil
}
