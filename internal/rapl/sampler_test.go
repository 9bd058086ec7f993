// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package rapl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sustainable-computing-io/powermon/internal/device"
	"github.com/sustainable-computing-io/powermon/internal/platform"
)

var testFactors = ScalingFactors{Energy: 1.0 / 16384, Power: 1.0 / 8, Time: 1.0 / 1024}

func allDomains() *device.ScriptedRegisterReader {
	return device.NewScriptedRegisterReader().
		Script(device.MSRPkgEnergyStatus, 16384*10).
		Script(device.MSRPP0EnergyStatus, 16384*6).
		Script(device.MSRPP1EnergyStatus, 16384*2).
		Script(device.MSRDRAMEnergyStatus, 16384*3)
}

func TestNewSampler_RejectsUnsupportedClasses(t *testing.T) {
	for _, class := range []platform.Class{platform.Unknown, platform.Unsupported} {
		_, err := NewSampler(allDomains(), testFactors, class)
		assert.Error(t, err, class.String())
	}
}

func TestSampler_Sample(t *testing.T) {
	tests := []struct {
		name    string
		class   platform.Class
		want    EnergySample
		domains []uint32
	}{
		{
			name:    "desktop samples graphics",
			class:   platform.Desktop,
			want:    EnergySample{Package: 10, Core: 6, Graphics: 2, Memory: 0},
			domains: []uint32{device.MSRPkgEnergyStatus, device.MSRPP0EnergyStatus, device.MSRPP1EnergyStatus},
		},
		{
			name:    "server samples memory",
			class:   platform.Server,
			want:    EnergySample{Package: 10, Core: 6, Graphics: 0, Memory: 3},
			domains: []uint32{device.MSRPkgEnergyStatus, device.MSRPP0EnergyStatus, device.MSRDRAMEnergyStatus},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := allDomains()
			s, err := NewSampler(r, testFactors, tt.class)
			require.NoError(t, err)
			assert.Equal(t, tt.domains, s.Domains())

			for range 3 {
				got, err := s.Sample()
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSampler_ExclusiveDomainNeverRead(t *testing.T) {
	r := allDomains()
	s, err := NewSampler(r, testFactors, platform.Server)
	require.NoError(t, err)

	for range 5 {
		got, err := s.Sample()
		require.NoError(t, err)
		assert.Equal(t, device.Energy(0), got.Graphics)
	}
	assert.Equal(t, 0, r.Reads(device.MSRPP1EnergyStatus))
	assert.Equal(t, 5, r.Reads(device.MSRDRAMEnergyStatus))
}

func TestSampler_IgnoresReservedBits(t *testing.T) {
	r := device.NewScriptedRegisterReader().
		Script(device.MSRPkgEnergyStatus, 0xFFFFFFFF_00004000).
		Script(device.MSRPP0EnergyStatus, 0).
		Script(device.MSRPP1EnergyStatus, 0)
	s, err := NewSampler(r, testFactors, platform.Desktop)
	require.NoError(t, err)

	got, err := s.Sample()
	require.NoError(t, err)
	assert.Equal(t, device.Energy(1), got.Package)
}

func TestSampler_FailsOnAnyDomain(t *testing.T) {
	for _, id := range []uint32{device.MSRPkgEnergyStatus, device.MSRPP0EnergyStatus, device.MSRPP1EnergyStatus} {
		t.Run(device.RegisterName(id), func(t *testing.T) {
			r := allDomains().FailWith(id, assert.AnError)
			s, err := NewSampler(r, testFactors, platform.Desktop)
			require.NoError(t, err)

			got, err := s.Sample()
			assert.ErrorIs(t, err, device.ErrRegisterUnreadable)
			assert.Equal(t, EnergySample{}, got, "no partial samples")
		})
	}
}
