// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package device

/*
MSR Test Data Documentation

The msr(4) device exposes register N as the 8 bytes at file offset N. These tests
create a regular file and write little-endian values at the offsets of the RAPL
registers, which the reader then reads through pread(2):

- 0x606: IA32_RAPL_POWER_UNIT  = 0x000A0E03 (power 1/8 W, energy 1/2^14 J, time 1/2^10 s)
- 0x611: MSR_PKG_ENERGY_STATUS = 0x100000 in the low 32 bits, garbage in the reserved bits
- 0x639: MSR_PP0_ENERGY_STATUS = 0x80000
- 0x641: MSR_PP1_ENERGY_STATUS = 0x40000

0x619 (DRAM) lies before 0x641 but is left as zero bytes; 0x700 lies past the end
of the file and therefore cannot be read.
*/

import (
	"encoding/binary"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMSRReader_Available(t *testing.T) {
	tests := []struct {
		name           string
		setupDevDir    bool
		createMSRFile  bool
		expectedResult bool
	}{
		{
			name:           "MSR available with dev directory and msr file",
			setupDevDir:    true,
			createMSRFile:  true,
			expectedResult: true,
		},
		{
			name:           "MSR unavailable without dev directory",
			setupDevDir:    false,
			createMSRFile:  false,
			expectedResult: false,
		},
		{
			name:           "MSR unavailable without msr file",
			setupDevDir:    true,
			createMSRFile:  false,
			expectedResult: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			var devicePath string

			if tt.setupDevDir {
				cpuDir := filepath.Join(tempDir, "dev", "cpu", "0")
				require.NoError(t, os.MkdirAll(cpuDir, 0755))

				devicePath = filepath.Join(tempDir, "dev", "cpu", "%d", "msr")

				if tt.createMSRFile {
					file, err := os.Create(filepath.Join(cpuDir, "msr"))
					require.NoError(t, err)
					_ = file.Close()
				}
			} else {
				devicePath = filepath.Join(tempDir, "nonexistent", "cpu", "%d", "msr")
			}

			reader := NewMSRReader(devicePath, 0, slog.Default())
			assert.Equal(t, tt.expectedResult, reader.Available())
		})
	}
}

func TestMSRReader_Init(t *testing.T) {
	tests := []struct {
		name        string
		setupMSRs   func(tempDir string) string
		expectError bool
		errorMsg    string
	}{
		{
			name: "successful initialization",
			setupMSRs: func(tempDir string) string {
				createMockMSRFile(t, mockCPUDir(t, tempDir, "0"))
				return filepath.Join(tempDir, "dev", "cpu", "%d", "msr")
			},
		},
		{
			name: "initialization fails without msr device",
			setupMSRs: func(tempDir string) string {
				require.NoError(t, os.MkdirAll(filepath.Join(tempDir, "dev", "cpu"), 0755))
				return filepath.Join(tempDir, "dev", "cpu", "%d", "msr")
			},
			expectError: true,
			errorMsg:    "MSR interface not available",
		},
		{
			name: "initialization fails when unit register is missing",
			setupMSRs: func(tempDir string) string {
				file, err := os.Create(mockCPUDir(t, tempDir, "0"))
				require.NoError(t, err)
				_ = file.Close()
				return filepath.Join(tempDir, "dev", "cpu", "%d", "msr")
			},
			expectError: true,
			errorMsg:    "IA32_RAPL_POWER_UNIT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devicePath := tt.setupMSRs(t.TempDir())

			reader := NewMSRReader(devicePath, 0, slog.Default())
			err := reader.Init()

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, reader.Close())
		})
	}
}

func TestMSRReader_ReadRegister(t *testing.T) {
	tempDir := t.TempDir()
	createMockMSRFile(t, mockCPUDir(t, tempDir, "0"))

	reader := NewMSRReader(filepath.Join(tempDir, "dev", "cpu", "%d", "msr"), 0, slog.Default())
	require.NoError(t, reader.Init())
	t.Cleanup(func() {
		assert.NoError(t, reader.Close())
	})

	t.Run("reads unit register", func(t *testing.T) {
		v, err := reader.ReadRegister(MSRPowerUnit)
		require.NoError(t, err)
		assert.Equal(t, uint64(0x000A0E03), v)
	})

	t.Run("returns the full 64-bit value", func(t *testing.T) {
		v, err := reader.ReadRegister(MSRPkgEnergyStatus)
		require.NoError(t, err)
		assert.Equal(t, uint64(0xABCD0000_00100000), v)
		assert.Equal(t, uint64(0x100000), EnergyCounterField.Extract(v))
	})

	t.Run("reads every energy counter", func(t *testing.T) {
		for id, want := range map[uint32]uint64{
			MSRPP0EnergyStatus:  0x80000,
			MSRPP1EnergyStatus:  0x40000,
			MSRDRAMEnergyStatus: 0,
		} {
			v, err := reader.ReadRegister(id)
			require.NoError(t, err, RegisterName(id))
			assert.Equal(t, want, v, RegisterName(id))
		}
	})

	t.Run("register past end of device is unreadable", func(t *testing.T) {
		_, err := reader.ReadRegister(0x700)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRegisterUnreadable)

		var regErr *RegisterError
		require.ErrorAs(t, err, &regErr)
		assert.Equal(t, uint32(0x700), regErr.Register)
	})

	t.Run("presence probe", func(t *testing.T) {
		assert.True(t, reader.IsRegisterPresent(MSRPP1EnergyStatus))
		assert.False(t, reader.IsRegisterPresent(0x700))
	})
}

func TestMSRReader_Close(t *testing.T) {
	tempDir := t.TempDir()
	createMockMSRFile(t, mockCPUDir(t, tempDir, "0"))

	reader := NewMSRReader(filepath.Join(tempDir, "dev", "cpu", "%d", "msr"), 0, slog.Default())
	require.NoError(t, reader.Init())

	assert.NoError(t, reader.Shutdown())
	// closing twice is not an error
	assert.NoError(t, reader.Close())

	_, err := reader.ReadRegister(MSRPowerUnit)
	assert.ErrorIs(t, err, ErrRegisterUnreadable)
	assert.Contains(t, err.Error(), "not open")
	assert.False(t, reader.IsRegisterPresent(MSRPowerUnit))
}

func TestMSRReader_NameAndPath(t *testing.T) {
	reader := NewMSRReader("/dev/cpu/%d/msr", 3, nil)
	assert.Equal(t, "msr", reader.Name())
	assert.Equal(t, "/dev/cpu/3/msr", reader.Path())

	assert.Equal(t, "/tmp/msr-dump", NewMSRReader("/tmp/msr-dump", 3, nil).Path())
}

// Helper functions

// mockCPUDir creates <tempDir>/dev/cpu/<cpu> and returns the msr file path inside it
func mockCPUDir(t *testing.T, tempDir, cpu string) string {
	t.Helper()
	cpuDir := filepath.Join(tempDir, "dev", "cpu", cpu)
	require.NoError(t, os.MkdirAll(cpuDir, 0755))
	return filepath.Join(cpuDir, "msr")
}

// createMockMSRFile creates a mock MSR device file with the values documented above
func createMockMSRFile(t *testing.T, path string) {
	t.Helper()
	file, err := os.Create(path)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, file.Close())
	}()

	writeRegister := func(id uint32, value uint64) {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, value)
		_, err := file.WriteAt(buf, int64(id))
		require.NoError(t, err)
	}

	writeRegister(MSRPowerUnit, 0x000A0E03)
	writeRegister(MSRPkgEnergyStatus, 0xABCD0000_00100000)
	writeRegister(MSRPP0EnergyStatus, 0x80000)
	writeRegister(MSRPP1EnergyStatus, 0x40000)
}
