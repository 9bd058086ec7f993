// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// RegisterReader gives read access to the model specific registers of one CPU
type RegisterReader interface {
	// Name returns the name of the reader implementation
	Name() string

	// ReadRegister returns the raw 64-bit value of register id; errors match ErrRegisterUnreadable
	ReadRegister(id uint32) (uint64, error)

	// IsRegisterPresent reports whether register id can be read
	IsRegisterPresent(id uint32) bool

	// Close releases the underlying device handle
	Close() error
}

// msrReader implements RegisterReader using the msr(4) character device
type msrReader struct {
	devicePath string // MSR device path template, e.g. /dev/cpu/%d/msr
	cpu        int
	logger     *slog.Logger

	mu sync.Mutex
	fd int // -1 when closed
}

var _ RegisterReader = (*msrReader)(nil)

// NewMSRReader creates a new MSR reader for cpu using the specified device path template
func NewMSRReader(devicePath string, cpu int, logger *slog.Logger) *msrReader {
	if logger == nil {
		logger = slog.Default()
	}

	return &msrReader{
		devicePath: devicePath,
		cpu:        cpu,
		fd:         -1,
		logger:     logger.With("service", "msr-reader"),
	}
}

// Name returns the name of this register reader implementation
func (m *msrReader) Name() string {
	return "msr"
}

// Path returns the device file the reader opens; a path without %d is used as is
func (m *msrReader) Path() string {
	if !strings.Contains(m.devicePath, "%d") {
		return m.devicePath
	}
	return fmt.Sprintf(m.devicePath, m.cpu)
}

// Available checks if the MSR device of the configured CPU exists
func (m *msrReader) Available() bool {
	// Derive CPU directory from devicePath (e.g., "/dev/cpu/%d/msr" -> "/dev/cpu")
	cpuDir := filepath.Dir(filepath.Dir(m.devicePath))
	if _, err := os.Stat(cpuDir); os.IsNotExist(err) {
		m.logger.Debug("MSR not available: CPU directory does not exist", "dir", cpuDir)
		return false
	}

	if _, err := os.Stat(m.Path()); err != nil {
		m.logger.Debug("MSR not available", "path", m.Path(), "error", err)
		return false
	}
	return true
}

// Init opens the MSR device and verifies that the unit register can be read
func (m *msrReader) Init() error {
	if !m.Available() {
		return fmt.Errorf("MSR interface not available at %s; is the msr module loaded?", m.Path())
	}

	fd, err := unix.Open(m.Path(), unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("failed to open MSR file %s: %w", m.Path(), err)
	}

	m.mu.Lock()
	m.fd = fd
	m.mu.Unlock()

	if _, err := m.ReadRegister(MSRPowerUnit); err != nil {
		if closeErr := m.Close(); closeErr != nil {
			m.logger.Warn("Failed to close MSR file", "error", closeErr)
		}
		return fmt.Errorf("MSR device %s is not usable: %w", m.Path(), err)
	}

	m.logger.Info("MSR reader initialized", "path", m.Path())
	return nil
}

// ReadRegister reads the 8 bytes at offset id of the MSR device
func (m *msrReader) ReadRegister(id uint32) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fd < 0 {
		return 0, newRegisterError(id, errors.New("MSR device not open"))
	}

	buf := make([]byte, 8)
	n, err := unix.Pread(m.fd, buf, int64(id))
	if err != nil {
		return 0, newRegisterError(id, err)
	}
	if n != len(buf) {
		return 0, newRegisterError(id, fmt.Errorf("short read: %d of %d bytes", n, len(buf)))
	}

	return binary.LittleEndian.Uint64(buf), nil
}

// IsRegisterPresent tests if a register can be read without error
func (m *msrReader) IsRegisterPresent(id uint32) bool {
	_, err := m.ReadRegister(id)
	if err != nil {
		m.logger.Debug("MSR register not readable", "msr", RegisterName(id), "error", err)
	}
	return err == nil
}

// Close closes the MSR device; it is safe to call more than once
func (m *msrReader) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fd < 0 {
		return nil
	}
	err := unix.Close(m.fd)
	m.fd = -1
	return err
}

// Shutdown implements service.Shutdowner
func (m *msrReader) Shutdown() error {
	m.logger.Info("Closing MSR device", "path", m.Path())
	return m.Close()
}
