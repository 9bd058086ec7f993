// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"errors"
	"log/slog"
	"math/rand"
	"sync"
)

// NOTE: This fake reader is not intended to be used in production and is for development and testing only

const (
	// power unit 1/8 W, energy unit 1/2^14 J, time unit 1/2^10 s
	defaultFakePowerUnit uint64 = 0x000A0E03

	// thermal spec 65W, minimum 20W, maximum 130W in 1/8 W units
	defaultFakePowerInfo uint64 = 1040<<32 | 160<<16 | 520
)

// fakeCounter emulates a 32-bit energy status counter that grows on every read
type fakeCounter struct {
	value        uint32
	increment    uint32
	randomFactor float64
}

func (c *fakeCounter) next() uint64 {
	step := c.increment + uint32(rand.Float64()*float64(c.increment)*c.randomFactor)
	c.value += step // wraps at 2^32 like the hardware counter
	return uint64(c.value)
}

// fakeRegisterReader implements the RegisterReader interface
type fakeRegisterReader struct {
	logger *slog.Logger

	mu        sync.Mutex
	registers map[uint32]uint64
	counters  map[uint32]*fakeCounter
	closed    bool
}

var _ RegisterReader = (*fakeRegisterReader)(nil)

// FakeOptFn is a functional option for configuring the fake register reader
type FakeOptFn func(*fakeRegisterReader)

// WithFakeLogger sets the logger of the fake reader
func WithFakeLogger(l *slog.Logger) FakeOptFn {
	return func(r *fakeRegisterReader) {
		r.logger = l.With("service", r.Name())
	}
}

// WithFakeRegister sets a register that always reads as value
func WithFakeRegister(id uint32, value uint64) FakeOptFn {
	return func(r *fakeRegisterReader) {
		delete(r.counters, id)
		r.registers[id] = value
	}
}

// WithFakeCounter sets a register that grows by about increment on every read, starting at start
func WithFakeCounter(id uint32, start, increment uint32) FakeOptFn {
	return func(r *fakeRegisterReader) {
		delete(r.registers, id)
		r.counters[id] = &fakeCounter{value: start, increment: increment}
	}
}

// WithoutFakeRegister makes the register unreadable
func WithoutFakeRegister(ids ...uint32) FakeOptFn {
	return func(r *fakeRegisterReader) {
		for _, id := range ids {
			delete(r.registers, id)
			delete(r.counters, id)
		}
	}
}

// NewFakeRegisterReader creates a register reader that emulates a RAPL
// implementation drawing roughly 20W at the package. Both the graphics and
// DRAM counters are present so it serves desktop and server classes alike.
func NewFakeRegisterReader(opts ...FakeOptFn) RegisterReader {
	r := &fakeRegisterReader{
		logger: slog.Default().With("service", "fake-msr"),
		registers: map[uint32]uint64{
			MSRPowerUnit:    defaultFakePowerUnit,
			MSRPkgPowerInfo: defaultFakePowerInfo,
		},
		// increments assume a 50ms tick at 1/2^14 J per count
		counters: map[uint32]*fakeCounter{
			// starts close to the wrap point so that wraparound shows up quickly
			MSRPkgEnergyStatus:  {value: 0xFFF00000, increment: 16384, randomFactor: 0.5},
			MSRPP0EnergyStatus:  {value: 0, increment: 9830, randomFactor: 0.5},
			MSRPP1EnergyStatus:  {value: 0, increment: 1638, randomFactor: 0.5},
			MSRDRAMEnergyStatus: {value: 0, increment: 3276, randomFactor: 0.5},
		},
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *fakeRegisterReader) Name() string {
	return "fake-msr"
}

func (r *fakeRegisterReader) ReadRegister(id uint32) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, newRegisterError(id, errors.New("fake MSR device closed"))
	}
	if c, ok := r.counters[id]; ok {
		return c.next(), nil
	}
	if v, ok := r.registers[id]; ok {
		return v, nil
	}
	return 0, newRegisterError(id, errors.New("register not implemented"))
}

func (r *fakeRegisterReader) IsRegisterPresent(id uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	_, isCounter := r.counters[id]
	_, isRegister := r.registers[id]
	return isCounter || isRegister
}

func (r *fakeRegisterReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Shutdown implements service.Shutdowner
func (r *fakeRegisterReader) Shutdown() error {
	r.logger.Info("Closing fake MSR device")
	return r.Close()
}
