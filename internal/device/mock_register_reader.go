// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package device

// TODO: Move this mock to a separate testutil package

import (
	"errors"
	"sync"
)

// ScriptedRegisterReader replays a fixed sequence of values per register.
// Once a sequence is exhausted the last value is repeated. It is meant for tests.
type ScriptedRegisterReader struct {
	mu     sync.Mutex
	script map[uint32][]uint64
	reads  map[uint32]int
	errs   map[uint32]error
	closed bool
}

var _ RegisterReader = (*ScriptedRegisterReader)(nil)

func NewScriptedRegisterReader() *ScriptedRegisterReader {
	return &ScriptedRegisterReader{
		script: map[uint32][]uint64{},
		reads:  map[uint32]int{},
		errs:   map[uint32]error{},
	}
}

// Script sets the successive values returned for register id
func (s *ScriptedRegisterReader) Script(id uint32, values ...uint64) *ScriptedRegisterReader {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script[id] = values
	return s
}

// FailWith makes every subsequent read of id fail with err
func (s *ScriptedRegisterReader) FailWith(id uint32, err error) *ScriptedRegisterReader {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[id] = err
	return s
}

// Reads returns how many times register id has been read
func (s *ScriptedRegisterReader) Reads(id uint32) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[id]
}

// Closed reports whether Close was called
func (s *ScriptedRegisterReader) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *ScriptedRegisterReader) Name() string {
	return "scripted-msr"
}

func (s *ScriptedRegisterReader) ReadRegister(id uint32) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.errs[id]; ok {
		return 0, newRegisterError(id, err)
	}
	values, ok := s.script[id]
	if !ok || len(values) == 0 {
		return 0, newRegisterError(id, errors.New("register not scripted"))
	}

	n := s.reads[id]
	s.reads[id] = n + 1
	if n >= len(values) {
		n = len(values) - 1
	}
	return values[n], nil
}

func (s *ScriptedRegisterReader) IsRegisterPresent(id uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, failing := s.errs[id]; failing {
		return false
	}
	return len(s.script[id]) > 0
}

func (s *ScriptedRegisterReader) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
