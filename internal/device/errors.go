// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"errors"
	"fmt"
)

// ErrRegisterUnreadable is matched by every error returned from a failed register read
var ErrRegisterUnreadable = errors.New("register unreadable")

// RegisterError records a failed read of a single register
type RegisterError struct {
	Register uint32
	Err      error
}

func (e *RegisterError) Error() string {
	return fmt.Sprintf("failed to read %s (0x%x): %v", RegisterName(e.Register), e.Register, e.Err)
}

func (e *RegisterError) Unwrap() []error {
	return []error{ErrRegisterUnreadable, e.Err}
}

func newRegisterError(id uint32, err error) error {
	return &RegisterError{Register: id, Err: err}
}
