// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import "context"

// Service is anything started by Init and Run; the name shows up in logs
// and in wrapped errors
type Service interface {
	Name() string
}

// Initializer is a service with a fallible setup step, e.g. opening the
// MSR device or detecting the platform. Init failures abort startup.
type Initializer interface {
	Service
	Init() error
}

// Runner is a service that blocks until its context is done or its work
// ends. The first runner to return stops the others.
type Runner interface {
	Service
	Run(ctx context.Context) error
}

// Shutdowner is a service holding resources that must be released, such
// as the register device handle
type Shutdowner interface {
	Service
	Shutdown() error
}
