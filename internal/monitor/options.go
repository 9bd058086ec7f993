// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"log/slog"
	"time"

	"k8s.io/utils/clock"
)

type Opts struct {
	logger     *slog.Logger
	interval   time.Duration
	flushTicks int
	clock      clock.Clock
}

// DefaultOpts returns the options of a monitor that samples every 50ms and
// flushes once a second
func DefaultOpts() Opts {
	return Opts{
		logger:     slog.Default(),
		interval:   50 * time.Millisecond,
		flushTicks: 20,
		clock:      clock.RealClock{},
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithInterval sets the sleep between two samples
func WithInterval(d time.Duration) OptionFn {
	return func(o *Opts) {
		o.interval = d
	}
}

// WithFlushTicks sets the number of samples between two snapshots
func WithFlushTicks(n int) OptionFn {
	return func(o *Opts) {
		o.flushTicks = n
	}
}

// WithLogger sets the logger for the PowerMonitor
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

// WithClock sets the clock the PowerMonitor
func WithClock(c clock.Clock) OptionFn {
	return func(o *Opts) {
		o.clock = c
	}
}
