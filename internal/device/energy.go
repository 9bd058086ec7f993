// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
	"time"
)

// Energy represents energy as a float64 Joule count converted from a RAPL counter.
// Use functions Joules, MilliJoules and MicroJoules to get the energy
// value as Joule, MilliJoule or MicroJoule respectively
type Energy float64

const (
	MicroJoule Energy = 1e-6
	MilliJoule        = 1000 * MicroJoule
	Joule             = 1000 * MilliJoule
)

func (e Energy) MicroJoules() float64 {
	return float64(e / MicroJoule)
}

func (e Energy) MilliJoules() float64 {
	return float64(e / MilliJoule)
}

func (e Energy) Joules() float64 {
	return float64(e)
}

// Over returns the average power of e spent over d; zero when d is not positive
func (e Energy) Over(d time.Duration) Power {
	if d <= 0 {
		return 0
	}
	return Power(float64(e) / d.Seconds())
}

func (e Energy) String() string {
	return fmt.Sprintf("%.2fJ", e.Joules())
}

// Power represents power as a float64 Watt value.
// Use functions Watts, MilliWatts and MicroWatts to get the power value as
// Watts, MilliWatts or MicroWatts respectively
type Power float64

const (
	MicroWatt Power = 1e-6
	MilliWatt       = 1000 * MicroWatt
	Watt            = 1000 * MilliWatt
)

func (p Power) MicroWatts() float64 {
	return float64(p / MicroWatt)
}

func (p Power) MilliWatts() float64 {
	return float64(p / MilliWatt)
}

func (p Power) Watts() float64 {
	return float64(p)
}

func (p Power) String() string {
	return fmt.Sprintf("%.2fW", p.Watts())
}
