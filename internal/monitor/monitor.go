// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sustainable-computing-io/powermon/internal/device"
	"github.com/sustainable-computing-io/powermon/internal/platform"
	"github.com/sustainable-computing-io/powermon/internal/rapl"
	"github.com/sustainable-computing-io/powermon/internal/service"
	"k8s.io/utils/clock"
)

// Sink receives snapshots from the monitor
type Sink interface {
	// Publish is called once per flush with a snapshot owned by the sink
	Publish(Snapshot)

	// QuitRequested is polled after every Publish; true stops the monitor
	QuitRequested() bool
}

// IdentityProvider supplies the identity of the monitored processor
type IdentityProvider interface {
	Identity() platform.Identity
}

// Service defines the interface for the power monitoring service
type Service interface {
	service.Initializer
	service.Runner
	service.Shutdowner
}

// PowerMonitor samples the RAPL energy counters and publishes a snapshot
// every flushTicks samples
type PowerMonitor struct {
	// passed externally
	logger   *slog.Logger
	reader   device.RegisterReader
	platform IdentityProvider
	sink     Sink

	interval   time.Duration
	flushTicks int
	clock      clock.Clock

	// resolved by Init
	identity   platform.Identity
	factors    rapl.ScalingFactors
	thresholds rapl.WraparoundThresholds
	powerInfo  rapl.PowerInfo
	sampler    *rapl.Sampler
	acc        *Accumulator

	sequence  uint64
	lastFlush time.Time

	stopped atomic.Bool
}

var _ Service = (*PowerMonitor)(nil)

// NewPowerMonitor creates a new PowerMonitor instance
func NewPowerMonitor(reader device.RegisterReader, ip IdentityProvider, sink Sink, applyOpts ...OptionFn) *PowerMonitor {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	return &PowerMonitor{
		logger:     opts.logger.With("service", "monitor"),
		reader:     reader,
		platform:   ip,
		sink:       sink,
		clock:      opts.clock,
		interval:   opts.interval,
		flushTicks: opts.flushTicks,
	}
}

func (pm *PowerMonitor) Name() string {
	return "monitor"
}

// Init derives the unit scaling and wraparound thresholds, reads the package
// power ceiling and takes the first sample
func (pm *PowerMonitor) Init() error {
	pm.identity = pm.platform.Identity()

	factors, err := rapl.DeriveScalingFactors(pm.reader)
	if err != nil {
		return err
	}
	pm.factors = factors
	pm.thresholds = rapl.DeriveWraparoundThresholds(factors)

	info, err := rapl.ReadPowerInfo(pm.reader, factors)
	if err != nil {
		return err
	}
	pm.powerInfo = info

	sampler, err := rapl.NewSampler(pm.reader, factors, pm.identity.Class)
	if err != nil {
		return err
	}
	pm.sampler = sampler

	first, err := sampler.Sample()
	if err != nil {
		return fmt.Errorf("initial sample failed: %w", err)
	}
	pm.acc = NewAccumulator(pm.thresholds, first, pm.flushTicks)
	pm.lastFlush = pm.clock.Now()

	domains := make([]string, 0, 3)
	for _, id := range sampler.Domains() {
		domains = append(domains, device.RegisterName(id))
	}
	pm.logger.Info("Monitor initialized",
		"units", factors,
		"status-max", fmt.Sprintf("%.2fJ", pm.thresholds.StatusMax),
		"throttle-max", fmt.Sprintf("%.2fs", pm.thresholds.ThrottleMax),
		"thermal-spec", info.ThermalSpec,
		"minimum", info.Minimum,
		"ceiling", pm.PowerCeiling(),
		"domains", domains)
	return nil
}

// PowerCeiling returns the display ceiling in watts resolved by Init
func (pm *PowerMonitor) PowerCeiling() uint64 {
	return pm.powerInfo.Ceiling()
}

// Run samples until a stop is requested. Stop requests are only honoured
// right after a snapshot has been published.
func (pm *PowerMonitor) Run(ctx context.Context) error {
	if pm.acc == nil {
		return errors.New("monitor is not initialized")
	}

	// the other services start between Init and Run; restart the first window
	// so that neither its energy nor its duration includes that gap
	if pm.clock.Since(pm.lastFlush) > 0 {
		first, err := pm.sampler.Sample()
		if err != nil {
			return fmt.Errorf("sampling failed: %w", err)
		}
		pm.acc = NewAccumulator(pm.thresholds, first, pm.flushTicks)
		pm.lastFlush = pm.clock.Now()
	}

	pm.logger.Info("Monitor is running...", "interval", pm.interval, "flush-ticks", pm.flushTicks)
	for {
		current, err := pm.sampler.Sample()
		if err != nil {
			return fmt.Errorf("sampling failed: %w", err)
		}

		if pm.acc.Add(current) {
			pm.flush()
			if reason := pm.stopReason(ctx); reason != "" {
				pm.logger.Info("Monitor has terminated.", "reason", reason, "snapshots", pm.sequence)
				return nil
			}
		}

		pm.clock.Sleep(pm.interval)
	}
}

// Shutdown requests the loop to stop at the next flush
func (pm *PowerMonitor) Shutdown() error {
	pm.logger.Info("shutting down monitor")
	pm.stopped.Store(true)
	return nil
}

func (pm *PowerMonitor) flush() {
	now := pm.clock.Now()
	delta, total := pm.acc.Flush()
	pm.sequence++

	snapshot := Snapshot{
		Sequence:     pm.sequence,
		Timestamp:    now,
		Window:       now.Sub(pm.lastFlush),
		Delta:        delta,
		Total:        total,
		PowerCeiling: pm.PowerCeiling(),
		Platform:     pm.identity,
	}
	pm.lastFlush = now

	pm.logger.Debug("Publishing snapshot",
		"seq", snapshot.Sequence,
		"window", snapshot.Window,
		"package", snapshot.Delta.Package,
		"power", snapshot.PackagePower())
	pm.sink.Publish(snapshot)
}

func (pm *PowerMonitor) stopReason(ctx context.Context) string {
	switch {
	case pm.sink.QuitRequested():
		return "quit requested"
	case ctx.Err() != nil:
		return "context done"
	case pm.stopped.Load():
		return "shutdown"
	}
	return ""
}
