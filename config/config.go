// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"gopkg.in/yaml.v3"
	"k8s.io/utils/ptr"

	"github.com/sustainable-computing-io/powermon/internal/platform"
)

// Config represents the complete application configuration
type (
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		// Output is stderr, stdout or a file path
		Output string `yaml:"output"`
	}
	Host struct {
		ProcFS string `yaml:"procfs"`
	}

	// MSR device settings
	MSR struct {
		Device string `yaml:"device"` // msr device path template; %d is replaced by the cpu
		CPU    int    `yaml:"cpu"`
	}

	// Platform overrides; empty values are detected
	Platform struct {
		Class  platform.Class `yaml:"class"`
		Vendor string         `yaml:"vendor"`
		Family string         `yaml:"family"`
		Model  string         `yaml:"model"`
	}

	Monitor struct {
		Interval   time.Duration `yaml:"interval"`   // sleep between two samples
		FlushTicks int           `yaml:"flushTicks"` // samples per published snapshot
	}

	Display struct {
		AltScreen *bool `yaml:"altScreen"`
	}

	// Development mode settings; disabled by default
	Dev struct {
		FakeMSR struct {
			Enabled *bool `yaml:"enabled"`
		} `yaml:"fake-msr"`
	}

	Config struct {
		Log      Log      `yaml:"log"`
		Host     Host     `yaml:"host"`
		MSR      MSR      `yaml:"msr"`
		Platform Platform `yaml:"platform"`
		Monitor  Monitor  `yaml:"monitor"`
		Display  Display  `yaml:"display"`
		Dev      Dev      `yaml:"dev"` // WARN: do not expose dev settings as flags
	}
)

type SkipValidation int

const (
	SkipHostValidation SkipValidation = 1
)

const (
	// Flags
	LogLevelFlag  = "log.level"
	LogFormatFlag = "log.format"
	LogOutputFlag = "log.output"

	HostProcFSFlag = "host.procfs"

	MSRDeviceFlag = "msr.device"
	MSRCPUFlag    = "msr.cpu"

	PlatformClassFlag  = "platform.class"
	PlatformVendorFlag = "platform.vendor"
	PlatformFamilyFlag = "platform.family"
	PlatformModelFlag  = "platform.model"

	MonitorIntervalFlag   = "monitor.interval"
	MonitorFlushTicksFlag = "monitor.flush-ticks"

	DisplayAltScreenFlag = "display.alt-screen"

	// NOTE: not a flag
	DevFakeMSR = "dev.fake-msr.enabled"

// WARN:  dev settings shouldn't be exposed as flags as flags are intended for end users
)

const (
	LogOutputStderr = "stderr"
	LogOutputStdout = "stdout"
)

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	cfg := &Config{
		Log: Log{
			Level:  "info",
			Format: "text",
			Output: LogOutputStderr,
		},
		Host: Host{
			ProcFS: "/proc",
		},
		MSR: MSR{
			Device: "/dev/cpu/%d/msr",
			CPU:    0,
		},
		Platform: Platform{
			Class: platform.Unknown,
		},
		Monitor: Monitor{
			Interval:   50 * time.Millisecond,
			FlushTicks: 20,
		},
		Display: Display{
			AltScreen: ptr.To(true),
		},
	}

	cfg.Dev.FakeMSR.Enabled = ptr.To(false)
	return cfg
}

// Load loads configuration from an io.Reader
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := (&Builder{}).Merge(string(data)).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.sanitize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// openConfigFile is replaced in tests
var openConfigFile = func(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// FromFile loads configuration from a file. A failure to close the file is
// reported when loading itself succeeded.
func FromFile(filePath string) (cfg *Config, errRet error) {
	file, err := openConfigFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil && errRet == nil {
			cfg, errRet = nil, fmt.Errorf("failed to close config file: %w", err)
		}
	}()

	return Load(file)
}

type ConfigUpdaterFn func(*Config) error

// RegisterFlags registers command-line flags with kingpin app
// and returns ConfigUpdaterFn that updates the config from parsed flags
// as command line arguments override config file settings
func RegisterFlags(app *kingpin.Application) ConfigUpdaterFn {
	// track flags that were explicitly set
	flagsSet := map[string]bool{}

	app.PreAction(func(ctx *kingpin.ParseContext) error {
		// Clear the map in case this function is called multiple times
		flagsSet = map[string]bool{}

		for _, element := range ctx.Elements {
			if flag, ok := element.Clause.(*kingpin.FlagClause); ok && element.Value != nil {
				flagsSet[flag.Model().Name] = true
			}
		}
		return nil
	})

	// Logging
	logLevel := app.Flag(LogLevelFlag, "Logging level: debug, info, warn, error").Default("info").Enum("debug", "info", "warn", "error")
	logFormat := app.Flag(LogFormatFlag, "Logging format: text or json").Default("text").Enum("text", "json")
	logOutput := app.Flag(LogOutputFlag,
		"Log destination: stderr, stdout or a file path; terminal output is discarded while the dashboard runs").Default(LogOutputStderr).String()

	// host
	hostProcFS := app.Flag(HostProcFSFlag, "Host procfs path").Default("/proc").ExistingDir()

	// msr
	msrDevice := app.Flag(MSRDeviceFlag, "MSR device path; %d is replaced by the cpu number").Default("/dev/cpu/%d/msr").String()
	msrCPU := app.Flag(MSRCPUFlag, "Logical cpu whose MSR device is read").Default("0").Int()

	// platform
	platformClass := app.Flag(PlatformClassFlag, "Platform class: auto, desktop or server").Default("auto").Enum("auto", "desktop", "client", "server")
	platformVendor := app.Flag(PlatformVendorFlag, "Override the detected CPU vendor").String()
	platformFamily := app.Flag(PlatformFamilyFlag, "Override the detected micro-architecture name").String()
	platformModel := app.Flag(PlatformModelFlag, "Override the detected CPU model name").String()

	// monitor
	monitorInterval := app.Flag(MonitorIntervalFlag, "Interval between two samples").Default("50ms").Duration()
	monitorFlushTicks := app.Flag(MonitorFlushTicksFlag, "Number of samples per dashboard refresh").Default("20").Int()

	// display
	altScreen := app.Flag(DisplayAltScreenFlag, "Use the alternate screen buffer").Default("true").Bool()

	return func(cfg *Config) error {
		// Logging settings
		if flagsSet[LogLevelFlag] {
			cfg.Log.Level = *logLevel
		}

		if flagsSet[LogFormatFlag] {
			cfg.Log.Format = *logFormat
		}

		if flagsSet[LogOutputFlag] {
			cfg.Log.Output = *logOutput
		}

		if flagsSet[HostProcFSFlag] {
			cfg.Host.ProcFS = *hostProcFS
		}

		if flagsSet[MSRDeviceFlag] {
			cfg.MSR.Device = *msrDevice
		}

		if flagsSet[MSRCPUFlag] {
			cfg.MSR.CPU = *msrCPU
		}

		if flagsSet[PlatformClassFlag] {
			class, err := platform.ParseClass(*platformClass)
			if err != nil {
				return err
			}
			cfg.Platform.Class = class
		}

		if flagsSet[PlatformVendorFlag] {
			cfg.Platform.Vendor = *platformVendor
		}

		if flagsSet[PlatformFamilyFlag] {
			cfg.Platform.Family = *platformFamily
		}

		if flagsSet[PlatformModelFlag] {
			cfg.Platform.Model = *platformModel
		}

		// monitor settings
		if flagsSet[MonitorIntervalFlag] {
			cfg.Monitor.Interval = *monitorInterval
		}

		if flagsSet[MonitorFlushTicksFlag] {
			cfg.Monitor.FlushTicks = *monitorFlushTicks
		}

		if flagsSet[DisplayAltScreenFlag] {
			cfg.Display.AltScreen = altScreen
		}

		cfg.sanitize()
		return cfg.Validate()
	}
}

func (c *Config) sanitize() {
	c.Log.Level = strings.TrimSpace(c.Log.Level)
	c.Log.Format = strings.TrimSpace(c.Log.Format)
	c.Log.Output = strings.TrimSpace(c.Log.Output)
	c.Host.ProcFS = strings.TrimSpace(c.Host.ProcFS)
	c.MSR.Device = strings.TrimSpace(c.MSR.Device)
	c.Platform.Vendor = strings.TrimSpace(c.Platform.Vendor)
	c.Platform.Family = strings.TrimSpace(c.Platform.Family)
	c.Platform.Model = strings.TrimSpace(c.Platform.Model)
}

// MSRDevicePath returns the device path of the configured cpu
func (c *Config) MSRDevicePath() string {
	if !strings.Contains(c.MSR.Device, "%d") {
		return c.MSR.Device
	}
	return fmt.Sprintf(c.MSR.Device, c.MSR.CPU)
}

// Overrides returns the platform values that replace detected ones
func (c *Config) Overrides() platform.Overrides {
	return platform.Overrides{
		Vendor: c.Platform.Vendor,
		Family: c.Platform.Family,
		Model:  c.Platform.Model,
		Class:  c.Platform.Class,
	}
}

// Validate checks for configuration errors
func (c *Config) Validate(skips ...SkipValidation) error {
	validationSkipped := make(map[SkipValidation]bool, len(skips))
	for _, v := range skips {
		validationSkipped[v] = true
	}
	var errs []string
	{ // log level

		validLogLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}

		// Validate logging settings
		if _, valid := validLogLevels[c.Log.Level]; !valid {
			errs = append(errs, fmt.Sprintf("invalid log level: %s", c.Log.Level))
		}
	}
	{ // log format
		validFormats := map[string]bool{
			"text": true,
			"json": true,
		}
		if _, valid := validFormats[c.Log.Format]; !valid {
			errs = append(errs, fmt.Sprintf("invalid log format: %s", c.Log.Format))
		}
	}
	{ // log output
		if c.Log.Output == "" {
			errs = append(errs, "log output cannot be empty")
		}
	}

	{ // Validate host settings
		if _, skip := validationSkipped[SkipHostValidation]; !skip {
			if err := canReadDir(c.Host.ProcFS); err != nil {
				errs = append(errs, fmt.Sprintf("invalid procfs path: %s: %s ", c.Host.ProcFS, err.Error()))
			}
		}
	}
	{ // MSR
		if c.MSR.CPU < 0 {
			errs = append(errs, fmt.Sprintf("invalid msr cpu: %d can't be negative", c.MSR.CPU))
		}
		// the device itself is opened by the msr reader which reports a missing msr module
		if c.MSR.Device == "" {
			errs = append(errs, "msr device cannot be empty")
		}
	}
	{ // Platform
		if c.Platform.Class == platform.Unsupported {
			errs = append(errs, fmt.Sprintf("invalid platform class: %s", c.Platform.Class))
		}
	}
	{ // Monitor
		if c.Monitor.Interval <= 0 {
			errs = append(errs, fmt.Sprintf("invalid monitor interval: %s must be positive", c.Monitor.Interval))
		}
		if c.Monitor.FlushTicks < 1 {
			errs = append(errs, fmt.Sprintf("invalid monitor flush ticks: %d must be at least 1", c.Monitor.FlushTicks))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, ", "))
	}

	return nil
}

func canReadDir(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	defer func() {
		// ignored on purpose
		_ = f.Close()
	}()

	_, err = f.ReadDir(1)
	if err != nil {
		return err
	}

	return nil
}

func (c *Config) String() string {
	bytes, err := yaml.Marshal(c)
	if err == nil {
		return string(bytes)
	}
	// NOTE:  this code path should not happen but if it does (i.e if yaml marshal) fails
	// for some reason, manually build the string
	return c.manualString()
}

func (c *Config) manualString() string {
	cfgs := []struct {
		Name  string
		Value string
	}{
		{LogLevelFlag, c.Log.Level},
		{LogFormatFlag, c.Log.Format},
		{LogOutputFlag, c.Log.Output},
		{HostProcFSFlag, c.Host.ProcFS},
		{MSRDeviceFlag, c.MSR.Device},
		{MSRCPUFlag, fmt.Sprintf("%d", c.MSR.CPU)},
		{PlatformClassFlag, c.Platform.Class.String()},
		{PlatformVendorFlag, c.Platform.Vendor},
		{PlatformFamilyFlag, c.Platform.Family},
		{PlatformModelFlag, c.Platform.Model},
		{MonitorIntervalFlag, c.Monitor.Interval.String()},
		{MonitorFlushTicksFlag, fmt.Sprintf("%d", c.Monitor.FlushTicks)},
		{DisplayAltScreenFlag, fmt.Sprintf("%v", ptr.Deref(c.Display.AltScreen, true))},
		{DevFakeMSR, fmt.Sprintf("%v", ptr.Deref(c.Dev.FakeMSR.Enabled, false))},
	}
	sb := strings.Builder{}

	for _, cfg := range cfgs {
		sb.WriteString(cfg.Name)
		sb.WriteString(": ")
		sb.WriteString(cfg.Value)
		sb.WriteString("\n")
	}

	return sb.String()
}
