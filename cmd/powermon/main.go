// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/utils/ptr"

	"github.com/sustainable-computing-io/powermon/config"
	"github.com/sustainable-computing-io/powermon/internal/device"
	"github.com/sustainable-computing-io/powermon/internal/exporter/dashboard"
	"github.com/sustainable-computing-io/powermon/internal/logger"
	"github.com/sustainable-computing-io/powermon/internal/monitor"
	"github.com/sustainable-computing-io/powermon/internal/platform"
	"github.com/sustainable-computing-io/powermon/internal/service"
	"github.com/sustainable-computing-io/powermon/internal/version"
)

func main() {
	// parse args and config and exit with error if there is an error
	cfg, err := parseArgsAndConfig(os.Args[1:])
	if err != nil {
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		// the dashboard has released the terminal by now
		fmt.Fprintf(os.Stderr, "powermon: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// the dashboard owns the terminal, log lines only survive in a file
	out, err := logger.Output(cfg.Log.Output, true)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	logger := logger.New(cfg.Log.Level, cfg.Log.Format, out)
	logVersionInfo(logger)
	logger.Debug("Configuration", "config", cfg.String())

	services := createServices(logger, cfg)
	if err := service.Init(logger, services); err != nil {
		logger.Error("Initialization failed", "error", err)
		return err
	}

	logger.Info("Starting powermon")
	if err := service.Run(context.Background(), logger, services); err != nil {
		logger.Error("powermon terminated with an error", "error", err)
		return err
	}
	logger.Info("Graceful shutdown completed")
	return nil
}

func logVersionInfo(logger *slog.Logger) {
	v := version.Info()
	logger.Info("powermon version information",
		"version", v.Version,
		"buildTime", v.BuildTime,
		"gitBranch", v.GitBranch,
		"gitCommit", v.GitCommit,
		"goVersion", v.GoVersion,
		"goOS", v.GoOS,
		"goArch", v.GoArch,
	)
}

func parseArgsAndConfig(args []string) (*config.Config, error) {
	const appName = "powermon"
	app := kingpin.New(appName, "Intel RAPL power monitor for the terminal.")
	app.Version(version.Info().String())
	app.HelpFlag.Short('h')

	configFile := app.Flag("config.file", "Path to YAML configuration file").String()
	updateConfig := config.RegisterFlags(app)
	kingpin.MustParse(app.Parse(args))

	logger := logger.New("info", "text", os.Stderr)
	cfg := config.DefaultConfig()
	if *configFile != "" {
		logger.Info("Loading configuration file", "path", *configFile)
		loadedCfg, err := config.FromFile(*configFile)
		if err != nil {
			logger.Error("Error loading config file", "error", err.Error())
			return nil, err
		}
		// Replace default config with loaded config
		cfg = loadedCfg
	}

	// Apply command line flags (these override config file settings)
	if err := updateConfig(cfg); err != nil {
		logger.Error("Error applying command line flags", "error", err.Error())
		return nil, err
	}

	return cfg, nil
}

// createServices returns the services in initialization order; each one
// depends only on services before it
func createServices(logger *slog.Logger, cfg *config.Config) []service.Service {
	logger.Debug("Creating all services")

	var reader device.RegisterReader
	overrides := cfg.Overrides()
	if ptr.Deref(cfg.Dev.FakeMSR.Enabled, false) {
		logger.Warn("Using fake MSR reader; readings are synthetic")
		reader = device.NewFakeRegisterReader(device.WithFakeLogger(logger))
		if overrides.Vendor == "" {
			overrides.Vendor = "GenuineIntel"
		}
		// the host's signature must not decide the class of a synthetic device
		if overrides.Class == platform.Unknown {
			overrides.Class = platform.Desktop
		}
	} else {
		logger.Debug("Using MSR device", "path", cfg.MSRDevicePath())
		reader = device.NewMSRReader(cfg.MSR.Device, cfg.MSR.CPU, logger)
	}

	detector := platform.NewDetector(reader,
		platform.WithLogger(logger),
		platform.WithProcFS(cfg.Host.ProcFS),
		platform.WithOverrides(overrides),
	)

	dash := dashboard.NewDashboard(
		dashboard.WithLogger(logger),
		dashboard.WithAltScreen(ptr.Deref(cfg.Display.AltScreen, true)),
	)

	pm := monitor.NewPowerMonitor(reader, detector, dash,
		monitor.WithLogger(logger),
		monitor.WithInterval(cfg.Monitor.Interval),
		monitor.WithFlushTicks(cfg.Monitor.FlushTicks),
	)

	return []service.Service{
		reader,
		detector,
		pm,
		dash,
		service.NewSignalHandler(logger, syscall.SIGINT, syscall.SIGTERM),
	}
}
