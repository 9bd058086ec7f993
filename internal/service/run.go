// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/oklog/run"
)

// Run runs all services that implement the Runner interface until the first
// one returns; its error is returned. Runners are shut down as the group
// stops, services that only implement Shutdowner are shut down afterwards in
// reverse order.
func Run(outer context.Context, logger *slog.Logger, services []Service) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	logger.Info("Running all services")
	ctx, cancel := context.WithCancel(outer)
	defer cancel()
	// Create run group
	var g run.Group

	var idle []Service
	for _, s := range services {
		runner, ok := s.(Runner)
		if !ok {
			logger.Debug("not a runner", "service", s.Name())
			idle = append(idle, s)
			continue
		}

		svc := s
		g.Add(
			func() error {
				logger.Info("Running service", "service", svc.Name())
				return runner.Run(ctx)
			},
			func(err error) {
				cancel()
				if err != nil {
					logger.Warn("service terminated", "service", svc.Name(), "reason", err)
				}
				shutdown(logger, svc)
			},
		)
	}

	err := g.Run()
	shutdownReverse(logger, idle)
	return err
}

// shutdownReverse shuts services down in reverse order so that a service is
// stopped before the services it was built on
func shutdownReverse(logger *slog.Logger, services []Service) {
	for i := len(services) - 1; i >= 0; i-- {
		shutdown(logger, services[i])
	}
}

func shutdown(logger *slog.Logger, s Service) {
	shutdowner, ok := s.(Shutdowner)
	if !ok {
		logger.Debug("skipping service shutting down", "service", s.Name(),
			"reason", "service does not implement Shutdowner interface")
		return
	}

	logger.Info("shutting down", "service", s.Name())
	if err := shutdowner.Shutdown(); err != nil {
		logger.Warn("service shutdown failed with error", "service", s.Name(), "error", err)
	}
}
