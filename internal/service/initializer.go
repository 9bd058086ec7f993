// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"fmt"
	"log/slog"
	"os"
)

// Init initializes all services that implement the Initializer interface in
// order. If any service fails to initialize, the previously initialized
// services are shut down in reverse order.
func Init(logger *slog.Logger, services []Service) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	initialized := make([]Service, 0, len(services))

	for _, s := range services {
		srv, ok := s.(Initializer)
		if !ok {
			logger.Debug("skipping service initialization", "service", s.Name(),
				"reason", "service does not implement Initializer")
			continue
		}

		logger.Info("Initializing service", "service", s.Name())
		if err := srv.Init(); err != nil {
			logger.Info("Shutting down initialized services")
			shutdownReverse(logger, initialized)
			return fmt.Errorf("failed to initialize service %s: %w", s.Name(), err)
		}
		initialized = append(initialized, s)
	}

	return nil
}
