// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	OutputStderr = "stderr"
	OutputStdout = "stdout"
)

var logLevel slog.Level

func New(level, format string, w io.Writer) *slog.Logger {
	logLevel = parseLogLevel(level)
	return slog.New(handlerForFormat(format, logLevel, w))
}

func LogLevel() slog.Level {
	return logLevel
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Output returns the writer for a log destination: stderr, stdout or a file
// path opened for append. While the terminal is owned by a full screen view,
// stderr and stdout are discarded since log lines would corrupt the screen.
func Output(output string, terminalOwned bool) (io.WriteCloser, error) {
	switch output {
	case OutputStderr, OutputStdout:
		if terminalOwned {
			return nopCloser{io.Discard}, nil
		}
		if output == OutputStdout {
			return nopCloser{os.Stdout}, nil
		}
		return nopCloser{os.Stderr}, nil
	}

	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func handlerForFormat(format string, logLevel slog.Level, w io.Writer) slog.Handler {
	switch format {
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		})

	case "text":
		return slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:       logLevel,
			AddSource:   true,
			ReplaceAttr: shortSource,
		})

	default:
		panic(fmt.Sprintf("invalid format: %s", format))
	}
}

// shortSource keeps the last two directories and the file name of the source
func shortSource(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.SourceKey {
		return a
	}
	src, ok := a.Value.Any().(*slog.Source)
	if !ok {
		return a
	}

	parts := strings.Split(filepath.ToSlash(src.File), "/")
	if len(parts) > 2 {
		src.File = filepath.Join(parts[len(parts)-3:]...)
	}
	return a
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
