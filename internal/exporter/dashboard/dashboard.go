// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/sustainable-computing-io/powermon/internal/monitor"
	"github.com/sustainable-computing-io/powermon/internal/service"
)

type (
	Initializer = service.Initializer
	Runner      = service.Runner
	Shutdowner  = service.Shutdowner
)

// Dashboard renders snapshots in a full screen terminal view
type Dashboard struct {
	logger    *slog.Logger
	input     *os.File
	output    io.Writer
	altScreen bool

	quit    atomic.Bool
	program *tea.Program
}

var (
	_ Initializer  = (*Dashboard)(nil)
	_ Runner       = (*Dashboard)(nil)
	_ Shutdowner   = (*Dashboard)(nil)
	_ monitor.Sink = (*Dashboard)(nil)
)

type Opts struct {
	logger    *slog.Logger
	input     *os.File
	output    io.Writer
	altScreen bool
}

// DefaultOpts() returns a new Opts with defaults set
func DefaultOpts() Opts {
	return Opts{
		logger:    slog.Default(),
		input:     os.Stdin,
		output:    os.Stdout,
		altScreen: true,
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger for the Dashboard
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

// WithInput sets the keyboard input; nil or a non terminal file disables keys
func WithInput(in *os.File) OptionFn {
	return func(o *Opts) {
		o.input = in
	}
}

func WithOutput(out io.Writer) OptionFn {
	return func(o *Opts) {
		o.output = out
	}
}

// WithAltScreen toggles the alternate screen buffer
func WithAltScreen(enabled bool) OptionFn {
	return func(o *Opts) {
		o.altScreen = enabled
	}
}

func NewDashboard(applyOpts ...OptionFn) *Dashboard {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	return &Dashboard{
		logger:    opts.logger.With("service", "dashboard"),
		input:     opts.input,
		output:    opts.output,
		altScreen: opts.altScreen,
	}
}

// Name implements service.Name
func (d *Dashboard) Name() string {
	return "dashboard"
}

func (d *Dashboard) Init() error {
	progOpts := []tea.ProgramOption{
		tea.WithOutput(d.output),
		tea.WithoutSignalHandler(),
	}

	if d.input != nil && term.IsTerminal(int(d.input.Fd())) {
		progOpts = append(progOpts, tea.WithInput(d.input))
	} else {
		d.logger.Warn("Keyboard input is not a terminal; stop with SIGINT or SIGTERM")
		progOpts = append(progOpts, tea.WithInput(nil))
	}

	if d.altScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}

	d.program = tea.NewProgram(newModel(&d.quit), progOpts...)
	return nil
}

func (d *Dashboard) Run(ctx context.Context) error {
	if d.program == nil {
		return errors.New("dashboard is not initialized")
	}

	// the run group shuts the program down through Shutdown; ctx is only
	// observed so that a cancelled group does not leave the terminal in raw mode
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			d.program.Quit()
		case <-done:
		}
	}()

	d.logger.Info("Dashboard is running...")
	_, err := d.program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// Publish hands a snapshot to the program; it blocks until the program has
// accepted it or has exited
func (d *Dashboard) Publish(s monitor.Snapshot) {
	if d.program == nil {
		return
	}
	d.program.Send(snapshotMsg(s))
}

// QuitRequested reports whether a quit key was pressed
func (d *Dashboard) QuitRequested() bool {
	return d.quit.Load()
}

func (d *Dashboard) Shutdown() error {
	if d.program == nil {
		return nil
	}
	d.program.Quit()
	return nil
}
