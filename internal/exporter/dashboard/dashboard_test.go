// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sustainable-computing-io/powermon/internal/platform"
)

func newTestDashboard(t *testing.T, out *bytes.Buffer) *Dashboard {
	t.Helper()
	d := NewDashboard(
		WithLogger(slog.New(slog.DiscardHandler)),
		WithInput(nil),
		WithOutput(out),
		WithAltScreen(false),
	)
	require.NoError(t, d.Init())
	return d
}

func TestDashboard_Name(t *testing.T) {
	assert.Equal(t, "dashboard", NewDashboard().Name())
}

func TestDashboard_NotInitialized(t *testing.T) {
	d := NewDashboard()
	assert.ErrorContains(t, d.Run(context.Background()), "not initialized")
	assert.NoError(t, d.Shutdown())
	assert.NotPanics(t, func() { d.Publish(testSnapshot(platform.Desktop)) })
	assert.False(t, d.QuitRequested())
}

func TestDashboard_QuitRequested(t *testing.T) {
	d := NewDashboard()
	assert.False(t, d.QuitRequested())
	d.quit.Store(true)
	assert.True(t, d.QuitRequested())
}

func TestDashboard_RunAndShutdown(t *testing.T) {
	out := &bytes.Buffer{}
	d := newTestDashboard(t, out)

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Run(context.Background())
	}()

	d.Publish(testSnapshot(platform.Desktop))
	require.NoError(t, d.Shutdown())

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dashboard did not stop")
	}
	assert.Contains(t, out.String(), "Skylake")
}

func TestDashboard_StopsOnContextCancel(t *testing.T) {
	d := newTestDashboard(t, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Run(ctx)
	}()
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dashboard did not stop")
	}

	// publishing after the program exited must not block
	done := make(chan struct{})
	go func() {
		d.Publish(testSnapshot(platform.Desktop))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked after exit")
	}
}
