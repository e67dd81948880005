package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/computer2mqtt/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		cfgPath, logLevel, logFormat = config.DefaultPath, "INFO", ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestMissingConfigFails(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	out, err := execute(t, "--config", missing)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrNotFound)
	assert.Contains(t, out, "Failed to load configuration")
}

func TestUnknownLogLevelFails(t *testing.T) {
	_, err := execute(t, "--log-level", "LOUD")
	assert.Error(t, err)
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}

func TestShutdownContextReleasesHandlerOnFirstSignal(t *testing.T) {
	orig := notifyContext
	t.Cleanup(func() { notifyContext = orig })

	var stops atomic.Int32
	var fire context.CancelFunc
	notifyContext = func(parent context.Context, _ ...os.Signal) (context.Context, context.CancelFunc) {
		ctx, cancel := context.WithCancel(parent)
		fire = cancel
		return ctx, func() {
			stops.Add(1)
			cancel()
		}
	}

	ctx, stop := shutdownContext(context.Background(), os.Interrupt)
	defer stop()
	assert.Equal(t, int32(0), stops.Load())

	fire()
	<-ctx.Done()
	assert.Eventually(t, func() bool { return stops.Load() >= 1 }, time.Second, 5*time.Millisecond)
}

func TestShutdownContextCancelledByInterrupt(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("os.Interrupt cannot be sent to a process on windows")
	}
	ctx, stop := shutdownContext(context.Background(), os.Interrupt)
	defer stop()

	p, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	require.NoError(t, p.Signal(os.Interrupt))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by interrupt")
	}
}
