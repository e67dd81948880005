//go:build !no_containers

package test

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/computer2mqtt/test/util"
)

func buildBinary(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "computer2mqtt")
	buildCmd := exec.Command("go", "build", "-o", bin, ".")
	buildCmd.Dir = ".."
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}
	return bin
}

func TestE2EConfig_SignalShutdown(t *testing.T) {
	requireDocker(t)
	broker := startBroker(t)
	bin := buildBinary(t)

	dir := t.TempDir()
	marker := filepath.Join(dir, "triggered")
	path := filepath.Join(dir, "computer2mqtt.yaml")
	data := fmt.Sprintf(`mqtt:
  ip: %q
  port: %d
  hostname: "clihost"
commands:
  touch: "touch %s"
`, broker.Host, broker.Port, marker)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cmd := exec.Command(bin, "--config", path, "--log-level", "DEBUG")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	require.NoError(t, cmd.Start())
	defer func() { _ = cmd.Process.Kill() }()

	require.Eventually(t, func() bool {
		if err := util.Publish(broker.URL, "mac2mqtt/clihost/command/touch", "touch"); err != nil {
			return false
		}
		_, err := os.Stat(marker)
		return err == nil
	}, 15*time.Second, 500*time.Millisecond, "command was not executed")

	require.NoError(t, cmd.Process.Signal(syscall.SIGINT))
	errCh := make(chan error, 1)
	go func() { errCh <- cmd.Wait() }()
	select {
	case err := <-errCh:
		assert.NoError(t, err, "graceful shutdown must exit 0")
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after SIGINT")
	}
}

func TestE2EConfig_MissingConfigExitsNonZero(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping build test in short mode")
	}
	bin := buildBinary(t)
	cmd := exec.Command(bin, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	err := cmd.Run()
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.NotEqual(t, 0, exitErr.ExitCode())
}
