// Package executor runs command invocations as local processes using
// go-cmd, which buffers stdout and stderr line by line.
package executor

import (
	"context"
	"time"

	gocmd "github.com/go-cmd/cmd"

	"github.com/kilianp07/computer2mqtt/core/command"
)

// ProcessRunner implements command.Runner.
type ProcessRunner struct {
	// Dir is the working directory. Empty inherits the daemon's.
	Dir string
	// Env replaces the environment when non-nil.
	Env []string
}

// NewProcessRunner returns a runner inheriting the daemon's environment.
func NewProcessRunner() *ProcessRunner { return &ProcessRunner{} }

// Run starts the process and waits for it to exit. Cancelling ctx stops the
// process group.
func (r *ProcessRunner) Run(ctx context.Context, inv command.Invocation) command.Result {
	c := gocmd.NewCmdOptions(gocmd.Options{Buffered: true}, inv.Name(), inv.Args()...)
	c.Dir = r.Dir
	if r.Env != nil {
		c.Env = r.Env
	}

	statusCh := c.Start()
	var st gocmd.Status
	select {
	case st = <-statusCh:
	case <-ctx.Done():
		_ = c.Stop()
		st = <-statusCh
	}
	return command.Result{
		ExitCode: st.Exit,
		Stdout:   st.Stdout,
		Stderr:   st.Stderr,
		Err:      st.Error,
		Duration: time.Duration(st.Runtime * float64(time.Second)),
	}
}
