package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/computer2mqtt/core/events"
	"github.com/kilianp07/computer2mqtt/core/logger"
)

// Invocation is one resolved command execution.
type Invocation struct {
	ID   string
	Key  string
	Argv []string
}

// Name is the executable.
func (i Invocation) Name() string { return i.Argv[0] }

// Args are the ordered arguments after the executable.
func (i Invocation) Args() []string { return i.Argv[1:] }

func (i Invocation) String() string { return strings.Join(i.Argv, " ") }

// Result describes how an invocation ended. Err is set when the process could
// not be started; ExitCode is then -1.
type Result struct {
	ExitCode int
	Stdout   []string
	Stderr   []string
	Err      error
	Duration time.Duration
}

// Runner launches an invocation and blocks until it exits.
type Runner interface {
	Run(ctx context.Context, inv Invocation) Result
}

// Split turns a command line into argv using plain whitespace splitting.
func Split(line string) []string { return strings.Fields(line) }

// Dispatcher resolves command keys and runs them on detached goroutines.
type Dispatcher struct {
	commands map[string]string
	keys     []string
	runner   Runner
	log      logger.Logger
	events   events.Publisher
	newID    func() string

	wg sync.WaitGroup
}

// NewDispatcher copies the command table. pub may be nil.
func NewDispatcher(commands map[string]string, runner Runner, log logger.Logger, pub events.Publisher) *Dispatcher {
	table := make(map[string]string, len(commands))
	keys := make([]string, 0, len(commands))
	for k, v := range commands {
		table[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Dispatcher{
		commands: table,
		keys:     keys,
		runner:   runner,
		log:      log,
		events:   pub,
		newID:    uuid.NewString,
	}
}

// Keys returns the configured command keys, sorted.
func (d *Dispatcher) Keys() []string { return append([]string(nil), d.keys...) }

// Lookup resolves key to an invocation. A blank command line counts as
// missing.
func (d *Dispatcher) Lookup(key string) (Invocation, bool) {
	line, ok := d.commands[key]
	if !ok {
		return Invocation{}, false
	}
	argv := Split(line)
	if len(argv) == 0 {
		return Invocation{}, false
	}
	return Invocation{ID: d.newID(), Key: key, Argv: argv}, true
}

// Dispatch launches the command for key and returns immediately. Unknown keys
// are logged and ignored. Nothing that happens in the command reaches the
// caller.
func (d *Dispatcher) Dispatch(key string) {
	inv, ok := d.Lookup(key)
	if !ok {
		d.log.Warnf("Command for '%s' not found in the configuration. Available commands: %v", key, d.Keys())
		d.events.Publish(events.CommandRejected{Key: key, Time: time.Now()})
		return
	}
	d.log.Infof("Found command for '%s': %s", key, d.commands[key])
	d.wg.Add(1)
	go d.run(inv)
}

// Wait blocks until every launched command has exited.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) run(inv Invocation) {
	defer d.wg.Done()
	start := time.Now()
	res := Result{ExitCode: -1}
	defer func() {
		if r := recover(); r != nil {
			res = Result{ExitCode: -1, Err: fmt.Errorf("runner panic: %v", r)}
			d.log.Errorf("[%s] Command '%s' panicked: %v", inv.ID, inv.Key, r)
		}
		if res.Duration == 0 {
			res.Duration = time.Since(start)
		}
		d.events.Publish(events.CommandFinished{
			InvocationID: inv.ID,
			Key:          inv.Key,
			ExitCode:     res.ExitCode,
			Err:          res.Err,
			Duration:     res.Duration,
			Time:         time.Now(),
		})
	}()

	d.log.Infof("[%s] Executing command: %s", inv.ID, inv)
	// Commands are not bound to the loop lifetime.
	res = d.runner.Run(context.Background(), inv)
	d.report(inv, res)
}

func (d *Dispatcher) report(inv Invocation, res Result) {
	switch {
	case res.Err != nil:
		d.log.Errorf("[%s] Failed to execute command '%s': %v", inv.ID, inv.Name(), res.Err)
	case res.ExitCode == 0:
		d.log.Infof("[%s] Command executed successfully: %s", inv.ID, inv.Name())
		if out := joinOutput(res.Stdout); out != "" {
			d.log.Debugf("[%s] Command output: %s", inv.ID, out)
		}
	default:
		d.log.Errorf("[%s] Command failed with return code %d: %s", inv.ID, res.ExitCode, inv.Name())
		if out := joinOutput(res.Stderr); out != "" {
			d.log.Errorf("[%s] Command error: %s", inv.ID, out)
		}
	}
}

func joinOutput(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
