// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"log/slog"
)

// Driver performs the engine's requests for one child process. A driver is
// used for a single run and then closed.
type Driver interface {
	Spawn(req SpawnRequest) Event
	Await(req AwaitRequest) Event
	CloseStdin() Event
	Wait() Event
	// Close releases every pipe still open and, if the child has not been
	// reaped, kills and reaps it.
	Close() error
}

// Run drives a fresh engine for spec with d until it finishes. There is no
// timeout: a child that never exits blocks Run.
func Run(d Driver, spec Spec, stdin []byte) (Output, error) {
	defer func() {
		if err := d.Close(); err != nil {
			slog.Debug("release command resources", "program", spec.Program, "error", err)
		}
	}()

	e := NewEngine(spec, stdin)
	var ev Event = Start{}
	for {
		out := e.Step(ev)
		if out.Done {
			return out.Output, out.Err
		}
		switch req := out.Request.(type) {
		case SpawnRequest:
			ev = d.Spawn(req)
		case AwaitRequest:
			ev = d.Await(req)
		case CloseStdinRequest:
			ev = d.CloseStdin()
		case WaitRequest:
			ev = d.Wait()
		default:
			panic(fmt.Sprintf("process: unknown request %T", req))
		}
	}
}

// Executor runs a command to completion. The command backend depends on this
// seam rather than on a concrete driver.
type Executor interface {
	Execute(spec Spec, stdin []byte) (Output, error)
}

// LocalExecutor runs commands on this machine. NewDriver defaults to the
// platform's preferred driver.
type LocalExecutor struct {
	NewDriver func() Driver
}

func (x LocalExecutor) Execute(spec Spec, stdin []byte) (Output, error) {
	newDriver := x.NewDriver
	if newDriver == nil {
		newDriver = NewDefaultDriver
	}
	slog.Debug("running command", "command", spec.String(), "stdin", stdin != nil)
	out, err := Run(newDriver(), spec, stdin)
	if err == nil {
		slog.Debug("command finished", "program", spec.Program, "status", out.Status.String())
	}
	return out, err
}
