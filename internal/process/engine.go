// SPDX-License-Identifier: Apache-2.0

// Package process runs external commands for the command backend.
//
// The Engine is a resumable state machine that decides what I/O a child
// process needs next; a Driver performs it. Each call to Engine.Step takes
// the outcome of the previous request and yields the next one, until the
// engine is done. The engine streams the stdin payload while draining stdout
// and stderr, advancing on whichever becomes ready first, so neither side
// can stall on a full pipe.
package process

import (
	"bytes"
	"fmt"

	storeerr "github.com/akihiro/storectl/internal/errors"
)

// State is the engine's position in the run.
type State int

const (
	Spawning State = iota
	AwaitingIO
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Spawning:
		return "spawning"
	case AwaitingIO:
		return "awaiting-io"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stream identifies a child output pipe.
type Stream int

const (
	Stdout Stream = iota + 1
	Stderr
)

func (s Stream) String() string {
	if s == Stdout {
		return "stdout"
	}
	return "stderr"
}

// Request is what the engine needs from the driver next.
type Request interface{ request() }

// SpawnRequest starts the child. PipeStdin asks for a stdin pipe; without
// it the child reads from the null device.
type SpawnRequest struct {
	Spec      Spec
	PipeStdin bool
}

// AwaitRequest waits for the first of: Write can accept bytes on stdin (when
// non-empty), stdout is readable (when Stdout), stderr is readable (when
// Stderr). The driver performs that one operation and reports it.
type AwaitRequest struct {
	Write  []byte
	Stdout bool
	Stderr bool
}

// CloseStdinRequest closes the parent's end of the stdin pipe.
type CloseStdinRequest struct{}

// WaitRequest reaps the child once every pipe is done.
type WaitRequest struct{}

func (SpawnRequest) request()      {}
func (AwaitRequest) request()      {}
func (CloseStdinRequest) request() {}
func (WaitRequest) request()       {}

// Event is the driver's answer to a request.
type Event interface{ event() }

// Start primes a fresh engine.
type Start struct{}

// Spawned reports a successful spawn.
type Spawned struct{}

// Wrote reports a write of N payload bytes to stdin. Err is set when the
// write failed; a broken pipe means the child stopped reading.
type Wrote struct {
	N   int
	Err error
}

// ReadChunk reports data read from one output stream, or its end.
type ReadChunk struct {
	Stream Stream
	Data   []byte
	EOF    bool
	Err    error
}

type StdinClosed struct {
	Err error
}

// Exited reports the child's exit status.
type Exited struct {
	Status ExitStatus
}

// Failure reports that a spawn or wait request could not be carried out.
type Failure struct {
	Err error
}

func (Start) event()       {}
func (Spawned) event()     {}
func (Wrote) event()       {}
func (ReadChunk) event()   {}
func (StdinClosed) event() {}
func (Exited) event()      {}
func (Failure) event()     {}

// ExitStatus is how the child ended. Code is -1 when it was killed by a
// signal.
type ExitStatus struct {
	Code int
	Desc string
}

func (s ExitStatus) Success() bool {
	return s.Code == 0
}

func (s ExitStatus) String() string {
	if s.Desc != "" {
		return s.Desc
	}
	return fmt.Sprintf("exit status %d", s.Code)
}

// Output is everything a finished child produced.
type Output struct {
	Status ExitStatus
	Stdout []byte
	Stderr []byte
}

// Outcome is the result of one Step: the next Request, or Done with either
// Output or Err.
type Outcome struct {
	Request Request
	Done    bool
	Output  Output
	Err     error
}

// Engine drives one child process from spawn to exit.
type Engine struct {
	spec      Spec
	payload   []byte
	pipeStdin bool

	state      State
	written    int
	stdinOpen  bool
	stdoutOpen bool
	stderrOpen bool
	stdout     bytes.Buffer
	stderr     bytes.Buffer
	status     ExitStatus
	err        error
}

// NewEngine prepares a run of spec. A nil stdin leaves the child without a
// stdin pipe; any other slice, empty included, is written and then closed.
func NewEngine(spec Spec, stdin []byte) *Engine {
	return &Engine{spec: spec, payload: stdin, pipeStdin: stdin != nil}
}

func (e *Engine) State() State {
	return e.state
}

// Step feeds ev to the engine and returns what happens next. The first call
// takes Start.
func (e *Engine) Step(ev Event) Outcome {
	switch e.state {
	case Completed:
		return Outcome{Done: true, Output: e.output()}
	case Failed:
		return Outcome{Done: true, Err: e.err}
	case Spawning:
		return e.stepSpawning(ev)
	default:
		return e.stepIO(ev)
	}
}

func (e *Engine) stepSpawning(ev Event) Outcome {
	switch ev := ev.(type) {
	case Start:
		return Outcome{Request: SpawnRequest{Spec: e.spec, PipeStdin: e.pipeStdin}}
	case Spawned:
		e.state = AwaitingIO
		e.stdinOpen = e.pipeStdin
		e.stdoutOpen, e.stderrOpen = true, true
		return e.next()
	case Failure:
		return e.fail(storeerr.Wrap(ev.Err, storeerr.CodeCommandSpawnFailure,
			"spawn "+e.spec.String(), storeerr.FieldProgram(e.spec.Program)))
	default:
		return e.unexpected(ev)
	}
}

func (e *Engine) stepIO(ev Event) Outcome {
	switch ev := ev.(type) {
	case Wrote:
		if ev.Err != nil {
			if !isBrokenPipe(ev.Err) {
				return e.fail(e.ioError(ev.Err, "write stdin"))
			}
			// The child is done reading; its exit status decides the result.
			e.written = len(e.payload)
			return e.next()
		}
		e.written += ev.N
	case ReadChunk:
		if ev.Err != nil {
			return e.fail(e.ioError(ev.Err, "read "+ev.Stream.String()))
		}
		buf := &e.stdout
		if ev.Stream == Stderr {
			buf = &e.stderr
		}
		buf.Write(ev.Data)
		if ev.EOF {
			if ev.Stream == Stderr {
				e.stderrOpen = false
			} else {
				e.stdoutOpen = false
			}
		}
	case StdinClosed:
		e.stdinOpen = false
		if ev.Err != nil && !isBrokenPipe(ev.Err) {
			return e.fail(e.ioError(ev.Err, "close stdin"))
		}
	case Exited:
		if e.stdinOpen || e.stdoutOpen || e.stderrOpen {
			return e.unexpected(ev)
		}
		e.status = ev.Status
		e.state = Completed
		return Outcome{Done: true, Output: e.output()}
	case Failure:
		return e.fail(e.ioError(ev.Err, "wait"))
	default:
		return e.unexpected(ev)
	}
	return e.next()
}

// next picks the request for the current pipe states: finish stdin first,
// then drain, then reap.
func (e *Engine) next() Outcome {
	if e.stdinOpen && e.written >= len(e.payload) {
		return Outcome{Request: CloseStdinRequest{}}
	}
	if e.stdinOpen || e.stdoutOpen || e.stderrOpen {
		req := AwaitRequest{Stdout: e.stdoutOpen, Stderr: e.stderrOpen}
		if e.stdinOpen {
			req.Write = e.payload[e.written:]
		}
		return Outcome{Request: req}
	}
	return Outcome{Request: WaitRequest{}}
}

func (e *Engine) output() Output {
	return Output{Status: e.status, Stdout: e.stdout.Bytes(), Stderr: e.stderr.Bytes()}
}

func (e *Engine) fail(err error) Outcome {
	e.state = Failed
	e.err = err
	return Outcome{Done: true, Err: err}
}

func (e *Engine) ioError(err error, what string) error {
	return storeerr.Wrap(err, storeerr.CodeCommandIOFailure, what+" of "+e.spec.Program,
		storeerr.FieldProgram(e.spec.Program))
}

func (e *Engine) unexpected(ev Event) Outcome {
	return e.fail(storeerr.New(storeerr.CodeCommandIOFailure,
		fmt.Sprintf("unexpected %T while %s", ev, e.state),
		storeerr.FieldProgram(e.spec.Program)))
}
