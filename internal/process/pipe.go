// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
)

// pipeDriver answers the same requests with a goroutine per pipe and a
// select over their results. It works wherever os/exec does.
type pipeDriver struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  chan ReadChunk
	stderr  chan ReadChunk
	wrote   chan Wrote
	writing bool
	waited  bool

	done     chan struct{}
	doneOnce sync.Once
}

// NewPipeDriver returns the portable goroutine-based driver.
func NewPipeDriver() Driver {
	return &pipeDriver{done: make(chan struct{})}
}

func (d *pipeDriver) Spawn(req SpawnRequest) Event {
	cmd := exec.Command(req.Spec.Program, req.Spec.Args...)
	cmd.Env = req.Spec.environ()

	if req.PipeStdin {
		w, err := cmd.StdinPipe()
		if err != nil {
			return Failure{Err: err}
		}
		d.stdin = w
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Failure{Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Failure{Err: err}
	}
	if err := cmd.Start(); err != nil {
		d.stdin = nil
		return Failure{Err: err}
	}
	d.cmd = cmd
	d.stdout = d.pump(Stdout, stdout)
	d.stderr = d.pump(Stderr, stderr)
	return Spawned{}
}

func (d *pipeDriver) pump(s Stream, r io.Reader) chan ReadChunk {
	ch := make(chan ReadChunk)
	send := func(c ReadChunk) bool {
		select {
		case ch <- c:
			return true
		case <-d.done:
			return false
		}
	}
	go func() {
		for {
			buf := make([]byte, 32<<10)
			n, err := r.Read(buf)
			if n > 0 && !send(ReadChunk{Stream: s, Data: buf[:n]}) {
				return
			}
			switch {
			case errors.Is(err, io.EOF):
				send(ReadChunk{Stream: s, EOF: true})
				return
			case err != nil:
				send(ReadChunk{Stream: s, Err: err})
				return
			}
		}
	}()
	return ch
}

func (d *pipeDriver) Await(req AwaitRequest) Event {
	if len(req.Write) > 0 && !d.writing && d.stdin != nil {
		d.writing = true
		ch := make(chan Wrote, 1)
		d.wrote = ch
		w, p := d.stdin, req.Write
		go func() {
			n, err := w.Write(p)
			ch <- Wrote{N: n, Err: err}
		}()
	}

	var wrote chan Wrote
	var stdout, stderr chan ReadChunk
	if d.writing {
		wrote = d.wrote
	}
	if req.Stdout {
		stdout = d.stdout
	}
	if req.Stderr {
		stderr = d.stderr
	}
	if wrote == nil && stdout == nil && stderr == nil {
		return Failure{Err: errors.New("await with no open pipes")}
	}

	select {
	case w := <-wrote:
		d.writing = false
		return w
	case c := <-stdout:
		return c
	case c := <-stderr:
		return c
	}
}

func (d *pipeDriver) CloseStdin() Event {
	if d.stdin == nil {
		return StdinClosed{}
	}
	err := d.stdin.Close()
	d.stdin = nil
	if errors.Is(err, os.ErrClosed) {
		err = nil
	}
	return StdinClosed{Err: err}
}

func (d *pipeDriver) Wait() Event {
	if d.cmd == nil {
		return Failure{Err: errors.New("wait before spawn")}
	}
	err := d.cmd.Wait()
	d.waited = true
	if d.cmd.ProcessState != nil {
		return Exited{Status: exitStatus(d.cmd.ProcessState)}
	}
	return Failure{Err: err}
}

func (d *pipeDriver) Close() error {
	d.doneOnce.Do(func() { close(d.done) })
	var err error
	if d.stdin != nil {
		err = d.stdin.Close()
		d.stdin = nil
	}
	if d.cmd != nil && !d.waited {
		_ = d.cmd.Process.Kill()
		_ = d.cmd.Wait()
		d.waited = true
	}
	if errors.Is(err, os.ErrClosed) {
		err = nil
	}
	return err
}

func exitStatus(ps *os.ProcessState) ExitStatus {
	return ExitStatus{Code: ps.ExitCode(), Desc: ps.String()}
}
