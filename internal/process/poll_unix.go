// SPDX-License-Identifier: Apache-2.0

//go:build unix

package process

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// maxWrite bounds a single stdin write so one Await never blocks for long
// on a slow reader.
const maxWrite = 64 << 10

// pollDriver services every pipe from the calling goroutine. Parent pipe
// ends are non-blocking and multiplexed with poll(2).
type pollDriver struct {
	cmd     *exec.Cmd
	stdinW  int
	stdoutR int
	stderrR int
	turn    int
	waited  bool
	buf     []byte
}

// NewPollDriver returns a single-threaded driver built on poll(2).
func NewPollDriver() Driver {
	return &pollDriver{stdinW: -1, stdoutR: -1, stderrR: -1, buf: make([]byte, 32<<10)}
}

// pipe creates a close-on-exec pipe. ForkLock keeps a concurrent fork from
// inheriting the fds before the flag is set.
func pipe() (r, w int, err error) {
	p := make([]int, 2)
	syscall.ForkLock.RLock()
	err = unix.Pipe(p)
	if err == nil {
		unix.CloseOnExec(p[0])
		unix.CloseOnExec(p[1])
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return -1, -1, fmt.Errorf("create pipe: %w", err)
	}
	return p[0], p[1], nil
}

func (d *pollDriver) Spawn(req SpawnRequest) Event {
	var childEnds []*os.File
	defer func() {
		for _, f := range childEnds {
			_ = f.Close()
		}
	}()

	cmd := exec.Command(req.Spec.Program, req.Spec.Args...)
	cmd.Env = req.Spec.environ()

	if req.PipeStdin {
		r, w, err := pipe()
		if err != nil {
			return Failure{Err: err}
		}
		d.stdinW = w
		f := os.NewFile(uintptr(r), "|0")
		childEnds = append(childEnds, f)
		cmd.Stdin = f
	}
	outR, outW, err := pipe()
	if err != nil {
		return Failure{Err: err}
	}
	d.stdoutR = outR
	stdout := os.NewFile(uintptr(outW), "|1")
	childEnds = append(childEnds, stdout)

	errR, errW, err := pipe()
	if err != nil {
		return Failure{Err: err}
	}
	d.stderrR = errR
	stderr := os.NewFile(uintptr(errW), "|2")
	childEnds = append(childEnds, stderr)

	cmd.Stdout, cmd.Stderr = stdout, stderr

	for _, fd := range []int{d.stdinW, d.stdoutR, d.stderrR} {
		if fd < 0 {
			continue
		}
		if err := unix.SetNonblock(fd, true); err != nil {
			return Failure{Err: fmt.Errorf("set non-blocking: %w", err)}
		}
	}

	if err := cmd.Start(); err != nil {
		return Failure{Err: err}
	}
	d.cmd = cmd
	return Spawned{}
}

func (d *pollDriver) Await(req AwaitRequest) Event {
	fds := make([]unix.PollFd, 0, 3)
	streams := make([]Stream, 0, 3) // 0 marks stdin
	if len(req.Write) > 0 && d.stdinW >= 0 {
		fds = append(fds, unix.PollFd{Fd: int32(d.stdinW), Events: unix.POLLOUT})
		streams = append(streams, 0)
	}
	if req.Stdout && d.stdoutR >= 0 {
		fds = append(fds, unix.PollFd{Fd: int32(d.stdoutR), Events: unix.POLLIN})
		streams = append(streams, Stdout)
	}
	if req.Stderr && d.stderrR >= 0 {
		fds = append(fds, unix.PollFd{Fd: int32(d.stderrR), Events: unix.POLLIN})
		streams = append(streams, Stderr)
	}
	if len(fds) == 0 {
		return Failure{Err: errors.New("await with no open pipes")}
	}

	for {
		for i := range fds {
			fds[i].Revents = 0
		}
		if _, err := unix.Poll(fds, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return Failure{Err: fmt.Errorf("poll: %w", err)}
		}
		// Start from a rotating position so a chatty stream cannot starve
		// the others.
		for i := range fds {
			j := (d.turn + i) % len(fds)
			if fds[j].Revents == 0 {
				continue
			}
			var ev Event
			var ok bool
			if streams[j] == 0 {
				ev, ok = d.write(req.Write)
			} else {
				ev, ok = d.read(streams[j])
			}
			if ok {
				d.turn = j + 1
				return ev
			}
		}
	}
}

func (d *pollDriver) write(p []byte) (Event, bool) {
	if len(p) > maxWrite {
		p = p[:maxWrite]
	}
	n, err := unix.Write(d.stdinW, p)
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
		return nil, false
	}
	if err != nil {
		return Wrote{Err: err}, true
	}
	return Wrote{N: n}, true
}

func (d *pollDriver) read(s Stream) (Event, bool) {
	fd := &d.stdoutR
	if s == Stderr {
		fd = &d.stderrR
	}
	n, err := unix.Read(*fd, d.buf)
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
		return nil, false
	}
	if err != nil {
		return ReadChunk{Stream: s, Err: err}, true
	}
	if n == 0 {
		_ = unix.Close(*fd)
		*fd = -1
		return ReadChunk{Stream: s, EOF: true}, true
	}
	return ReadChunk{Stream: s, Data: bytes.Clone(d.buf[:n])}, true
}

func (d *pollDriver) CloseStdin() Event {
	if d.stdinW < 0 {
		return StdinClosed{}
	}
	err := unix.Close(d.stdinW)
	d.stdinW = -1
	return StdinClosed{Err: err}
}

func (d *pollDriver) Wait() Event {
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

func (d *pollDriver) Close() error {
	var errs []error
	for _, fd := range []*int{&d.stdinW, &d.stdoutR, &d.stderrR} {
		if *fd < 0 {
			continue
		}
		if err := unix.Close(*fd); err != nil {
			errs = append(errs, err)
		}
		*fd = -1
	}
	if d.cmd != nil && !d.waited {
		_ = d.cmd.Process.Kill()
		_ = d.cmd.Wait()
		d.waited = true
	}
	return errors.Join(errs...)
}
