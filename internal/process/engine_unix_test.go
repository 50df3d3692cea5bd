// SPDX-License-Identifier: Apache-2.0

//go:build unix

package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestEngineBrokenPipeDefersToExitStatus(t *testing.T) {
	e := NewEngine(echoSpec, []byte("payload"))
	e.Step(Start{})
	e.Step(Spawned{})

	out := e.Step(Wrote{Err: unix.EPIPE})
	assert.Equal(t, CloseStdinRequest{}, out.Request)

	out = e.Step(StdinClosed{Err: unix.EPIPE})
	assert.Equal(t, AwaitRequest{Stdout: true, Stderr: true}, out.Request)

	e.Step(ReadChunk{Stream: Stdout, EOF: true})
	e.Step(ReadChunk{Stream: Stderr, Data: []byte("refused"), EOF: true})
	out = e.Step(Exited{Status: ExitStatus{Code: 2}})
	require.True(t, out.Done)
	require.NoError(t, out.Err)
	assert.Equal(t, 2, out.Output.Status.Code)
	assert.Equal(t, "refused", string(out.Output.Stderr))
}
