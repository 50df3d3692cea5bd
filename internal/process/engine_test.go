// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"testing"

	storeerr "github.com/akihiro/storectl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var echoSpec = Spec{Program: "helper", Args: []string{"set"}}

func TestEngineWithoutStdin(t *testing.T) {
	e := NewEngine(echoSpec, nil)

	out := e.Step(Start{})
	require.Equal(t, SpawnRequest{Spec: echoSpec}, out.Request)
	assert.Equal(t, Spawning, e.State())

	out = e.Step(Spawned{})
	assert.Equal(t, AwaitRequest{Stdout: true, Stderr: true}, out.Request)
	assert.Equal(t, AwaitingIO, e.State())

	out = e.Step(ReadChunk{Stream: Stdout, Data: []byte("abc")})
	assert.Equal(t, AwaitRequest{Stdout: true, Stderr: true}, out.Request)

	out = e.Step(ReadChunk{Stream: Stderr, EOF: true})
	assert.Equal(t, AwaitRequest{Stdout: true}, out.Request)

	out = e.Step(ReadChunk{Stream: Stdout, Data: []byte("\n"), EOF: true})
	assert.Equal(t, WaitRequest{}, out.Request)

	out = e.Step(Exited{Status: ExitStatus{Code: 0}})
	require.True(t, out.Done)
	require.NoError(t, out.Err)
	assert.Equal(t, "abc\n", string(out.Output.Stdout))
	assert.Empty(t, out.Output.Stderr)
	assert.True(t, out.Output.Status.Success())
	assert.Equal(t, Completed, e.State())

	again := e.Step(Start{})
	assert.True(t, again.Done)
}

func TestEngineStreamsStdinAcrossPartialWrites(t *testing.T) {
	e := NewEngine(echoSpec, []byte("0123456789"))

	out := e.Step(Start{})
	require.Equal(t, SpawnRequest{Spec: echoSpec, PipeStdin: true}, out.Request)

	out = e.Step(Spawned{})
	assert.Equal(t, AwaitRequest{Write: []byte("0123456789"), Stdout: true, Stderr: true}, out.Request)

	out = e.Step(Wrote{N: 4})
	assert.Equal(t, []byte("456789"), out.Request.(AwaitRequest).Write)

	// Output interleaves with the payload.
	out = e.Step(ReadChunk{Stream: Stdout, Data: []byte("progress")})
	assert.Equal(t, []byte("456789"), out.Request.(AwaitRequest).Write)

	out = e.Step(Wrote{N: 6})
	assert.Equal(t, CloseStdinRequest{}, out.Request)

	out = e.Step(StdinClosed{})
	assert.Equal(t, AwaitRequest{Stdout: true, Stderr: true}, out.Request)

	e.Step(ReadChunk{Stream: Stdout, EOF: true})
	out = e.Step(ReadChunk{Stream: Stderr, EOF: true})
	assert.Equal(t, WaitRequest{}, out.Request)

	out = e.Step(Exited{Status: ExitStatus{Code: 0}})
	require.True(t, out.Done)
	assert.Equal(t, "progress", string(out.Output.Stdout))
}

func TestEngineEmptyStdinIsClosedImmediately(t *testing.T) {
	e := NewEngine(echoSpec, []byte{})
	e.Step(Start{})
	out := e.Step(Spawned{})
	assert.Equal(t, CloseStdinRequest{}, out.Request)
}

func TestEngineSpawnFailure(t *testing.T) {
	e := NewEngine(echoSpec, nil)
	e.Step(Start{})
	out := e.Step(Failure{Err: errors.New("executable file not found in $PATH")})

	require.True(t, out.Done)
	assert.Equal(t, storeerr.CodeCommandSpawnFailure, storeerr.CodeOf(out.Err))
	assert.Equal(t, "helper", storeerr.FieldsOf(out.Err)["program"])
	assert.Equal(t, Failed, e.State())
}

func TestEngineIOFailures(t *testing.T) {
	for name, ev := range map[string]Event{
		"write": Wrote{Err: errors.New("bad file descriptor")},
		"read":  ReadChunk{Stream: Stderr, Err: errors.New("input/output error")},
		"wait":  Failure{Err: errors.New("no child processes")},
	} {
		t.Run(name, func(t *testing.T) {
			e := NewEngine(echoSpec, []byte("x"))
			e.Step(Start{})
			e.Step(Spawned{})
			out := e.Step(ev)
			require.True(t, out.Done)
			assert.Equal(t, storeerr.CodeCommandIOFailure, storeerr.CodeOf(out.Err))
		})
	}
}

func TestEngineRejectsOutOfOrderEvents(t *testing.T) {
	e := NewEngine(echoSpec, nil)
	out := e.Step(Exited{})
	require.True(t, out.Done)
	assert.Error(t, out.Err)
	assert.Equal(t, Failed, e.State())

	e = NewEngine(echoSpec, nil)
	e.Step(Start{})
	e.Step(Spawned{})
	out = e.Step(Exited{})
	require.True(t, out.Done)
	assert.Error(t, out.Err, "exit before the pipes drained")
}
