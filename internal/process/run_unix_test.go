// SPDX-License-Identifier: Apache-2.0

//go:build unix

package process

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	storeerr "github.com/akihiro/storectl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var drivers = map[string]func() Driver{
	"poll": NewPollDriver,
	"pipe": NewPipeDriver,
}

func sh(script string) Spec {
	return Spec{Program: "/bin/sh", Args: []string{"-c", script}}
}

func TestRunCapturesBothStreams(t *testing.T) {
	for name, newDriver := range drivers {
		t.Run(name, func(t *testing.T) {
			out, err := Run(newDriver(), sh(`printf 'out\n'; printf 'err' >&2; exit 3`), nil)
			require.NoError(t, err)
			assert.Equal(t, 3, out.Status.Code)
			assert.False(t, out.Status.Success())
			assert.Equal(t, "out\n", string(out.Stdout))
			assert.Equal(t, "err", string(out.Stderr))
		})
	}
}

func TestRunWithoutStdinReadsNullDevice(t *testing.T) {
	for name, newDriver := range drivers {
		t.Run(name, func(t *testing.T) {
			out, err := Run(newDriver(), sh(`cat; echo done`), nil)
			require.NoError(t, err)
			assert.True(t, out.Status.Success())
			assert.Equal(t, "done\n", string(out.Stdout))
		})
	}
}

func TestRunStreamsStdin(t *testing.T) {
	for name, newDriver := range drivers {
		t.Run(name, func(t *testing.T) {
			out, err := Run(newDriver(), sh(`cat`), []byte("hunter2"))
			require.NoError(t, err)
			assert.True(t, out.Status.Success())
			assert.Equal(t, "hunter2", string(out.Stdout))
		})
	}
}

func TestRunEmptyStdinIsClosed(t *testing.T) {
	for name, newDriver := range drivers {
		t.Run(name, func(t *testing.T) {
			out, err := Run(newDriver(), sh(`wc -c | tr -d ' '`), []byte{})
			require.NoError(t, err)
			assert.Equal(t, "0\n", string(out.Stdout))
		})
	}
}

// A child that echoes a multi-megabyte payload back on stdout and writes
// diagnostics to stderr fills every pipe buffer many times over. The run
// only finishes if stdin writes and output reads interleave.
func TestRunLargePayloadUnderBackpressure(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789abcdef"), 4<<20/16)
	for name, newDriver := range drivers {
		t.Run(name, func(t *testing.T) {
			out, err := Run(newDriver(), sh(`tee /dev/stderr`), payload)
			require.NoError(t, err)
			assert.True(t, out.Status.Success())
			assert.Equal(t, len(payload), len(out.Stdout))
			assert.True(t, bytes.Equal(payload, out.Stdout))
			assert.Equal(t, len(payload), len(out.Stderr))
		})
	}
}

func TestRunChildIgnoringStdin(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 1<<20)
	for name, newDriver := range drivers {
		t.Run(name, func(t *testing.T) {
			out, err := Run(newDriver(), sh(`echo nope >&2; exit 4`), payload)
			require.NoError(t, err)
			assert.Equal(t, 4, out.Status.Code)
			assert.Equal(t, "nope\n", string(out.Stderr))
		})
	}
}

func TestRunSpawnFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	for name, newDriver := range drivers {
		t.Run(name, func(t *testing.T) {
			_, err := Run(newDriver(), Spec{Program: missing}, []byte("x"))
			require.Error(t, err)
			assert.Equal(t, storeerr.CodeCommandSpawnFailure, storeerr.CodeOf(err))
			assert.Equal(t, missing, storeerr.FieldsOf(err)["program"])
		})
	}
}

func TestRunNotExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho hi\n"), 0o600))

	_, err := Run(NewDefaultDriver(), Spec{Program: path}, nil)
	assert.Equal(t, storeerr.CodeCommandSpawnFailure, storeerr.CodeOf(err))
}

func TestRunSignalledChild(t *testing.T) {
	out, err := Run(NewDefaultDriver(), sh(`kill -9 $$`), nil)
	require.NoError(t, err)
	assert.Equal(t, -1, out.Status.Code)
	assert.False(t, out.Status.Success())
	assert.Contains(t, out.Status.String(), "killed")
}

func TestRunEnvironmentOverrides(t *testing.T) {
	t.Setenv("STORECTL_INHERITED", "parent")
	spec := sh(`printf '%s %s' "$STORECTL_INHERITED" "$STORECTL_OVERRIDE"`)
	spec.Env = map[string]string{"STORECTL_OVERRIDE": "child value"}

	for name, newDriver := range drivers {
		t.Run(name, func(t *testing.T) {
			out, err := Run(newDriver(), spec, nil)
			require.NoError(t, err)
			assert.Equal(t, "parent child value", string(out.Stdout))
		})
	}
}

func TestLocalExecutorUsesDefaultDriver(t *testing.T) {
	out, err := LocalExecutor{}.Execute(sh(`printf ok`), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", strings.TrimSpace(string(out.Stdout)))
}
