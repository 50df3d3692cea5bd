// SPDX-License-Identifier: Apache-2.0

//go:build unix

package command

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	storeerr "github.com/akihiro/storectl/internal/errors"
	"github.com/akihiro/storectl/internal/process"
	"github.com/akihiro/storectl/internal/secret"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sh(script string, args ...string) process.Spec {
	return process.Spec{Program: "/bin/sh", Args: append([]string{"-c", script, "sh"}, args...)}
}

// fileBackend keeps the secret in a file through shell one-liners.
func fileBackend(t *testing.T) (*Backend, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret")
	b, err := New(Config{
		Get:    sh(`cat "$1" 2>/dev/null || { echo "no secret stored" >&2; exit 1; }`, path),
		Set:    sh(`cat > "$1"`, path),
		Delete: sh(`rm -f "$1"`, path),
	})
	require.NoError(t, err)
	return b, path
}

func TestShellRoundTrip(t *testing.T) {
	b, path := fileBackend(t)

	_, err := b.Read()
	require.Error(t, err)
	assert.Equal(t, storeerr.CodeCommandExitFailure, storeerr.CodeOf(err))
	assert.Contains(t, err.Error(), "no secret stored")

	require.NoError(t, b.Write(secret.New("hunter2")))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(raw), "no newline is appended on stdin")

	got, err := b.Read()
	require.NoError(t, err)
	assert.Equal(t, "hunter2", reveal(t, got))

	// A value written with a trailing newline loses exactly that one.
	require.NoError(t, b.Write(secret.New("hunter2\n\n")))
	got, err = b.Read()
	require.NoError(t, err)
	assert.Equal(t, "hunter2\n", reveal(t, got))

	removed, err := b.Remove()
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSetUnderBackpressure(t *testing.T) {
	dir := t.TempDir()
	b, err := New(Config{
		Get:    sh(`exit 0`),
		Set:    sh(`tee "$1"`, filepath.Join(dir, "big")),
		Delete: sh(`exit 0`),
	})
	require.NoError(t, err)

	payload := strings.Repeat("0123456789abcdef", 8<<20/16)
	require.NoError(t, b.Write(secret.New(payload)))

	raw, err := os.ReadFile(filepath.Join(dir, "big"))
	require.NoError(t, err)
	assert.Equal(t, len(payload), len(raw))
}

func TestMissingProgramIsSpawnError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-helper")
	b, err := New(Config{
		Get:    process.Spec{Program: missing},
		Set:    process.Spec{Program: missing},
		Delete: process.Spec{Program: missing},
	})
	require.NoError(t, err)

	_, err = b.Read()
	assert.Equal(t, storeerr.CodeCommandSpawnFailure, storeerr.CodeOf(err))
	err = b.Write(secret.New("x"))
	assert.Equal(t, storeerr.CodeCommandSpawnFailure, storeerr.CodeOf(err))
	_, err = b.Remove()
	assert.Equal(t, storeerr.CodeCommandSpawnFailure, storeerr.CodeOf(err))
}

// buildFileHelper compiles cmd/storectl-file-helper for this test run.
func buildFileHelper(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("builds a helper binary")
	}
	bin := filepath.Join(t.TempDir(), "storectl-file-helper")
	cmd := exec.Command("go", "build", "-o", bin, "../../../cmd/storectl-file-helper")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build file helper: %v\n%s", err, out)
	}
	return bin
}

func TestFileHelperContract(t *testing.T) {
	bin := buildFileHelper(t)
	store := filepath.Join(t.TempDir(), "helper.json")
	spec := func(action string) process.Spec {
		return process.Spec{Program: bin, Args: []string{"--file", store, action, "mail/me"}}
	}
	b, err := New(Config{Get: spec("get"), Set: spec("set"), Delete: spec("delete")})
	require.NoError(t, err)

	_, err = b.Read()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no secret stored for "mail/me"`)

	value := "p@ss\nword with \x01 control"
	require.NoError(t, b.Write(secret.New(value)))
	got, err := b.Read()
	require.NoError(t, err)
	assert.Equal(t, value, reveal(t, got))

	raw, err := os.ReadFile(store)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(raw, []byte("p@ss")), "helper stores values encoded")

	removed, err := b.Remove()
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = b.Remove()
	require.NoError(t, err)
	assert.True(t, removed, "delete of a missing key still exits 0")
}
