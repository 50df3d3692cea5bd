// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errw bytes.Buffer
	code := run(args, strings.NewReader(stdin), &out, &errw)
	return result{code: code, stdout: out.String(), stderr: errw.String()}
}

// isolate points every default path at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("STORECTL_CONFIG", "")
	t.Setenv("STORECTL_JSON", "")
	t.Setenv("STORECTL_LOG_LEVEL", "")
	return dir
}

func TestHelp(t *testing.T) {
	isolate(t)
	r := runCLI(t, "", "--help")
	require.Equal(t, 0, r.code, r.stderr)
	for _, want := range []string{"password", "store", "manuals", "version", "--config", "--json", "--no-color"} {
		assert.Contains(t, r.stdout, want)
	}
}

func TestVersionListsFeatures(t *testing.T) {
	isolate(t)
	r := runCLI(t, "", "version")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "storectl dev")
	assert.Contains(t, r.stdout, "features:")

	r = runCLI(t, "", "--json", "version")
	require.Equal(t, 0, r.code, r.stderr)
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &v))
	assert.Equal(t, "dev", v["version"])
}

func TestNoConfiguration(t *testing.T) {
	isolate(t)
	r := runCLI(t, "", "store", "list")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "No stores configured.\n", r.stdout)
}

func TestUnknownStore(t *testing.T) {
	isolate(t)
	r := runCLI(t, "", "password", "read", "nope")
	assert.Equal(t, 1, r.code)
	assert.Empty(t, r.stdout)
	assert.Equal(t, "Error: store \"nope\" not found\n", r.stderr)
}

func TestUnknownStoreJSON(t *testing.T) {
	isolate(t)
	r := runCLI(t, "", "--json", "password", "remove", "nope")
	assert.Equal(t, 1, r.code)
	assert.Empty(t, r.stdout)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.stderr), &body), r.stderr)
	assert.Equal(t, "config.store.not_found", body.Error.Code)
}

func TestMissingExplicitConfig(t *testing.T) {
	dir := isolate(t)
	r := runCLI(t, "", "--json", "--config", filepath.Join(dir, "absent.toml"), "store", "list")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, `"code":"config.load.failure"`)
}

func TestInvalidConfigKind(t *testing.T) {
	dir := isolate(t)
	p := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(p, []byte("[stores.x]\nkind = \"command\"\n"), 0o600))

	r := runCLI(t, "", "--config", p, "store", "list")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, `missing "command" configuration`)
}

func TestBadArguments(t *testing.T) {
	isolate(t)
	r := runCLI(t, "", "password", "read")
	assert.Equal(t, 1, r.code)
	assert.True(t, strings.HasPrefix(r.stderr, "Error: "), r.stderr)

	r = runCLI(t, "", "--log-level", "loud", "store", "list")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "invalid log level")
}

func TestManuals(t *testing.T) {
	isolate(t)
	dir := filepath.Join(t.TempDir(), "man")
	r := runCLI(t, "", "manuals", dir)
	require.Equal(t, 0, r.code, r.stderr)

	for _, page := range []string{"storectl.1", "storectl-password-read.1", "storectl-store-show.1"} {
		_, err := os.Stat(filepath.Join(dir, page))
		assert.NoError(t, err, page)
	}
}
