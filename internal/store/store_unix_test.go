// SPDX-License-Identifier: Apache-2.0

//go:build unix

package store

import (
	"path/filepath"
	"testing"

	"github.com/akihiro/storectl/internal/backend/command"
	"github.com/akihiro/storectl/internal/feature"
	"github.com/akihiro/storectl/internal/process"
	"github.com/akihiro/storectl/internal/secret"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreDispatchesToCommand(t *testing.T) {
	enable(t, feature.Command)
	env := map[string]string{"SECRET_FILE": filepath.Join(t.TempDir(), "secret")}
	sh := func(script string) process.Spec {
		return process.Spec{Program: "sh", Args: []string{"-c", script}, Env: env}
	}
	st, err := Resolve(Record{Kind: KindCommand, Command: &command.Config{
		Get:    sh(`cat "$SECRET_FILE"`),
		Set:    sh(`cat > "$SECRET_FILE"`),
		Delete: sh(`rm -f "$SECRET_FILE"`),
	}})
	require.NoError(t, err)

	require.NoError(t, st.Write(secret.New("hunter2")))
	got, err := st.Read()
	require.NoError(t, err)
	v, err := got.Reveal()
	require.NoError(t, err)
	assert.Equal(t, "hunter2", v)

	removed, err := st.Remove()
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = st.Read()
	assert.Error(t, err)
}
