// SPDX-License-Identifier: Apache-2.0

package keystore_test

import (
	"errors"
	"testing"

	storeerr "github.com/akihiro/storectl/internal/errors"
	"github.com/akihiro/storectl/internal/keystore"
	"github.com/akihiro/storectl/internal/keystore/memory"
	"github.com/akihiro/storectl/internal/secret"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useMemory(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	keystore.SetDefault("memory", st)
	t.Cleanup(keystore.Reset)
	return st
}

func TestRoundTripIsByteExact(t *testing.T) {
	useMemory(t)
	value := "p@ss word\n\r\n with trailing newlines\n\n"

	require.NoError(t, keystore.Write("mail", "me", secret.New(value)))
	got, err := keystore.Read("mail", "me")
	require.NoError(t, err)
	revealed, err := got.Reveal()
	require.NoError(t, err)
	assert.Equal(t, value, revealed)
}

func TestReadMissingIsNotFound(t *testing.T) {
	useMemory(t)
	_, err := keystore.Read("mail", "nobody")
	require.Error(t, err)
	assert.Equal(t, storeerr.CodeSecretNotFound, storeerr.CodeOf(err))
	assert.EqualError(t, err, "no password found for nobody@mail")
}

func TestRemoveIsIdempotent(t *testing.T) {
	useMemory(t)

	removed, err := keystore.Remove("mail", "me")
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, keystore.Write("mail", "me", secret.New("x")))
	removed, err = keystore.Remove("mail", "me")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = keystore.Remove("mail", "me")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDriverErrorsNameTheOperation(t *testing.T) {
	st := useMemory(t)
	st.FailWith = errors.New("permission denied")

	_, err := keystore.Read("mail", "me")
	assert.Equal(t, storeerr.CodeBackendFailure, storeerr.CodeOf(err))
	assert.Equal(t, "get", storeerr.FieldsOf(err)["op"])
	assert.Contains(t, err.Error(), "permission denied")

	err = keystore.Write("mail", "me", secret.New("x"))
	assert.Equal(t, "set", storeerr.FieldsOf(err)["op"])

	_, err = keystore.Remove("mail", "me")
	assert.Equal(t, storeerr.CodeBackendFailure, storeerr.CodeOf(err))
	assert.Equal(t, "delete", storeerr.FieldsOf(err)["op"])
}

func TestCreateEntryFailure(t *testing.T) {
	useMemory(t)
	_, err := keystore.Read("", "me")
	require.Error(t, err)
	assert.Equal(t, "create-entry", storeerr.FieldsOf(err)["op"])
}

func TestNoDriverInstalled(t *testing.T) {
	keystore.Reset()
	_, err := keystore.Read("mail", "me")
	assert.Equal(t, storeerr.CodeBackendFailure, storeerr.CodeOf(err))
}

func TestInstallIsIdempotentPerName(t *testing.T) {
	t.Cleanup(keystore.Reset)
	keystore.Reset()
	calls := 0
	factory := func() (keystore.Store, error) {
		calls++
		return memory.New(), nil
	}

	require.NoError(t, keystore.Install("memory", factory))
	require.NoError(t, keystore.Install("memory", factory))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "memory", keystore.Installed())

	require.NoError(t, keystore.Install("other", factory))
	assert.Equal(t, 2, calls)
	assert.Equal(t, "other", keystore.Installed())
}

func TestInstallFactoryError(t *testing.T) {
	t.Cleanup(keystore.Reset)
	keystore.Reset()
	err := keystore.Install("broken", func() (keystore.Store, error) {
		return nil, errors.New("no session bus")
	})
	require.Error(t, err)
	assert.Equal(t, storeerr.CodeBackendFailure, storeerr.CodeOf(err))
	assert.Empty(t, keystore.Installed())
}
