// SPDX-License-Identifier: Apache-2.0

//go:build linux

package keyutils

import (
	"errors"
	"testing"

	"github.com/akihiro/storectl/internal/keystore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// processRing gives each test run a private keyring so nothing leaks into
// the user's session.
func processRing(t *testing.T) Store {
	t.Helper()
	id, err := unix.KeyctlGetKeyringID(unix.KEY_SPEC_PROCESS_KEYRING, true)
	if errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
		t.Skipf("kernel keyring unavailable: %v", err)
	}
	require.NoError(t, err)
	return Store{Ring: id}
}

func TestDescription(t *testing.T) {
	assert.Equal(t, "storectl:me@mail", Description("mail", "me"))
}

func TestEntryLifecycle(t *testing.T) {
	st := processRing(t)
	e, err := st.NewEntry("storectl-test", uuid.NewString())
	require.NoError(t, err)

	_, err = e.GetPassword()
	assert.ErrorIs(t, err, keystore.ErrNoEntry)
	assert.ErrorIs(t, e.DeleteCredential(), keystore.ErrNoEntry)

	require.NoError(t, e.SetPassword("hunter2\x00\n"))
	require.NoError(t, e.SetPassword("hunter3\x00\n"))
	got, err := e.GetPassword()
	require.NoError(t, err)
	assert.Equal(t, "hunter3\x00\n", got)

	require.NoError(t, e.DeleteCredential())
	_, err = e.GetPassword()
	assert.ErrorIs(t, err, keystore.ErrNoEntry)
}

func TestEmptySecretRejected(t *testing.T) {
	st := processRing(t)
	e, err := st.NewEntry("storectl-test", uuid.NewString())
	require.NoError(t, err)

	err = e.SetPassword("")
	require.ErrorIs(t, err, ErrEmptySecret)
	assert.Contains(t, err.Error(), "empty secret")

	_, err = e.GetPassword()
	assert.ErrorIs(t, err, keystore.ErrNoEntry)
}

func TestEmptyServiceRejected(t *testing.T) {
	_, err := Store{}.NewEntry("", "me")
	assert.Error(t, err)
}
