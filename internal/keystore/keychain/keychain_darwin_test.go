// SPDX-License-Identifier: Apache-2.0

//go:build darwin

package keychain

import (
	"os"
	"testing"

	"github.com/akihiro/storectl/internal/keystore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The login keychain may raise an access dialog, so this only runs on request.
func TestEntryLifecycle(t *testing.T) {
	if os.Getenv("STORECTL_TEST_KEYCHAIN") == "" {
		t.Skip("set STORECTL_TEST_KEYCHAIN=1 to run against the login keychain")
	}
	e, err := Store{}.NewEntry("storectl-test", uuid.NewString())
	require.NoError(t, err)

	_, err = e.GetPassword()
	assert.ErrorIs(t, err, keystore.ErrNoEntry)

	require.NoError(t, e.SetPassword("hunter2"))
	require.NoError(t, e.SetPassword("hunter3"))
	got, err := e.GetPassword()
	require.NoError(t, err)
	assert.Equal(t, "hunter3", got)

	require.NoError(t, e.DeleteCredential())
	assert.ErrorIs(t, e.DeleteCredential(), keystore.ErrNoEntry)
}
