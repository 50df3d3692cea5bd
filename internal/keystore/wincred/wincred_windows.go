// SPDX-License-Identifier: Apache-2.0

//go:build windows

// Package wincred is a keystore driver backed by the Windows Credential
// Manager. Each password is a generic credential whose target name joins
// service and user.
package wincred

import (
	"errors"
	"fmt"

	"github.com/akihiro/storectl/internal/keystore"
	"github.com/danieljoos/wincred"
)

// maxBlobSize is the Credential Manager limit for a generic credential blob.
const maxBlobSize = 2560

type Store struct{}

func New() (keystore.Store, error) {
	return Store{}, nil
}

func (Store) NewEntry(service, user string) (keystore.Entry, error) {
	if service == "" {
		return nil, errors.New("service must not be empty")
	}
	return entry{target: Target(service, user), user: user}, nil
}

// Target is the credential target name for (service, user).
func Target(service, user string) string {
	return user + "." + service
}

type entry struct {
	target, user string
}

func (e entry) GetPassword() (string, error) {
	cred, err := wincred.GetGenericCredential(e.target)
	if errors.Is(err, wincred.ErrElementNotFound) {
		return "", keystore.ErrNoEntry
	}
	if err != nil {
		return "", fmt.Errorf("wincred get %q: %w", e.target, err)
	}
	return string(cred.CredentialBlob), nil
}

func (e entry) SetPassword(password string) error {
	if len(password) > maxBlobSize {
		return fmt.Errorf("secret too large for Windows Credential Manager (max %d bytes, got %d)", maxBlobSize, len(password))
	}
	cred := wincred.NewGenericCredential(e.target)
	cred.UserName = e.user
	cred.CredentialBlob = []byte(password)
	cred.Persist = wincred.PersistLocalMachine
	if err := cred.Write(); err != nil {
		return fmt.Errorf("wincred set %q: %w", e.target, err)
	}
	return nil
}

func (e entry) DeleteCredential() error {
	cred, err := wincred.GetGenericCredential(e.target)
	if errors.Is(err, wincred.ErrElementNotFound) {
		return keystore.ErrNoEntry
	}
	if err != nil {
		return fmt.Errorf("wincred delete %q: %w", e.target, err)
	}
	if err := cred.Delete(); err != nil {
		return fmt.Errorf("wincred delete %q: %w", e.target, err)
	}
	return nil
}
