// SPDX-License-Identifier: Apache-2.0

// Package gokeyring is the keystore driver backed by github.com/zalando/go-keyring,
// which speaks the freedesktop Secret Service protocol through its own client.
package gokeyring

import (
	"errors"

	"github.com/akihiro/storectl/internal/keystore"
	"github.com/zalando/go-keyring"
)

// Store adapts the go-keyring package functions to keystore.Store.
type Store struct{}

func New() (keystore.Store, error) {
	return Store{}, nil
}

func (Store) NewEntry(service, user string) (keystore.Entry, error) {
	if service == "" {
		return nil, errors.New("service must not be empty")
	}
	return entry{service: service, user: user}, nil
}

type entry struct {
	service, user string
}

func (e entry) GetPassword() (string, error) {
	v, err := keyring.Get(e.service, e.user)
	return v, translate(err)
}

func (e entry) SetPassword(password string) error {
	return translate(keyring.Set(e.service, e.user, password))
}

func (e entry) DeleteCredential() error {
	return translate(keyring.Delete(e.service, e.user))
}

func translate(err error) error {
	if errors.Is(err, keyring.ErrNotFound) {
		return keystore.ErrNoEntry
	}
	return err
}
