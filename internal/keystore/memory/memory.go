// SPDX-License-Identifier: Apache-2.0

// Package memory is an in-process keystore driver. Nothing survives the
// process; it backs tests and dry runs.
package memory

import (
	"errors"
	"sync"

	"github.com/akihiro/storectl/internal/keystore"
)

// Store keeps passwords in a map keyed by service and user.
type Store struct {
	mu   sync.Mutex
	data map[[2]string]string
	// FailWith, when set, is returned by every entry operation.
	FailWith error
}

func New() *Store {
	return &Store{data: make(map[[2]string]string)}
}

func (s *Store) NewEntry(service, user string) (keystore.Entry, error) {
	if service == "" {
		return nil, errors.New("service must not be empty")
	}
	return &entry{store: s, key: [2]string{service, user}}, nil
}

// Len returns the number of stored passwords.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

type entry struct {
	store *Store
	key   [2]string
}

func (e *entry) GetPassword() (string, error) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	if e.store.FailWith != nil {
		return "", e.store.FailWith
	}
	v, ok := e.store.data[e.key]
	if !ok {
		return "", keystore.ErrNoEntry
	}
	return v, nil
}

func (e *entry) SetPassword(password string) error {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	if e.store.FailWith != nil {
		return e.store.FailWith
	}
	e.store.data[e.key] = password
	return nil
}

func (e *entry) DeleteCredential() error {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	if e.store.FailWith != nil {
		return e.store.FailWith
	}
	if _, ok := e.store.data[e.key]; !ok {
		return keystore.ErrNoEntry
	}
	delete(e.store.data, e.key)
	return nil
}
