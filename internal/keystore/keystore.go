// SPDX-License-Identifier: Apache-2.0

// Package keystore is the calling contract for native platform secret stores
// and the process-wide default driver through which every platform backend
// talks to them.
//
// The default driver is global, write-once configuration for the process.
// Installing a second, different driver replaces the first; a process that
// mixes platform stores backed by different drivers gets undefined results
// and is not supported.
package keystore

import (
	"errors"
	"log/slog"
	"sync"

	storeerr "github.com/akihiro/storectl/internal/errors"
	"github.com/akihiro/storectl/internal/secret"
)

// ErrNoEntry is the driver's "entry not found" signal.
var ErrNoEntry = errors.New("no matching entry found in secure storage")

// Store creates entries for (service, user) pairs.
type Store interface {
	NewEntry(service, user string) (Entry, error)
}

// Entry is a single credential slot in a platform store.
type Entry interface {
	GetPassword() (string, error)
	SetPassword(password string) error
	// DeleteCredential returns ErrNoEntry when nothing was stored.
	DeleteCredential() error
}

// Factory builds the driver once it is installed.
type Factory func() (Store, error)

var (
	mu        sync.Mutex
	installed string
	current   Store
)

// Install makes the driver called name the process default, building it with
// factory unless it is already the installed one.
func Install(name string, factory Factory) error {
	mu.Lock()
	defer mu.Unlock()
	if installed == name && current != nil {
		return nil
	}
	st, err := factory()
	if err != nil {
		return storeerr.Wrap(err, storeerr.CodeBackendFailure, "initialise "+name+" driver",
			storeerr.FieldOp("init"))
	}
	if installed != "" {
		slog.Warn("replacing default secret store driver", "previous", installed, "driver", name)
	} else {
		slog.Debug("installed default secret store driver", "driver", name)
	}
	installed, current = name, st
	return nil
}

// SetDefault installs st directly under name. Tests use it to plug in the
// in-memory driver.
func SetDefault(name string, st Store) {
	mu.Lock()
	defer mu.Unlock()
	installed, current = name, st
}

// Installed returns the name of the current default driver, or "".
func Installed() string {
	mu.Lock()
	defer mu.Unlock()
	return installed
}

// Reset forgets the default driver.
func Reset() {
	SetDefault("", nil)
}

func defaultStore() (Store, error) {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		return nil, storeerr.New(storeerr.CodeBackendFailure, "no default secret store driver installed",
			storeerr.FieldOp("create-entry"))
	}
	return current, nil
}

func entry(service, user string) (Entry, error) {
	st, err := defaultStore()
	if err != nil {
		return nil, err
	}
	e, err := st.NewEntry(service, user)
	if err != nil {
		return nil, storeerr.Wrap(err, storeerr.CodeBackendFailure, "create entry",
			storeerr.FieldOp("create-entry"))
	}
	return e, nil
}

// Read fetches the password stored for (service, user) from the default
// driver. A missing entry is a not-found error.
func Read(service, user string) (secret.Secret, error) {
	e, err := entry(service, user)
	if err != nil {
		return secret.Secret{}, err
	}
	password, err := e.GetPassword()
	if errors.Is(err, ErrNoEntry) {
		return secret.Secret{}, storeerr.New(storeerr.CodeSecretNotFound, "no password found for "+user+"@"+service,
			storeerr.FieldOp("get"))
	}
	if err != nil {
		return secret.Secret{}, storeerr.Wrap(err, storeerr.CodeBackendFailure, "get password",
			storeerr.FieldOp("get"))
	}
	return secret.New(password), nil
}

// Write creates or overwrites the password for (service, user).
func Write(service, user string, s secret.Secret) error {
	e, err := entry(service, user)
	if err != nil {
		return err
	}
	password, err := s.Reveal()
	if err != nil {
		return storeerr.Wrap(err, storeerr.CodeBackendFailure, "set password", storeerr.FieldOp("set"))
	}
	if err := e.SetPassword(password); err != nil {
		return storeerr.Wrap(err, storeerr.CodeBackendFailure, "set password", storeerr.FieldOp("set"))
	}
	return nil
}

// Remove deletes the password for (service, user) and reports whether one
// existed.
func Remove(service, user string) (bool, error) {
	e, err := entry(service, user)
	if err != nil {
		return false, err
	}
	err = e.DeleteCredential()
	if errors.Is(err, ErrNoEntry) {
		return false, nil
	}
	if err != nil {
		return false, storeerr.Wrap(err, storeerr.CodeBackendFailure, "delete password",
			storeerr.FieldOp("delete"))
	}
	return true, nil
}
