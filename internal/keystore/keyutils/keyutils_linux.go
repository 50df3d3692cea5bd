// SPDX-License-Identifier: Apache-2.0

//go:build linux

// Package keyutils is a keystore driver backed by the Linux kernel key
// retention service. Passwords are "user" keys linked into the session
// keyring; they live as long as the session does.
package keyutils

import (
	"errors"
	"fmt"

	"github.com/akihiro/storectl/internal/keystore"
	"github.com/akihiro/storectl/internal/secret"
	"golang.org/x/sys/unix"
)

const keyType = "user"

// ErrEmptySecret is returned when writing an empty secret.
var ErrEmptySecret = errors.New("linux keyutils cannot store an empty secret")

// Store links keys into Ring. The zero value uses the session keyring.
type Store struct {
	Ring int
}

func New() (keystore.Store, error) {
	return Store{Ring: unix.KEY_SPEC_SESSION_KEYRING}, nil
}

func (s Store) NewEntry(service, user string) (keystore.Entry, error) {
	if service == "" {
		return nil, errors.New("service must not be empty")
	}
	ring := s.Ring
	if ring == 0 {
		ring = unix.KEY_SPEC_SESSION_KEYRING
	}
	return entry{ring: ring, desc: Description(service, user)}, nil
}

// Description is the key description used for (service, user).
func Description(service, user string) string {
	return "storectl:" + user + "@" + service
}

type entry struct {
	ring int
	desc string
}

func (e entry) find() (int, error) {
	id, err := unix.KeyctlSearch(e.ring, keyType, e.desc, 0)
	if errors.Is(err, unix.ENOKEY) || errors.Is(err, unix.EKEYREVOKED) || errors.Is(err, unix.EKEYEXPIRED) {
		return 0, keystore.ErrNoEntry
	}
	if err != nil {
		return 0, fmt.Errorf("search key %q: %w", e.desc, err)
	}
	return id, nil
}

func (e entry) GetPassword() (string, error) {
	id, err := e.find()
	if err != nil {
		return "", err
	}
	for {
		size, err := unix.KeyctlBuffer(unix.KEYCTL_READ, id, nil, 0)
		if err != nil {
			return "", fmt.Errorf("read key %q: %w", e.desc, err)
		}
		buf := make([]byte, size)
		n, err := unix.KeyctlBuffer(unix.KEYCTL_READ, id, buf, 0)
		if err != nil {
			secret.WipeBytes(buf)
			return "", fmt.Errorf("read key %q: %w", e.desc, err)
		}
		if n > size {
			// Payload grew between the two calls.
			secret.WipeBytes(buf)
			continue
		}
		password := string(buf[:n])
		secret.WipeBytes(buf)
		return password, nil
	}
}

// SetPassword fails for the empty secret: the kernel rejects zero-length
// "user" key payloads.
func (e entry) SetPassword(password string) error {
	if password == "" {
		return ErrEmptySecret
	}
	payload := []byte(password)
	defer secret.WipeBytes(payload)
	if _, err := unix.AddKey(keyType, e.desc, payload, e.ring); err != nil {
		return fmt.Errorf("add key %q: %w", e.desc, err)
	}
	return nil
}

func (e entry) DeleteCredential() error {
	id, err := e.find()
	if err != nil {
		return err
	}
	if _, err := unix.KeyctlInt(unix.KEYCTL_UNLINK, id, e.ring, 0, 0); err != nil {
		return fmt.Errorf("unlink key %q: %w", e.desc, err)
	}
	return nil
}
