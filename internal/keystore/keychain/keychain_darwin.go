// SPDX-License-Identifier: Apache-2.0

//go:build darwin

// Package keychain is a keystore driver backed by the macOS login keychain.
// Passwords are generic password items keyed by service and account.
package keychain

import (
	"errors"
	"fmt"

	"github.com/akihiro/storectl/internal/keystore"
	gokeychain "github.com/keybase/go-keychain"
)

type Store struct{}

func New() (keystore.Store, error) {
	return Store{}, nil
}

func (Store) NewEntry(service, user string) (keystore.Entry, error) {
	if service == "" {
		return nil, errors.New("service must not be empty")
	}
	return entry{service: service, account: user}, nil
}

type entry struct {
	service, account string
}

func (e entry) query() gokeychain.Item {
	q := gokeychain.NewItem()
	q.SetSecClass(gokeychain.SecClassGenericPassword)
	q.SetService(e.service)
	q.SetAccount(e.account)
	return q
}

func (e entry) GetPassword() (string, error) {
	q := e.query()
	q.SetMatchLimit(gokeychain.MatchLimitOne)
	q.SetReturnData(true)
	results, err := gokeychain.QueryItem(q)
	if errors.Is(err, gokeychain.ErrorItemNotFound) || (err == nil && len(results) == 0) {
		return "", keystore.ErrNoEntry
	}
	if err != nil {
		return "", fmt.Errorf("keychain get %q/%q: %w", e.service, e.account, err)
	}
	return string(results[0].Data), nil
}

func (e entry) SetPassword(password string) error {
	item := gokeychain.NewGenericPassword(e.service, e.account, "", []byte(password), "")
	item.SetSynchronizable(gokeychain.SynchronizableNo)
	item.SetAccessible(gokeychain.AccessibleWhenUnlocked)

	err := gokeychain.AddItem(item)
	if errors.Is(err, gokeychain.ErrorDuplicateItem) {
		update := gokeychain.NewItem()
		update.SetData([]byte(password))
		err = gokeychain.UpdateItem(e.query(), update)
	}
	if err != nil {
		return fmt.Errorf("keychain set %q/%q: %w", e.service, e.account, err)
	}
	return nil
}

func (e entry) DeleteCredential() error {
	err := gokeychain.DeleteGenericPasswordItem(e.service, e.account)
	if errors.Is(err, gokeychain.ErrorItemNotFound) {
		return keystore.ErrNoEntry
	}
	if err != nil {
		return fmt.Errorf("keychain delete %q/%q: %w", e.service, e.account, err)
	}
	return nil
}
