// SPDX-License-Identifier: Apache-2.0

// Package filestore keeps secrets in a JSON file for storectl-file-helper.
// Values are base64 encoded; the file is written atomically and guarded by
// an exclusive lock on a sibling ".lock" file so concurrent helper processes
// never interleave a read-modify-write.
package filestore

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// ErrNotFound is returned by Get when the key holds nothing.
var ErrNotFound = errors.New("secret not found")

// entry is one stored secret.
type entry struct {
	Value    string `json:"value"`
	Modified int64  `json:"modified"`
}

// fileData is the top-level JSON structure persisted to disk.
type fileData struct {
	Version int              `json:"version"`
	Secrets map[string]entry `json:"secrets"`
}

// Store is a handle on one secrets file. It holds no state between calls;
// every operation reloads the file under the lock.
type Store struct {
	path string
}

// Open returns a Store for path, creating its directory.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string {
	return s.path
}

// DefaultPath is $STORECTL_HELPER_STORE, else
// $XDG_DATA_HOME/storectl/helper.json, else ~/.local/share/storectl/helper.json.
func DefaultPath() string {
	if p := os.Getenv("STORECTL_HELPER_STORE"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "storectl", "helper.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".storectl", "helper.json")
	}
	return filepath.Join(home, ".local", "share", "storectl", "helper.json")
}

// Get returns the secret stored under key.
func (s *Store) Get(key string) ([]byte, error) {
	var out []byte
	err := s.withLock(func(d *fileData) (bool, error) {
		e, ok := d.Secrets[key]
		if !ok {
			return false, ErrNotFound
		}
		v, err := base64.StdEncoding.DecodeString(e.Value)
		if err != nil {
			return false, fmt.Errorf("decode secret %q: %w", key, err)
		}
		out = v
		return false, nil
	})
	return out, err
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key string, value []byte) error {
	return s.withLock(func(d *fileData) (bool, error) {
		d.Secrets[key] = entry{
			Value:    base64.StdEncoding.EncodeToString(value),
			Modified: time.Now().Unix(),
		}
		return true, nil
	})
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(key string) (bool, error) {
	var existed bool
	err := s.withLock(func(d *fileData) (bool, error) {
		_, existed = d.Secrets[key]
		delete(d.Secrets, key)
		return existed, nil
	})
	return existed, err
}

// Keys returns the stored keys, sorted.
func (s *Store) Keys() ([]string, error) {
	var keys []string
	err := s.withLock(func(d *fileData) (bool, error) {
		for k := range d.Secrets {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return false, nil
	})
	return keys, err
}

// withLock loads the file under the exclusive lock, runs fn, and saves when
// fn reports a change.
func (s *Store) withLock(fn func(d *fileData) (bool, error)) error {
	lock, err := os.OpenFile(s.path+".lock", os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer lock.Close()
	if err := lockFile(lock); err != nil {
		return fmt.Errorf("lock store: %w", err)
	}
	defer unlockFile(lock) //nolint:errcheck

	d, err := s.load()
	if err != nil {
		return err
	}
	changed, err := fn(d)
	if err != nil || !changed {
		return err
	}
	return s.save(d)
}

func (s *Store) load() (*fileData, error) {
	d := &fileData{Version: 1, Secrets: make(map[string]entry)}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	if len(data) == 0 {
		return d, nil
	}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("decode store: %w", err)
	}
	if d.Secrets == nil {
		d.Secrets = make(map[string]entry)
	}
	return d, nil
}

// save writes the file atomically via a temp file + rename.
func (s *Store) save(d *fileData) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write tmp store: %w", err)
	}
	return os.Rename(tmp, s.path)
}
