// SPDX-License-Identifier: Apache-2.0

// Package store resolves configured store records into backends.
//
// A Record names its kind and carries one companion block per kind; only
// the block matching the kind is read. Resolve turns a Record into a Store,
// which dispatches every operation to exactly one backend variant.
package store

import (
	"log/slog"
	"maps"
	"slices"
	"strconv"

	"github.com/akihiro/storectl/internal/backend"
	"github.com/akihiro/storectl/internal/backend/command"
	"github.com/akihiro/storectl/internal/backend/platform"
	storeerr "github.com/akihiro/storectl/internal/errors"
	"github.com/akihiro/storectl/internal/feature"
	"github.com/akihiro/storectl/internal/secret"
)

// Kind is the discriminant of a store record.
type Kind string

const (
	KindSecretService Kind = platform.KindSecretService
	KindKeyutils      Kind = platform.KindKeyutils
	KindKeychain      Kind = platform.KindKeychain
	KindWinCred       Kind = platform.KindWinCred
	KindCommand       Kind = command.Kind
)

// Kinds lists every kind a record may name, whether or not this build
// supports it.
func Kinds() []Kind {
	return []Kind{KindSecretService, KindKeyutils, KindKeychain, KindWinCred, KindCommand}
}

// Record is the serialized form of a store.
type Record struct {
	Kind          Kind                    `toml:"kind" yaml:"kind" json:"kind"`
	SecretService *platform.SecretService `toml:"secret-service,omitempty" yaml:"secret-service,omitempty" json:"secret-service,omitempty"`
	LinuxKeyutils *platform.Keyutils      `toml:"linux-keyutils,omitempty" yaml:"linux-keyutils,omitempty" json:"linux-keyutils,omitempty"`
	AppleNative   *platform.Keychain      `toml:"apple-native,omitempty" yaml:"apple-native,omitempty" json:"apple-native,omitempty"`
	WindowsNative *platform.WinCred       `toml:"windows-native,omitempty" yaml:"windows-native,omitempty" json:"windows-native,omitempty"`
	Command       *command.Config         `toml:"command,omitempty" yaml:"command,omitempty" json:"command,omitempty"`
}

// Store is a resolved store. Exactly one variant field is set, the one
// matching Kind.
type Store struct {
	Kind          Kind
	SecretService *platform.SecretService
	LinuxKeyutils *platform.Keyutils
	AppleNative   *platform.Keychain
	WindowsNative *platform.WinCred
	Command       *command.Backend
}

var _ backend.Backend = Store{}

// Resolve validates rec and builds the backend it names. Checks run in a
// fixed order: known kind, companion block present, feature compiled in,
// then the block's own validation.
func Resolve(rec Record) (Store, error) {
	if !slices.Contains(Kinds(), rec.Kind) {
		return Store{}, storeerr.New(storeerr.CodeConfigStoreInvalid,
			"unknown store kind "+strconv.Quote(string(rec.Kind)),
			storeerr.FieldKind(string(rec.Kind)))
	}
	if !rec.hasBlock() {
		return Store{}, storeerr.New(storeerr.CodeConfigStoreInvalid,
			"missing "+strconv.Quote(string(rec.Kind))+" configuration",
			storeerr.FieldKind(string(rec.Kind)))
	}
	if err := requireFeature(rec); err != nil {
		return Store{}, err
	}

	st := Store{Kind: rec.Kind}
	switch rec.Kind {
	case KindSecretService:
		v := *rec.SecretService
		if err := v.Validate(); err != nil {
			return Store{}, err
		}
		st.SecretService = &v
	case KindKeyutils:
		v := *rec.LinuxKeyutils
		st.LinuxKeyutils = &v
	case KindKeychain:
		v := *rec.AppleNative
		st.AppleNative = &v
	case KindWinCred:
		v := *rec.WindowsNative
		st.WindowsNative = &v
	case KindCommand:
		b, err := command.New(*rec.Command)
		if err != nil {
			return Store{}, err
		}
		st.Command = b
	}
	return st, nil
}

func (r Record) hasBlock() bool {
	switch r.Kind {
	case KindSecretService:
		return r.SecretService != nil
	case KindKeyutils:
		return r.LinuxKeyutils != nil
	case KindKeychain:
		return r.AppleNative != nil
	case KindWinCred:
		return r.WindowsNative != nil
	case KindCommand:
		return r.Command != nil
	}
	return false
}

// requireFeature checks that the build supports rec's kind. The
// secret-service kind accepts either of its two transports.
func requireFeature(rec Record) error {
	var f feature.Feature
	switch rec.Kind {
	case KindSecretService:
		return rec.SecretService.Validate()
	case KindKeyutils:
		f = feature.LinuxKeyutils
	case KindKeychain:
		f = feature.AppleNative
	case KindWinCred:
		f = feature.WindowsNative
	case KindCommand:
		f = feature.Command
	}
	if feature.Enabled(f) {
		return nil
	}
	return storeerr.New(storeerr.CodeFeatureUnavailable,
		"feature "+string(f)+" must be enabled to use the "+string(rec.Kind)+" store",
		storeerr.FieldKind(string(rec.Kind)), storeerr.FieldFeature(string(f)))
}

// Record returns the serialized form of s: its kind and the one matching
// companion block.
func (s Store) Record() Record {
	rec := Record{Kind: s.Kind}
	switch s.Kind {
	case KindSecretService:
		v := *s.SecretService
		rec.SecretService = &v
	case KindKeyutils:
		v := *s.LinuxKeyutils
		rec.LinuxKeyutils = &v
	case KindKeychain:
		v := *s.AppleNative
		rec.AppleNative = &v
	case KindWinCred:
		v := *s.WindowsNative
		rec.WindowsNative = &v
	case KindCommand:
		cfg := s.Command.Config()
		rec.Command = &cfg
	}
	return rec
}

func (s Store) backend() backend.Backend {
	switch s.Kind {
	case KindSecretService:
		return *s.SecretService
	case KindKeyutils:
		return *s.LinuxKeyutils
	case KindKeychain:
		return *s.AppleNative
	case KindWinCred:
		return *s.WindowsNative
	case KindCommand:
		return s.Command
	}
	panic("store: unresolved kind " + strconv.Quote(string(s.Kind)))
}

func (s Store) Read() (secret.Secret, error) { return s.backend().Read() }
func (s Store) Write(v secret.Secret) error  { return s.backend().Write(v) }
func (s Store) Remove() (bool, error)        { return s.backend().Remove() }

// Registry maps store names to resolved stores. It is built once and never
// modified.
type Registry struct {
	stores map[string]Store
}

// NewRegistry resolves every record. The first failure, in name order, is
// returned with the store's name attached.
func NewRegistry(records map[string]Record) (*Registry, error) {
	r := &Registry{stores: make(map[string]Store, len(records))}
	for _, name := range slices.Sorted(maps.Keys(records)) {
		st, err := Resolve(records[name])
		if err != nil {
			return nil, storeerr.With(err, storeerr.FieldStore(name))
		}
		slog.Debug("store resolved", "store", name, "kind", st.Kind)
		r.stores[name] = st
	}
	return r, nil
}

// Lookup returns the store configured under name.
func (r *Registry) Lookup(name string) (Store, error) {
	st, ok := r.stores[name]
	if !ok {
		return Store{}, storeerr.New(storeerr.CodeConfigStoreNotFound,
			"store "+strconv.Quote(name)+" not found", storeerr.FieldStore(name))
	}
	return st, nil
}

// Names returns the configured store names, sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.stores))
}

func (r *Registry) Len() int {
	return len(r.stores)
}
