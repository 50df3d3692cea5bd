// SPDX-License-Identifier: Apache-2.0

// Package platform implements backends for the native secret stores of each
// operating system. Every operation first checks that the store can exist
// on this OS and in this build, then installs the matching keystore driver
// as the process default and delegates to it.
package platform

import (
	"runtime"
	"slices"
	"strings"

	storeerr "github.com/akihiro/storectl/internal/errors"
	"github.com/akihiro/storectl/internal/feature"
	"github.com/akihiro/storectl/internal/keystore"
	"github.com/akihiro/storectl/internal/secret"
)

// Kind names, as written in configuration.
const (
	KindSecretService = "secret-service"
	KindKeyutils      = "linux-keyutils"
	KindKeychain      = "apple-native"
	KindWinCred       = "windows-native"
)

var (
	// goos is the running OS; tests override it.
	goos = runtime.GOOS

	// drivers holds the keystore drivers built for this OS, filled in by the
	// build-tagged drivers_*.go files.
	drivers = map[feature.Feature]keystore.Factory{}
)

func registerDriver(f feature.Feature, factory keystore.Factory) {
	drivers[f] = factory
}

// prepare validates the platform and feature for kind and installs the
// driver for f. It runs before every operation.
func prepare(kind string, platforms []string, f feature.Feature) error {
	if !slices.Contains(platforms, goos) {
		return storeerr.New(storeerr.CodePlatformUnavailable,
			"the "+kind+" store is only available on "+strings.Join(platforms, ", ")+", not "+goos,
			storeerr.FieldKind(kind), storeerr.FieldPlatform(goos))
	}
	if err := requireFeature(kind, f); err != nil {
		return err
	}
	factory, ok := drivers[f]
	if !ok {
		return storeerr.New(storeerr.CodePlatformUnavailable,
			"no "+string(f)+" driver is built for "+goos,
			storeerr.FieldKind(kind), storeerr.FieldPlatform(goos), storeerr.FieldFeature(string(f)))
	}
	return storeerr.With(keystore.Install(string(f), factory), storeerr.FieldKind(kind))
}

func requireFeature(kind string, f feature.Feature) error {
	if feature.Enabled(f) {
		return nil
	}
	return storeerr.New(storeerr.CodeFeatureUnavailable,
		"feature "+string(f)+" must be enabled to use the "+kind+" store",
		storeerr.FieldKind(kind), storeerr.FieldFeature(string(f)))
}

// ops is the shared read/write/remove path for an identity once its driver
// is installed.
type ops struct {
	kind    string
	service string
	user    string
	prepare func() error
}

func (o ops) read() (secret.Secret, error) {
	if err := o.prepare(); err != nil {
		return secret.Secret{}, err
	}
	s, err := keystore.Read(o.service, o.user)
	return s, storeerr.With(err, storeerr.FieldKind(o.kind))
}

func (o ops) write(s secret.Secret) error {
	if err := o.prepare(); err != nil {
		return err
	}
	return storeerr.With(keystore.Write(o.service, o.user, s), storeerr.FieldKind(o.kind))
}

func (o ops) remove() (bool, error) {
	if err := o.prepare(); err != nil {
		return false, err
	}
	removed, err := keystore.Remove(o.service, o.user)
	return removed, storeerr.With(err, storeerr.FieldKind(o.kind))
}
