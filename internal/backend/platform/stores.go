// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"strconv"

	"github.com/akihiro/storectl/internal/backend"
	storeerr "github.com/akihiro/storectl/internal/errors"
	"github.com/akihiro/storectl/internal/feature"
	"github.com/akihiro/storectl/internal/secret"
)

// Secret Service transports.
const (
	FlavourDBus    = "dbus"
	FlavourKeyring = "keyring"
)

var secretServicePlatforms = []string{"linux", "freebsd", "openbsd"}

// SecretService stores the password through the freedesktop.org Secret
// Service. Flavour picks the client: "dbus" for the built-in D-Bus client,
// "keyring" for go-keyring's. Empty prefers dbus when both are built.
type SecretService struct {
	Service string `toml:"service" yaml:"service" json:"service"`
	User    string `toml:"user" yaml:"user" json:"user"`
	Flavour string `toml:"flavour,omitempty" yaml:"flavour,omitempty" json:"flavour,omitempty"`
}

func (s SecretService) Identity() backend.Identity {
	return backend.Identity{Service: s.Service, User: s.User}
}

// Validate checks the flavour and that its transport is compiled in.
func (s SecretService) Validate() error {
	_, err := s.transport()
	return err
}

func (s SecretService) transport() (feature.Feature, error) {
	switch s.Flavour {
	case FlavourDBus:
		return feature.DBusSecretService, requireFeature(KindSecretService, feature.DBusSecretService)
	case FlavourKeyring:
		return feature.KeyringSecretService, requireFeature(KindSecretService, feature.KeyringSecretService)
	case "":
		switch {
		case feature.Enabled(feature.DBusSecretService):
			return feature.DBusSecretService, nil
		case feature.Enabled(feature.KeyringSecretService):
			return feature.KeyringSecretService, nil
		}
		return "", storeerr.New(storeerr.CodeFeatureUnavailable,
			"feature "+string(feature.DBusSecretService)+" or "+string(feature.KeyringSecretService)+
				" must be enabled to use the "+KindSecretService+" store",
			storeerr.FieldKind(KindSecretService),
			storeerr.FieldFeature(string(feature.DBusSecretService)+","+string(feature.KeyringSecretService)))
	default:
		return "", storeerr.New(storeerr.CodeConfigStoreInvalid,
			"unknown secret-service flavour "+strconv.Quote(s.Flavour)+
				" (expected "+FlavourDBus+" or "+FlavourKeyring+")",
			storeerr.FieldKind(KindSecretService))
	}
}

func (s SecretService) ops() ops {
	return ops{kind: KindSecretService, service: s.Service, user: s.User, prepare: func() error {
		f, err := s.transport()
		if err != nil {
			return err
		}
		return prepare(KindSecretService, secretServicePlatforms, f)
	}}
}

func (s SecretService) Read() (secret.Secret, error) { return s.ops().read() }
func (s SecretService) Write(v secret.Secret) error  { return s.ops().write(v) }
func (s SecretService) Remove() (bool, error)        { return s.ops().remove() }

// Keyutils stores the password in the Linux kernel session keyring.
type Keyutils struct {
	Service string `toml:"service" yaml:"service" json:"service"`
	User    string `toml:"user" yaml:"user" json:"user"`
}

func (k Keyutils) Identity() backend.Identity {
	return backend.Identity{Service: k.Service, User: k.User}
}

func (k Keyutils) ops() ops {
	return ops{kind: KindKeyutils, service: k.Service, user: k.User, prepare: func() error {
		return prepare(KindKeyutils, []string{"linux"}, feature.LinuxKeyutils)
	}}
}

func (k Keyutils) Read() (secret.Secret, error) { return k.ops().read() }
func (k Keyutils) Write(v secret.Secret) error  { return k.ops().write(v) }
func (k Keyutils) Remove() (bool, error)        { return k.ops().remove() }

// Keychain stores the password in the macOS keychain.
type Keychain struct {
	Service string `toml:"service" yaml:"service" json:"service"`
	User    string `toml:"user" yaml:"user" json:"user"`
}

func (k Keychain) Identity() backend.Identity {
	return backend.Identity{Service: k.Service, User: k.User}
}

func (k Keychain) ops() ops {
	return ops{kind: KindKeychain, service: k.Service, user: k.User, prepare: func() error {
		return prepare(KindKeychain, []string{"darwin", "ios"}, feature.AppleNative)
	}}
}

func (k Keychain) Read() (secret.Secret, error) { return k.ops().read() }
func (k Keychain) Write(v secret.Secret) error  { return k.ops().write(v) }
func (k Keychain) Remove() (bool, error)        { return k.ops().remove() }

// WinCred stores the password in the Windows Credential Manager.
type WinCred struct {
	Service string `toml:"service" yaml:"service" json:"service"`
	User    string `toml:"user" yaml:"user" json:"user"`
}

func (w WinCred) Identity() backend.Identity {
	return backend.Identity{Service: w.Service, User: w.User}
}

func (w WinCred) ops() ops {
	return ops{kind: KindWinCred, service: w.Service, user: w.User, prepare: func() error {
		return prepare(KindWinCred, []string{"windows"}, feature.WindowsNative)
	}}
}

func (w WinCred) Read() (secret.Secret, error) { return w.ops().read() }
func (w WinCred) Write(v secret.Secret) error  { return w.ops().write(v) }
func (w WinCred) Remove() (bool, error)        { return w.ops().remove() }

var (
	_ backend.Backend = SecretService{}
	_ backend.Backend = Keyutils{}
	_ backend.Backend = Keychain{}
	_ backend.Backend = WinCred{}
)
