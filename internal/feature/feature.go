// SPDX-License-Identifier: Apache-2.0

// Package feature records which optional backends were compiled into the
// binary. Every backend kind stays a recognised configuration value; build
// tags only decide whether it can be constructed.
//
// Each feature registers itself from its own file, guarded by an opt-out
// build tag:
//
//	command                 !nocommand
//	dbus-secret-service     !nodbus
//	keyring-secret-service  !nogokeyring
//	linux-keyutils          !nokeyutils
//	apple-native            !noapplenative
//	windows-native          !nowindowsnative
package feature

import (
	"slices"
	"sync"
)

// Feature names a compile-time capability.
type Feature string

const (
	Command              Feature = "command"
	DBusSecretService    Feature = "dbus-secret-service"
	KeyringSecretService Feature = "keyring-secret-service"
	LinuxKeyutils        Feature = "linux-keyutils"
	AppleNative          Feature = "apple-native"
	WindowsNative        Feature = "windows-native"
)

var (
	mu      sync.RWMutex
	enabled = map[Feature]bool{}
)

func register(f Feature) {
	mu.Lock()
	defer mu.Unlock()
	enabled[f] = true
}

// Enabled reports whether f was compiled in.
func Enabled(f Feature) bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled[f]
}

// All returns the compiled-in features, sorted.
func All() []Feature {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Feature, 0, len(enabled))
	for f, on := range enabled {
		if on {
			out = append(out, f)
		}
	}
	slices.Sort(out)
	return out
}

// Override forces f on or off and returns a function restoring the previous
// state. It exists for tests that exercise feature gating.
func Override(f Feature, on bool) (restore func()) {
	mu.Lock()
	prev, had := enabled[f]
	enabled[f] = on
	mu.Unlock()
	return func() {
		mu.Lock()
		defer mu.Unlock()
		if had {
			enabled[f] = prev
		} else {
			delete(enabled, f)
		}
	}
}
