// SPDX-License-Identifier: Apache-2.0

// Package secret holds secret values in encrypted process memory and keeps
// them out of logs. The only ways to get at the plaintext are Reveal and
// Bytes; every formatting path renders a fixed placeholder.
package secret

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/awnumar/memguard"
)

// Redacted is printed in place of a secret value.
const Redacted = "[REDACTED]"

// Secret is an immutable secret value. The zero value is the empty secret.
type Secret struct {
	enclave *memguard.Enclave
}

// New seals s into a Secret.
func New(s string) Secret {
	return FromBytes([]byte(s))
}

// FromBytes seals a copy of b into a Secret. b itself is left untouched;
// callers that own b should wipe it with WipeBytes.
func FromBytes(b []byte) Secret {
	if len(b) == 0 {
		return Secret{}
	}
	buf := make([]byte, len(b))
	copy(buf, b)
	// NewEnclave wipes buf.
	return Secret{enclave: memguard.NewEnclave(buf)}
}

// Bytes returns a fresh plaintext copy. The caller owns the slice and should
// wipe it once done. An empty secret yields an empty, non-nil slice.
func (s Secret) Bytes() ([]byte, error) {
	if s.enclave == nil {
		return []byte{}, nil
	}
	locked, err := s.enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("open secret enclave: %w", err)
	}
	defer locked.Destroy()
	out := make([]byte, locked.Size())
	copy(out, locked.Bytes())
	return out, nil
}

// Reveal returns the plaintext. It is meant for the final print to the user
// and for handing the value to a platform driver.
func (s Secret) Reveal() (string, error) {
	b, err := s.Bytes()
	if err != nil {
		return "", err
	}
	defer WipeBytes(b)
	return string(b), nil
}

func (s Secret) IsEmpty() bool {
	return s.enclave == nil
}

func (s Secret) Len() int {
	if s.enclave == nil {
		return 0
	}
	return s.enclave.Size()
}

func (s Secret) String() string {
	return Redacted
}

func (s Secret) GoString() string {
	return "secret.Secret(" + Redacted + ")"
}

// Format makes every fmt verb, %x and %q included, print the placeholder.
func (s Secret) Format(f fmt.State, verb rune) {
	if verb == 'v' && f.Flag('#') {
		_, _ = f.Write([]byte(s.GoString()))
		return
	}
	_, _ = f.Write([]byte(Redacted))
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + Redacted + `"`), nil
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(Redacted), nil
}

func (s Secret) LogValue() slog.Value {
	return slog.StringValue(Redacted)
}

// WipeBytes zeroes b in place.
func WipeBytes(b []byte) {
	memguard.WipeBytes(b)
}

// TrimLineEnding drops exactly one trailing "\n" or "\r\n" from b. The
// result shares b's backing array.
func TrimLineEnding(b []byte) []byte {
	if b, ok := bytes.CutSuffix(b, []byte("\n")); ok {
		b, _ = bytes.CutSuffix(b, []byte("\r"))
		return b
	}
	return b
}
