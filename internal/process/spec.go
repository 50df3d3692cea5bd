// SPDX-License-Identifier: Apache-2.0

package process

import (
	"os"
	"slices"
	"strconv"
	"strings"

	storeerr "github.com/akihiro/storectl/internal/errors"
)

// Spec is one configured command invocation: an executable, its arguments
// and environment overrides layered on top of the caller's environment.
type Spec struct {
	Program string            `toml:"program" yaml:"program" json:"program"`
	Args    []string          `toml:"args,omitempty" yaml:"args,omitempty" json:"args,omitempty"`
	Env     map[string]string `toml:"env,omitempty" yaml:"env,omitempty" json:"env,omitempty"`
}

// Validate reports a configuration error naming op when the spec cannot be
// run at all.
func (s Spec) Validate(op string) error {
	if strings.TrimSpace(s.Program) == "" {
		return storeerr.New(storeerr.CodeConfigStoreInvalid,
			"missing program for "+strconv.Quote(op)+" command",
			storeerr.FieldOp(op))
	}
	for k := range s.Env {
		if k == "" || strings.ContainsAny(k, "=\x00") {
			return storeerr.New(storeerr.CodeConfigStoreInvalid,
				"invalid environment variable name "+strconv.Quote(k)+" in "+strconv.Quote(op)+" command",
				storeerr.FieldOp(op))
		}
	}
	return nil
}

// String renders the program and arguments for logs and error messages.
// Environment values are left out.
func (s Spec) String() string {
	parts := make([]string, 0, 1+len(s.Args))
	parts = append(parts, quoteArg(s.Program))
	for _, a := range s.Args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

// Clone returns a deep copy.
func (s Spec) Clone() Spec {
	out := Spec{Program: s.Program, Args: slices.Clone(s.Args)}
	if s.Env != nil {
		out.Env = make(map[string]string, len(s.Env))
		for k, v := range s.Env {
			out.Env[k] = v
		}
	}
	return out
}

// environ returns the child environment: ours plus the overrides in key
// order. Later entries win for duplicate keys.
func (s Spec) environ() []string {
	env := os.Environ()
	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, k+"="+s.Env[k])
	}
	return env
}

func quoteArg(a string) string {
	if a == "" || strings.ContainsAny(a, " \t\n\"'\\$`") {
		return strconv.Quote(a)
	}
	return a
}
