// SPDX-License-Identifier: Apache-2.0

// Package command provides a backend whose operations are user-configured
// external commands.
//
// Contract for the commands:
//
//   - get receives no stdin, prints the secret on stdout and exits 0. One
//     trailing "\n" or "\r\n" is dropped from its output.
//   - set receives the secret on stdin, with no trailing newline added, and
//     exits 0.
//   - delete receives no stdin and exits 0.
//
// Any other exit status is a failure. The failure message is the command's
// stdout if it printed anything, else its stderr, else a generic message.
package command

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	storeerr "github.com/akihiro/storectl/internal/errors"
	"github.com/akihiro/storectl/internal/process"
	"github.com/akihiro/storectl/internal/secret"
)

// Kind is the configuration name of this backend.
const Kind = "command"

// Config holds one command per operation. All three are required.
type Config struct {
	Get    process.Spec `toml:"get" yaml:"get" json:"get"`
	Set    process.Spec `toml:"set" yaml:"set" json:"set"`
	Delete process.Spec `toml:"delete" yaml:"delete" json:"delete"`
}

// Validate reports the first operation without a usable command.
func (c Config) Validate() error {
	for _, op := range []struct {
		name string
		spec process.Spec
	}{{"get", c.Get}, {"set", c.Set}, {"delete", c.Delete}} {
		if err := op.spec.Validate(op.name); err != nil {
			return storeerr.With(err, storeerr.FieldKind(Kind))
		}
	}
	return nil
}

// Backend runs the configured commands through an executor.
type Backend struct {
	cfg  Config
	exec process.Executor
}

// New validates cfg and returns a backend that runs commands locally.
func New(cfg Config) (*Backend, error) {
	return NewWithExecutor(cfg, process.LocalExecutor{})
}

func NewWithExecutor(cfg Config, x process.Executor) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Backend{cfg: cfg.clone(), exec: x}, nil
}

func (c Config) clone() Config {
	return Config{Get: c.Get.Clone(), Set: c.Set.Clone(), Delete: c.Delete.Clone()}
}

// Config returns a copy of the backend's commands.
func (b *Backend) Config() Config {
	return b.cfg.clone()
}

func (b *Backend) Read() (secret.Secret, error) {
	out, err := b.run("get", b.cfg.Get, nil)
	if err != nil {
		return secret.Secret{}, err
	}
	defer secret.WipeBytes(out.Stdout)

	if !utf8.Valid(out.Stdout) {
		return secret.Secret{}, storeerr.New(storeerr.CodeCommandOutputEncoding,
			"get command printed invalid UTF-8",
			storeerr.FieldKind(Kind), storeerr.FieldOp("get"), storeerr.FieldProgram(b.cfg.Get.Program))
	}
	return secret.FromBytes(secret.TrimLineEnding(out.Stdout)), nil
}

func (b *Backend) Write(s secret.Secret) error {
	payload, err := s.Bytes()
	if err != nil {
		return storeerr.Wrap(err, storeerr.CodeBackendFailure, "open secret",
			storeerr.FieldKind(Kind), storeerr.FieldOp("set"))
	}
	defer secret.WipeBytes(payload)

	_, err = b.run("set", b.cfg.Set, payload)
	return err
}

// Remove reports true whenever the delete command succeeds: the command
// contract has no way to say that nothing was stored.
func (b *Backend) Remove() (bool, error) {
	if _, err := b.run("delete", b.cfg.Delete, nil); err != nil {
		return false, err
	}
	return true, nil
}

func (b *Backend) run(op string, spec process.Spec, stdin []byte) (process.Output, error) {
	out, err := b.exec.Execute(spec, stdin)
	if err != nil {
		return out, storeerr.Wrap(err, storeerr.CodeCommandSpawnFailure, op+" password via command",
			storeerr.FieldKind(Kind), storeerr.FieldOp(op))
	}
	if out.Status.Success() {
		return out, nil
	}
	slog.Debug("command failed", "op", op, "program", spec.Program, "status", out.Status.String())
	return out, storeerr.New(storeerr.CodeCommandExitFailure, failureMessage(op, out),
		storeerr.FieldKind(Kind), storeerr.FieldOp(op),
		storeerr.FieldProgram(spec.Program), storeerr.FieldExitStatus(out.Status.String()))
}

// failureMessage prefixes the command's own text with the operation: stdout
// if it printed anything, else stderr, else a generic message. Invalid UTF-8
// is replaced so the message always renders.
//
// A stream holding only whitespace counts as empty, so whitespace-only stdout
// falls through to stderr.
func failureMessage(op string, out process.Output) string {
	for _, stream := range [][]byte{out.Stdout, out.Stderr} {
		if msg := strings.TrimSpace(strings.ToValidUTF8(string(stream), "\uFFFD")); msg != "" {
			return op + " password via command: " + msg
		}
	}
	return op + " password via command failed"
}
