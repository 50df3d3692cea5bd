// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/akihiro/storectl/internal/config"
	storeerr "github.com/akihiro/storectl/internal/errors"
	"github.com/akihiro/storectl/internal/output"
	"github.com/akihiro/storectl/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// app is the state shared by the commands of one invocation.
type app struct {
	v      *viper.Viper
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	printer  *output.Printer
	registry *store.Registry
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	v := viper.New()
	v.SetEnvPrefix("STORECTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("log-level", "warn")
	return &app{v: v, stdin: stdin, stdout: stdout, stderr: stderr}
}

// setup installs the logger and printer once flags are parsed.
func (a *app) setup() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.v.GetString("log-level"))); err != nil {
		return storeerr.Wrapf(err, storeerr.CodeCLIInputInvalid, "invalid log level %q", a.v.GetString("log-level"))
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if a.v.GetBool("json") {
		h = slog.NewJSONHandler(a.stderr, opts)
	} else {
		h = slog.NewTextHandler(a.stderr, opts)
	}
	slog.SetDefault(slog.New(h).With("invocation", uuid.NewString()))

	a.printer = a.newPrinter()
	return nil
}

func (a *app) newPrinter() *output.Printer {
	return output.New(a.stdout, a.stderr, a.v.GetBool("json"), !a.v.GetBool("no-color"))
}

// stores loads the configuration and resolves its stores on first use.
// Explicit paths must exist; the default path may be missing.
func (a *app) stores() (*store.Registry, error) {
	if a.registry != nil {
		return a.registry, nil
	}
	var (
		f   *config.File
		err error
	)
	if paths := a.v.GetStringSlice("config"); len(paths) > 0 {
		f, err = config.Load(paths...)
	} else {
		f, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}
	reg, err := f.Registry()
	if err != nil {
		return nil, err
	}
	a.registry = reg
	return reg, nil
}

func (a *app) lookup(name string) (store.Store, error) {
	reg, err := a.stores()
	if err != nil {
		return store.Store{}, err
	}
	return reg.Lookup(name)
}

// fail reports err and returns the exit code.
func (a *app) fail(err error) int {
	p := a.printer
	if p == nil {
		p = a.newPrinter()
	}
	p.Error(err)
	return 1
}
