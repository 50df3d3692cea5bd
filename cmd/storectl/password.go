// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	storeerr "github.com/akihiro/storectl/internal/errors"
	"github.com/akihiro/storectl/internal/output"
	"github.com/akihiro/storectl/internal/secret"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newPasswordCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "password",
		Aliases: []string{"pass", "pw"},
		Short:   "Read, write or remove the secret of a store",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:     "read <store>",
			Aliases: []string{"get", "show"},
			Short:   "Print the secret of a store",
			Args:    cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return a.readPassword(args[0])
			},
		},
		&cobra.Command{
			Use:     "write <store> [SECRET]",
			Aliases: []string{"set", "update", "edit"},
			Short:   "Create or replace the secret of a store",
			Long: "Create or replace the secret of a store.\n\n" +
				"SECRET is used as is, unless it names an existing file, in which case the\n" +
				"file's content is used. Without SECRET the value is prompted for when\n" +
				"standard input is a terminal, and read from standard input otherwise. One\n" +
				"trailing line ending is dropped from file and stdin content.",
			Args: cobra.RangeArgs(1, 2),
			RunE: func(_ *cobra.Command, args []string) error {
				return a.writePassword(args[0], args[1:])
			},
		},
		&cobra.Command{
			Use:     "remove <store>",
			Aliases: []string{"rm", "delete", "del"},
			Short:   "Remove the secret of a store",
			Args:    cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return a.removePassword(args[0])
			},
		},
	)
	return cmd
}

func (a *app) readPassword(name string) error {
	st, err := a.lookup(name)
	if err != nil {
		return err
	}
	s, err := st.Read()
	if err != nil {
		return storeContext(err, name)
	}
	r, err := output.NewPasswordRead(s)
	if err != nil {
		return err
	}
	return a.printer.Print(r)
}

func (a *app) writePassword(name string, args []string) error {
	st, err := a.lookup(name)
	if err != nil {
		return err
	}
	s, err := a.secretInput(args)
	if err != nil {
		return err
	}
	if err := st.Write(s); err != nil {
		return storeContext(err, name)
	}
	slog.Info("password written", "store", name, "kind", st.Kind)
	return a.printer.Print(output.PasswordWritten{Store: name})
}

func (a *app) removePassword(name string) error {
	st, err := a.lookup(name)
	if err != nil {
		return err
	}
	removed, err := st.Remove()
	if err != nil {
		return storeContext(err, name)
	}
	slog.Info("password removed", "store", name, "kind", st.Kind, "existed", removed)
	return a.printer.Print(output.PasswordRemoved{Store: name, Removed: removed})
}

// storeContext prefixes a backend error with the store it came from. The
// backend's code is kept.
func storeContext(err error, name string) error {
	return storeerr.Wrap(err, storeerr.CodeBackendFailure, "store "+strconv.Quote(name), storeerr.FieldStore(name))
}

// secretInput returns the secret to write: the argument or the file it
// names, else a terminal prompt, else all of stdin.
func (a *app) secretInput(args []string) (secret.Secret, error) {
	if len(args) == 1 {
		if info, err := os.Stat(args[0]); err == nil && info.Mode().IsRegular() {
			return readSecretFile(args[0])
		}
		return secret.New(args[0]), nil
	}

	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.stderr, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.stderr)
		if err != nil {
			return secret.Secret{}, storeerr.Wrap(err, storeerr.CodeCLIInputInvalid, "read password from terminal")
		}
		defer secret.WipeBytes(b)
		return secret.FromBytes(b), nil
	}

	b, err := io.ReadAll(a.stdin)
	if err != nil {
		return secret.Secret{}, storeerr.Wrap(err, storeerr.CodeCLIInputInvalid, "read password from stdin")
	}
	defer secret.WipeBytes(b)
	return secret.FromBytes(secret.TrimLineEnding(b)), nil
}

func readSecretFile(path string) (secret.Secret, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return secret.Secret{}, storeerr.Wrap(err, storeerr.CodeCLIInputInvalid, "read password file",
			storeerr.Field("path", path))
	}
	defer secret.WipeBytes(b)
	return secret.FromBytes(secret.TrimLineEnding(b)), nil
}
