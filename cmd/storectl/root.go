// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"

	storeerr "github.com/akihiro/storectl/internal/errors"
	"github.com/spf13/cobra"
)

// run executes one invocation and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := newApp(stdin, stdout, stderr)
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		return a.fail(err)
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "storectl",
		Short: "Read, write and remove secrets in configured stores",
		Long: "storectl manages one secret per named store. A store is a platform secret\n" +
			"service (Secret Service, Linux keyutils, macOS keychain, Windows Credential\n" +
			"Manager) or a set of external commands, declared in the configuration file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringSliceP("config", "c", nil, "configuration file (repeatable, later files win)")
	flags.Bool("json", false, "print results and errors as JSON")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")
	flags.Bool("no-color", false, "disable coloured error output")
	for _, name := range []string{"config", "json", "log-level", "no-color"} {
		// Lookup never fails for flags declared above.
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return storeerr.Wrap(err, storeerr.CodeCLIInputInvalid, "parse flags")
	})

	root.AddCommand(
		newPasswordCmd(a),
		newStoreCmd(a),
		newManualsCmd(),
		newVersionCmd(a),
	)
	return root
}
