// SPDX-License-Identifier: Apache-2.0

// storectl-file-helper is a reference implementation of the storectl
// external command contract. It keeps secrets in a JSON file, one value per
// key, and is meant to be configured as the get/set/delete commands of a
// "command" store.
//
// Usage:
//
//	storectl-file-helper [--file PATH] get <key>      print the secret
//	storectl-file-helper [--file PATH] set <key>      store stdin as the secret
//	storectl-file-helper [--file PATH] delete <key>   forget the secret
//	storectl-file-helper [--file PATH] list           print stored keys
//
// The default file is $STORECTL_HELPER_STORE, else
// $XDG_DATA_HOME/storectl/helper.json.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/akihiro/storectl/internal/filestore"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var path string
	open := func() (*filestore.Store, error) {
		return filestore.Open(path)
	}

	root := &cobra.Command{
		Use:           "storectl-file-helper",
		Short:         "File-backed secret helper for storectl command stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&path, "file", filestore.DefaultPath(), "secrets file")

	root.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print the secret stored under key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open()
			if err != nil {
				return err
			}
			v, err := st.Get(args[0])
			if errors.Is(err, filestore.ErrNotFound) {
				return fmt.Errorf("no secret stored for %q", args[0])
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := out.Write(v); err != nil {
				return err
			}
			_, err = io.WriteString(out, "\n")
			return err
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "set <key>",
		Short: "Store standard input under key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read secret: %w", err)
			}
			st, err := open()
			if err != nil {
				return err
			}
			return st.Set(args[0], v)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:     "delete <key>",
		Aliases: []string{"rm"},
		Short:   "Forget the secret stored under key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open()
			if err != nil {
				return err
			}
			_, err = st.Delete(args[0])
			return err
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := open()
			if err != nil {
				return err
			}
			keys, err := st.Keys()
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	})
	return root
}
