// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	storeerr "github.com/akihiro/storectl/internal/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

func newManualsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "manuals <dir>",
		Aliases: []string{"manual", "man"},
		Short:   "Generate man pages into a directory",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return storeerr.Wrap(err, storeerr.CodeCLIInputInvalid, "create manual directory",
					storeerr.Field("path", dir))
			}
			header := &doc.GenManHeader{Title: "STORECTL", Section: "1", Source: "storectl " + version}
			root := cmd.Root()
			root.DisableAutoGenTag = true
			return doc.GenManTree(root, header, dir)
		},
	}
}
