// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/akihiro/storectl/internal/config"
	storeerr "github.com/akihiro/storectl/internal/errors"
	"github.com/akihiro/storectl/internal/store"
	"github.com/spf13/cobra"
)

func newStoreCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "store",
		Aliases: []string{"stores"},
		Short:   "Inspect configured stores",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List configured stores and their kinds",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.stores()
			if err != nil {
				return err
			}
			return a.listStores(cmd, reg)
		},
	})

	var format string
	show := &cobra.Command{
		Use:   "show <store>",
		Short: "Print the resolved configuration of a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.lookup(args[0])
			if err != nil {
				return err
			}
			f := config.Format(format)
			switch {
			case a.v.GetBool("json"):
				f = config.FormatJSON
			case f != config.FormatTOML && f != config.FormatYAML && f != config.FormatJSON:
				return storeerr.New(storeerr.CodeCLIInputInvalid, "unknown format "+strconv.Quote(format))
			}
			data, err := config.Marshal(&config.File{Stores: map[string]store.Record{args[0]: st.Record()}}, f)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	show.Flags().StringVar(&format, "format", string(config.FormatTOML), "output format: toml, yaml or json")
	cmd.AddCommand(show)
	return cmd
}

func (a *app) listStores(cmd *cobra.Command, reg *store.Registry) error {
	out := cmd.OutOrStdout()
	if a.v.GetBool("json") {
		type row struct {
			Name string     `json:"name"`
			Kind store.Kind `json:"kind"`
		}
		rows := []row{}
		for _, name := range reg.Names() {
			st, _ := reg.Lookup(name)
			rows = append(rows, row{Name: name, Kind: st.Kind})
		}
		return jsonEncode(out, rows)
	}
	if reg.Len() == 0 {
		_, err := fmt.Fprintln(out, "No stores configured.")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND")
	for _, name := range reg.Names() {
		st, _ := reg.Lookup(name)
		fmt.Fprintf(tw, "%s\t%s\n", name, st.Kind)
	}
	return tw.Flush()
}
