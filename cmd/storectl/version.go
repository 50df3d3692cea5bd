// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/akihiro/storectl/internal/feature"
	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled-in features",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			features := make([]string, 0)
			for _, f := range feature.All() {
				features = append(features, string(f))
			}
			if a.v.GetBool("json") {
				return jsonEncode(cmd.OutOrStdout(), map[string]any{
					"version":  version,
					"commit":   commit,
					"platform": runtime.GOOS + "/" + runtime.GOARCH,
					"features": features,
				})
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "storectl %s (commit: %s, %s/%s)\nfeatures: %s\n",
				version, commit, runtime.GOOS, runtime.GOARCH, strings.Join(features, ", "))
			return err
		},
	}
}

func jsonEncode(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
