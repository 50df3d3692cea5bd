// SPDX-License-Identifier: Apache-2.0

// storectl reads, writes and removes a single secret in a named store. A
// store is one of the platform secret services or a set of user-defined
// commands, declared in the configuration file.
//
// Usage:
//
//	storectl [--config PATH]... [--json] [--log-level LEVEL] [--no-color] <command>
//
// See "storectl --help" or the generated manual pages for the commands.
package main

import (
	"log/slog"
	"os"

	"github.com/akihiro/storectl/internal/memprotect"
	"github.com/awnumar/memguard"
)

func main() {
	memguard.CatchInterrupt()

	if err := memprotect.HardenProcess(); err != nil {
		slog.Warn("process hardening incomplete", "err", err)
	}

	code := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	memguard.Purge()
	os.Exit(code)
}
