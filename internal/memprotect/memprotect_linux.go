// SPDX-License-Identifier: Apache-2.0

//go:build linux

package memprotect

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// prctl(PR_SET_DUMPABLE, 0) disables core dumps and makes /proc/<pid>/mem
// unreadable by non-root processes of the same UID. It also blocks ptrace
// attachment by unprivileged peers.
var steps = []step{
	{"no-dumpable", func() error {
		if err := unix.Prctl(unix.PR_SET_DUMPABLE, 0, 0, 0, 0); err != nil {
			return fmt.Errorf("prctl PR_SET_DUMPABLE=0: %w", err)
		}
		return nil
	}},
	{"no-core", disableCoreDumps},
}
