// SPDX-License-Identifier: Apache-2.0

//go:build unix && !linux

package memprotect

var steps = []step{
	{"no-core", disableCoreDumps},
}
