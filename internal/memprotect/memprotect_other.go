// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package memprotect

// Windows does not write core files for ordinary processes; nothing to do.
var steps []step
