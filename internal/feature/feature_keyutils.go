// SPDX-License-Identifier: Apache-2.0

//go:build !nokeyutils

package feature

func init() { register(LinuxKeyutils) }
