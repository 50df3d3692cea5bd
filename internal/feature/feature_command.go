// SPDX-License-Identifier: Apache-2.0

//go:build !nocommand

package feature

func init() { register(Command) }
