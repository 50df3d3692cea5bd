// SPDX-License-Identifier: Apache-2.0

//go:build !nowindowsnative

package feature

func init() { register(WindowsNative) }
