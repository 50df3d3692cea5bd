// SPDX-License-Identifier: Apache-2.0

//go:build !noapplenative

package feature

func init() { register(AppleNative) }
