// SPDX-License-Identifier: Apache-2.0

//go:build !nodbus

package feature

func init() { register(DBusSecretService) }
