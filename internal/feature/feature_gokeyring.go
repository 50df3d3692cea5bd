// SPDX-License-Identifier: Apache-2.0

//go:build !nogokeyring

package feature

func init() { register(KeyringSecretService) }
