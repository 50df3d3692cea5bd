// SPDX-License-Identifier: Apache-2.0

//go:build (linux || freebsd || openbsd) && !nogokeyring

package platform

import (
	"github.com/akihiro/storectl/internal/feature"
	"github.com/akihiro/storectl/internal/keystore/gokeyring"
)

func init() { registerDriver(feature.KeyringSecretService, gokeyring.New) }
