// SPDX-License-Identifier: Apache-2.0

//go:build darwin && !noapplenative

package platform

import (
	"github.com/akihiro/storectl/internal/feature"
	"github.com/akihiro/storectl/internal/keystore/keychain"
)

func init() { registerDriver(feature.AppleNative, keychain.New) }
