// SPDX-License-Identifier: Apache-2.0

//go:build (linux || freebsd || openbsd) && !nodbus

package platform

import (
	"github.com/akihiro/storectl/internal/feature"
	"github.com/akihiro/storectl/internal/keystore/secretservice"
)

func init() { registerDriver(feature.DBusSecretService, secretservice.New) }
