// SPDX-License-Identifier: Apache-2.0

//go:build linux && !nokeyutils

package platform

import (
	"github.com/akihiro/storectl/internal/feature"
	"github.com/akihiro/storectl/internal/keystore/keyutils"
)

func init() { registerDriver(feature.LinuxKeyutils, keyutils.New) }
