// SPDX-License-Identifier: Apache-2.0

//go:build windows && !nowindowsnative

package platform

import (
	"github.com/akihiro/storectl/internal/feature"
	"github.com/akihiro/storectl/internal/keystore/wincred"
)

func init() { registerDriver(feature.WindowsNative, wincred.New) }
