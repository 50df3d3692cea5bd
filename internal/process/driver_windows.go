// SPDX-License-Identifier: Apache-2.0

//go:build windows

package process

import (
	"errors"

	"golang.org/x/sys/windows"
)

// NewDefaultDriver returns the goroutine driver; anonymous pipes on Windows
// cannot be polled.
func NewDefaultDriver() Driver {
	return NewPipeDriver()
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, windows.ERROR_BROKEN_PIPE) || errors.Is(err, windows.ERROR_NO_DATA)
}
