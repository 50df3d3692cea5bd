// SPDX-License-Identifier: Apache-2.0

//go:build !unix && !windows

package process

import (
	"errors"
	"io"
	"os"
)

func NewDefaultDriver() Driver {
	return NewPipeDriver()
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed)
}
