// SPDX-License-Identifier: Apache-2.0

//go:build unix

package process

import (
	"errors"

	"golang.org/x/sys/unix"
)

// NewDefaultDriver returns the poll(2) driver.
func NewDefaultDriver() Driver {
	return NewPollDriver()
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, unix.EPIPE)
}
