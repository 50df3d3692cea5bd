// SPDX-License-Identifier: Apache-2.0

// Package memprotect applies OS-level hardening so that secret material
// held in process memory is harder to recover from core files or by peer
// processes running as the same user.
package memprotect

import (
	"errors"
	"log/slog"
)

// step is one hardening measure. Steps run in order; a failing step does not
// stop the rest.
type step struct {
	name string
	fn   func() error
}

// HardenProcess applies every measure available on this OS and returns the
// joined failures. It must be called from main before any secret is loaded.
// Callers normally log the error and carry on.
func HardenProcess() error {
	var errs []error
	for _, s := range steps {
		if err := s.fn(); err != nil {
			errs = append(errs, err)
			continue
		}
		slog.Debug("process hardening applied", "step", s.name)
	}
	return errors.Join(errs...)
}
