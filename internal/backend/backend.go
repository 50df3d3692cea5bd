// Package backend defines the capability every secret store implements.
// Concrete stores live in the platform and command subpackages; the store
// package picks one per configured name.
package backend

import "github.com/akihiro/storectl/internal/secret"

// Backend reads, writes and removes the single secret a configured store
// points at.
type Backend interface {
	// Read returns the stored secret, or an error with code
	// secret.read.not_found when there is none.
	Read() (secret.Secret, error)

	// Write creates the entry or replaces its value.
	Write(s secret.Secret) error

	// Remove deletes the entry and reports whether it existed. Removing a
	// missing entry returns false and no error.
	Remove() (bool, error)
}

// Identity names one secret in a platform store's namespace.
type Identity struct {
	Service string `toml:"service" yaml:"service" json:"service"`
	User    string `toml:"user" yaml:"user" json:"user"`
}

func (id Identity) String() string {
	return id.User + "@" + id.Service
}
