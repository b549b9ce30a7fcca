// Package draftstore persists in-progress form bodies per namespace so a
// reload or restart never loses operator input. Writes are write-through:
// every Save hits storage before returning.
package draftstore

import "github.com/rs/zerolog"

type Store interface {
	// Load unmarshals the stored draft into the value pointed to by into.
	// found is false when the namespace holds no draft; the caller keeps
	// whatever default it seeded into into.
	Load(namespace string, into any) (found bool, err error)

	// Save marshals v and persists it immediately.
	Save(namespace string, v any) error

	// Clear on an absent namespace is a no-op.
	Clear(namespace string) error
}

var draftLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	draftLogger = l
}
