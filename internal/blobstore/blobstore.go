// Package blobstore stores staged image binaries keyed by a synthetic
// numeric id, pending association with a server-assigned identifier.
package blobstore

import (
	"errors"

	"github.com/flotillahq/flotilla/internal/model"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned by Get for an absent id.
var ErrNotFound = errors.New("blob not found")

type Store interface {
	// Save is idempotent per id: staging over an existing id overwrites it.
	Save(id uint64, filename string, content []byte) error

	// Get returns ErrNotFound for an absent id, never a nil blob with nil error.
	Get(id uint64) (*model.StagedBlob, error)

	// Delete on an absent id is a no-op.
	Delete(id uint64) error

	// MaxID returns the highest stored id; ok is false when the store is empty.
	MaxID() (id uint64, ok bool, err error)
}

var storeLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	storeLogger = l
}
