// Package keyindex maps slot keys to staged blob ids. Entries live in the
// shared string-keyed kv namespace next to scalar console settings, so they
// can be discovered by prefix scan.
package keyindex

import (
	"github.com/flotillahq/flotilla/internal/model"
	"github.com/rs/zerolog"
)

// Entry is one discovered slot mapping.
type Entry struct {
	Key    model.SlotKey
	BlobID uint64
}

type Index interface {
	Set(key model.SlotKey, blobID uint64) error

	// Get reports ok=false for an absent key.
	Get(key model.SlotKey) (blobID uint64, ok bool, err error)

	// Delete on an absent key is a no-op.
	Delete(key model.SlotKey) error

	// ScanByPrefix enumerates every slot entry whose key string starts with
	// prefix, in unspecified order. Keys in the namespace that are not
	// well-formed slot keys are skipped.
	ScanByPrefix(prefix string) ([]Entry, error)
}

var indexLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	indexLogger = l
}
