package model

import "time"

// StagedBlob is one locally stored image waiting for a server identifier.
// Owned exclusively by the blob store.
type StagedBlob struct {
	ID       uint64
	Filename string
	Content  []byte

	// Used for preview cache busting and integrity checks.
	ContentHash string

	CreatedAt time.Time
}
