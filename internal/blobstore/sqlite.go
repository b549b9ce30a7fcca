package blobstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/flotillahq/flotilla/internal/db"
	"github.com/flotillahq/flotilla/internal/model"
	"github.com/flotillahq/flotilla/internal/util"
)

type SQLiteStore struct { // implements Store
	db db.DB
}

func NewSQLiteStore(db db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Save(id uint64, filename string, content []byte) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO staged_blobs (id, filename, content, content_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, filename, content, util.ContentHash(content), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("error saving blob %d: %w", id, err)
	}

	storeLogger.Debug().Uint64("blob_id", id).Str("filename", filename).Int("size", len(content)).Msg("Blob saved")
	return nil
}

func (s *SQLiteStore) Get(id uint64) (*model.StagedBlob, error) {
	blob := &model.StagedBlob{ID: id}

	row := s.db.QueryRow(`SELECT filename, content, content_hash, created_at FROM staged_blobs WHERE id = ?`, id)
	err := row.Scan(&blob.Filename, &blob.Content, &blob.ContentHash, &blob.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading blob %d: %w", id, err)
	}

	return blob, nil
}

func (s *SQLiteStore) Delete(id uint64) error {
	_, err := s.db.Exec(`DELETE FROM staged_blobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting blob %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) MaxID() (uint64, bool, error) {
	var max sql.NullInt64
	row := s.db.QueryRow(`SELECT MAX(id) FROM staged_blobs`)
	if err := row.Scan(&max); err != nil {
		return 0, false, fmt.Errorf("error scanning max blob id: %w", err)
	}
	if !max.Valid {
		return 0, false, nil
	}
	return uint64(max.Int64), true, nil
}
