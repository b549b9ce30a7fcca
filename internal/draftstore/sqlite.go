package draftstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/flotillahq/flotilla/internal/db"
	"github.com/flotillahq/flotilla/internal/util/compression"
)

type SQLiteStore struct { // implements Store
	db         db.DB
	compressor compression.Compressor
}

func NewSQLiteStore(db db.DB) *SQLiteStore {
	return &SQLiteStore{
		db: db,

		compressor: compression.ZstdCompressor{},
	}
}

func (s *SQLiteStore) Load(namespace string, into any) (bool, error) {
	rows, err := s.db.Query(`SELECT body FROM drafts WHERE namespace = ?`, namespace)
	if err != nil {
		return false, fmt.Errorf("error querying draft %q: %w", namespace, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return false, nil
	}

	var compressed []byte
	if err := rows.Scan(&compressed); err != nil {
		return false, fmt.Errorf("error scanning draft %q: %w", namespace, err)
	}

	body, err := s.compressor.Decompress(compressed)
	if err != nil {
		return false, fmt.Errorf("error decompressing draft %q: %w", namespace, err)
	}

	if err := json.Unmarshal(body, into); err != nil {
		return false, fmt.Errorf("error decoding draft %q: %w", namespace, err)
	}

	return true, nil
}

func (s *SQLiteStore) Save(namespace string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding draft %q: %w", namespace, err)
	}

	compressed, err := s.compressor.Compress(body)
	if err != nil {
		return fmt.Errorf("error compressing draft %q: %w", namespace, err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO drafts (namespace, body, modified_at) VALUES (?, ?, ?)`,
		namespace, compressed, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("error saving draft %q: %w", namespace, err)
	}

	draftLogger.Debug().Str("namespace", namespace).Int("bytes", len(compressed)).Msg("Draft saved")
	return nil
}

func (s *SQLiteStore) Clear(namespace string) error {
	_, err := s.db.Exec(`DELETE FROM drafts WHERE namespace = ?`, namespace)
	if err != nil {
		return fmt.Errorf("error clearing draft %q: %w", namespace, err)
	}

	draftLogger.Debug().Str("namespace", namespace).Msg("Draft cleared")
	return nil
}
