package keyindex

import (
	"fmt"
	"strconv"
	"time"

	"github.com/flotillahq/flotilla/internal/db"
	"github.com/flotillahq/flotilla/internal/model"
)

type SQLiteIndex struct { // implements Index
	db db.DB
}

func NewSQLiteIndex(db db.DB) *SQLiteIndex {
	return &SQLiteIndex{db: db}
}

func (s *SQLiteIndex) Set(key model.SlotKey, blobID uint64) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO kv (key, value, modified_at) VALUES (?, ?, ?)`,
		key.String(), strconv.FormatUint(blobID, 10), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("error setting index entry %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteIndex) Get(key model.SlotKey) (uint64, bool, error) {
	rows, err := s.db.Query(`SELECT value FROM kv WHERE key = ?`, key.String())
	if err != nil {
		return 0, false, fmt.Errorf("error reading index entry %s: %w", key, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, false, nil
	}

	var value string
	if err := rows.Scan(&value); err != nil {
		return 0, false, fmt.Errorf("error scanning index entry %s: %w", key, err)
	}

	blobID, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt blob id %q for key %s: %w", value, key, err)
	}

	return blobID, true, nil
}

func (s *SQLiteIndex) Delete(key model.SlotKey) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key.String())
	if err != nil {
		return fmt.Errorf("error deleting index entry %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteIndex) ScanByPrefix(prefix string) ([]Entry, error) {
	// substr instead of LIKE: slot keys are full of underscores, which LIKE
	// would treat as single-character wildcards.
	rows, err := s.db.Query(
		`SELECT key, value FROM kv WHERE substr(key, 1, ?) = ?`,
		len(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("error scanning prefix %q: %w", prefix, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var keyStr, value string
		if err := rows.Scan(&keyStr, &value); err != nil {
			return nil, fmt.Errorf("error scanning row for prefix %q: %w", prefix, err)
		}

		key, err := model.ParseSlotKey(keyStr)
		if err != nil {
			// Scalar setting sharing the namespace, not a slot entry.
			continue
		}

		blobID, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			indexLogger.Warn().Str("key", keyStr).Str("value", value).Msg("Skipping index entry with non-numeric blob id")
			continue
		}

		entries = append(entries, Entry{Key: key, BlobID: blobID})
	}

	return entries, rows.Err()
}
