package keyindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/flotillahq/flotilla/internal/db"
	"github.com/flotillahq/flotilla/internal/model"
)

func sqliteIndex(t *testing.T) (*SQLiteIndex, db.DB) {
	t.Helper()
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))
	db.SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))

	database := db.NewSQLite(filepath.Join(t.TempDir(), "kv.db"))
	if err := database.InitDB(); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewSQLiteIndex(database), database
}

func slot(t *testing.T, purpose string, entity model.EntityType, index int) model.SlotKey {
	t.Helper()
	key, err := model.NewSlotKey(purpose, entity, index)
	if err != nil {
		t.Fatalf("Failed to build slot key: %v", err)
	}
	return key
}

func TestIndexContract(t *testing.T) {
	sqlite, _ := sqliteIndex(t)
	indexes := map[string]Index{
		"memory": NewMemoryIndex(),
		"sqlite": sqlite,
	}

	for name, index := range indexes {
		t.Run(name, func(t *testing.T) {
			key := slot(t, "coverImageId", model.EntityCabin, 0)

			t.Run("Get absent", func(t *testing.T) {
				_, ok, err := index.Get(key)
				if err != nil {
					t.Fatalf("Get failed: %v", err)
				}
				if ok {
					t.Error("Expected absent entry")
				}
			})

			t.Run("Set and Get", func(t *testing.T) {
				if err := index.Set(key, 7); err != nil {
					t.Fatalf("Set failed: %v", err)
				}

				blobID, ok, err := index.Get(key)
				if err != nil {
					t.Fatalf("Get failed: %v", err)
				}
				if !ok || blobID != 7 {
					t.Errorf("Expected blob id 7, got %d (ok=%v)", blobID, ok)
				}
			})

			t.Run("Set overwrites", func(t *testing.T) {
				if err := index.Set(key, 9); err != nil {
					t.Fatalf("Set failed: %v", err)
				}

				blobID, ok, _ := index.Get(key)
				if !ok || blobID != 9 {
					t.Errorf("Expected blob id 9 after overwrite, got %d", blobID)
				}
			})

			t.Run("Delete and Delete again", func(t *testing.T) {
				if err := index.Delete(key); err != nil {
					t.Fatalf("Delete failed: %v", err)
				}
				if _, ok, _ := index.Get(key); ok {
					t.Error("Expected entry to be gone")
				}
				// Absent delete is a no-op
				if err := index.Delete(key); err != nil {
					t.Errorf("Expected no error deleting absent key, got %v", err)
				}
			})
		})
	}
}

func TestScanByPrefix(t *testing.T) {
	sqlite, database := sqliteIndex(t)
	indexes := map[string]Index{
		"memory": NewMemoryIndex(),
		"sqlite": sqlite,
	}

	for name, index := range indexes {
		t.Run(name, func(t *testing.T) {
			cabin0 := slot(t, "coverImageId", model.EntityCabin, 0)
			cabin1 := slot(t, "coverImageId", model.EntityCabin, 1)
			deck0 := slot(t, "coverImageId", model.EntityDeck, 0)
			gallery0 := slot(t, "galleryImageId", model.EntityBoat, 0)

			for i, key := range []model.SlotKey{cabin0, cabin1, deck0, gallery0} {
				if err := index.Set(key, uint64(i)); err != nil {
					t.Fatalf("Set failed: %v", err)
				}
			}

			t.Run("Completeness per prefix", func(t *testing.T) {
				entries, err := index.ScanByPrefix(model.SlotPrefix("coverImageId", model.EntityCabin))
				if err != nil {
					t.Fatalf("ScanByPrefix failed: %v", err)
				}
				if len(entries) != 2 {
					t.Fatalf("Expected 2 cabin entries, got %d", len(entries))
				}

				seen := map[int]bool{}
				for _, e := range entries {
					seen[e.Key.Index()] = true
				}
				if !seen[0] || !seen[1] {
					t.Errorf("Expected indices 0 and 1, got %v", seen)
				}
			})

			t.Run("Prefix does not leak across entity types", func(t *testing.T) {
				entries, err := index.ScanByPrefix(model.SlotPrefix("coverImageId", model.EntityDeck))
				if err != nil {
					t.Fatalf("ScanByPrefix failed: %v", err)
				}
				if len(entries) != 1 || entries[0].Key.Entity() != model.EntityDeck {
					t.Errorf("Expected exactly the deck entry, got %v", entries)
				}
			})

			t.Run("Empty prefix scan of unknown purpose", func(t *testing.T) {
				entries, err := index.ScanByPrefix(model.SlotPrefix("bannerImageId", model.EntityBoat))
				if err != nil {
					t.Fatalf("ScanByPrefix failed: %v", err)
				}
				if len(entries) != 0 {
					t.Errorf("Expected no entries, got %d", len(entries))
				}
			})
		})
	}

	t.Run("sqlite skips scalar settings sharing the namespace", func(t *testing.T) {
		// A draft-linked flag in the same kv table, not a slot entry.
		if _, err := database.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)`, "coverImageId_CABIN_pending", "true"); err != nil {
			t.Fatalf("Failed to insert scalar setting: %v", err)
		}

		entries, err := sqlite.ScanByPrefix(model.SlotPrefix("coverImageId", model.EntityCabin))
		if err != nil {
			t.Fatalf("ScanByPrefix failed: %v", err)
		}
		for _, e := range entries {
			if e.Key.String() == "coverImageId_CABIN_pending" {
				t.Error("Expected scalar setting to be skipped")
			}
		}
	})
}
