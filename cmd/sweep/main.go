package main

import (
	"flag"
	"log"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/flotillahq/flotilla/internal/blobstore"
	"github.com/flotillahq/flotilla/internal/config"
	"github.com/flotillahq/flotilla/internal/db"
	"github.com/flotillahq/flotilla/internal/draftstore"
	"github.com/flotillahq/flotilla/internal/keyindex"
	"github.com/flotillahq/flotilla/internal/staging"
)

// main is the entry point of the script, wiping abandoned staged state from a
// console database.
func main() {
	// Define command-line flags
	path := flag.String("path", "./flotilla.db", "Path to the console sqlite database")
	prefixes := flag.String("prefixes", "", "Comma-separated slot prefixes to sweep (e.g. galleryImageId_BOAT_)")
	namespaces := flag.String("namespaces", "", "Comma-separated draft namespaces to clear")
	flag.Parse()

	// Validate required flags
	if *prefixes == "" && *namespaces == "" {
		log.Fatal("At least one of --prefixes and --namespaces is required")
	}

	// Initialize the SQLite database and ensure tables exist
	DB := db.NewSQLite(*path)
	if err := DB.InitDB(); err != nil {
		log.Fatalf(config.ErrInitializeDatabaseFmt, err)
	}
	defer DB.Close()

	orch := staging.NewOrchestrator(
		blobstore.NewSQLiteStore(DB),
		keyindex.NewSQLiteIndex(DB),
		draftstore.NewSQLiteStore(DB),
		staging.Limits{},
	)

	if err := orch.ClearAll(splitList(*prefixes), splitList(*namespaces)); err != nil {
		log.Fatalf("Error sweeping staged state: %v", err)
	}

	log.Printf("Swept prefixes=%q namespaces=%q from %s", *prefixes, *namespaces, *path)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
