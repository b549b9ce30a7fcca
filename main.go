package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/flotillahq/flotilla/internal/blobstore"
	"github.com/flotillahq/flotilla/internal/commit"
	"github.com/flotillahq/flotilla/internal/config"
	"github.com/flotillahq/flotilla/internal/db"
	"github.com/flotillahq/flotilla/internal/draftstore"
	"github.com/flotillahq/flotilla/internal/keyindex"
	"github.com/flotillahq/flotilla/internal/logger"
	"github.com/flotillahq/flotilla/internal/model"
	"github.com/flotillahq/flotilla/internal/remote"
	"github.com/flotillahq/flotilla/internal/routes"
	"github.com/flotillahq/flotilla/internal/staging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file")
	}

	if err := config.LoadConfig("config.yaml"); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig

	l := logger.New(cfg.Logging.Level)
	config.SetLogger(l)
	db.SetLogger(l)
	blobstore.SetLogger(l)
	keyindex.SetLogger(l)
	draftstore.SetLogger(l)
	staging.SetLogger(l)
	commit.SetLogger(l)
	remote.SetLogger(l)

	database := db.NewSQLite(cfg.Storage.Path)
	if err := database.InitDB(); err != nil {
		l.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer database.Close()

	var blobs blobstore.Store = blobstore.NewSQLiteStore(database)
	if cfg.Storage.S3.Enabled {
		blobs = blobstore.NewS3Store(
			os.Getenv("S3_ACCESS_KEY_ID"),
			os.Getenv("S3_ACCESS_KEY_SECRET"),
			cfg.Storage.S3.Endpoint,
			cfg.Storage.S3.Bucket,
			cfg.Storage.S3.KeyPrefix,
		)
	}

	index := keyindex.NewSQLiteIndex(database)
	drafts := draftstore.NewSQLiteStore(database)

	orch := staging.NewOrchestrator(blobs, index, drafts, staging.Limits{
		MaxFileSize: cfg.Staging.MaxFileSizeBytes(),
		GalleryCaps: map[string]int{
			"galleryImageId": cfg.Staging.GalleryCap,
		},
	})

	api := remote.NewClient(cfg.Remote.BaseURL, time.Duration(cfg.Remote.TimeoutSeconds)*time.Second)
	state := model.NewStateTracker()
	pipe := commit.NewPipeline(blobs, index, drafts, api, orch.Previews(), state)

	h := &handlers{
		orch:   orch,
		pipe:   pipe,
		drafts: drafts,
		api:    api,
		state:  state,

		log: l,
	}

	mux := newMux(h)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	l.Info().Str("addr", addr).Msg("Console backend listening")
	log.Fatal(http.ListenAndServe(addr, mux))
}

func newMux(h *handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc(routes.HealthPath, h.handleHealth)
	mux.HandleFunc(routes.APIState, h.handleState)

	mux.HandleFunc(routes.APIStage, h.handleStage)
	mux.HandleFunc(routes.APIUnstage, h.handleUnstage)
	mux.HandleFunc(routes.APIPreview, h.handlePreview)

	mux.HandleFunc(routes.APIDraftGet, h.handleDraftGet)
	mux.HandleFunc(routes.APIDraftSave, h.handleDraftSave)
	mux.HandleFunc(routes.APIDraftClear, h.handleDraftClear)
	mux.HandleFunc(routes.APIRowRemove, h.handleRowRemove)
	mux.HandleFunc(routes.APIClearAll, h.handleClearAll)

	mux.HandleFunc(routes.APICreate, h.handleCreate)
	mux.HandleFunc(routes.APIUpdate, h.handleUpdate)

	return mux
}
