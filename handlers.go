package main

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/flotillahq/flotilla/internal/commit"
	"github.com/flotillahq/flotilla/internal/config"
	"github.com/flotillahq/flotilla/internal/draftstore"
	"github.com/flotillahq/flotilla/internal/model"
	"github.com/flotillahq/flotilla/internal/remote"
	"github.com/flotillahq/flotilla/internal/staging"
)

// entityDef binds a URL path segment to its entity type, draft namespace and
// the image slot purposes its rows carry. rowList marks namespaces whose
// draft is a list of sub-resource rows; the boat draft is a single object and
// has no rows to remove.
type entityDef struct {
	entityType model.EntityType
	namespace  string
	purposes   []string
	rowList    bool
}

var entityDefs = map[string]entityDef{
	"boats":        {model.EntityBoat, "boat", []string{"coverImageId", "galleryImageId"}, false},
	"cabins":       {model.EntityCabin, "cabins", []string{"coverImageId"}, true},
	"experiences":  {model.EntityExperience, "experiences", []string{"coverImageId"}, true},
	"facilities":   {model.EntityFacility, "facilities", []string{"coverImageId"}, true},
	"decks":        {model.EntityDeck, "decks", []string{"coverImageId"}, true},
	"destinations": {model.EntityDestination, "destinations", []string{"coverImageId"}, true},
}

// imageTypeFor maps a slot purpose to the upload endpoint's imageType field.
func imageTypeFor(purpose string) string {
	return strings.TrimSuffix(purpose, "Id")
}

type handlers struct {
	orch   *staging.Orchestrator
	pipe   *commit.Pipeline
	drafts draftstore.Store
	api    *remote.Client
	state  *model.StateTracker

	log zerolog.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"state": h.state.Current().Label()})
}

type stagedResponse struct {
	Token    string `json:"token"`
	Slot     string `json:"slot"`
	BlobID   uint64 `json:"blobId"`
	Filename string `json:"filename"`
}

type rejectedResponse struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// handleStage accepts one or many files for an entity's image slots. With a
// slotIndex form field the first file goes into exactly that slot; without
// one the files are appended to the purpose's gallery, staging as many as
// fit.
func (h *handlers) handleStage(w http.ResponseWriter, r *http.Request) {
	def, ok := entityDefs[r.PathValue("entity")]
	if !ok {
		http.NotFound(w, r)
		return
	}

	// One MiB over the staging limit so an oversized file reaches the
	// orchestrator and earns its proper validation error.
	if err := r.ParseMultipartForm(config.AppConfig.Staging.MaxFileSizeBytes() + 1<<20); err != nil {
		http.Error(w, config.ErrBadRequest, http.StatusBadRequest)
		return
	}

	purpose := r.FormValue(config.FormFieldPurpose)
	if purpose == "" {
		purpose = "coverImageId"
	}

	files := r.MultipartForm.File[config.FormFieldFile]
	if len(files) == 0 {
		http.Error(w, "no file provided", http.StatusBadRequest)
		return
	}

	if indexValue := r.FormValue(config.FormFieldSlotIndex); indexValue != "" {
		index, err := strconv.Atoi(indexValue)
		if err != nil {
			http.Error(w, config.ErrBadRequest, http.StatusBadRequest)
			return
		}
		key, err := model.NewSlotKey(purpose, def.entityType, index)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		content, filename, err := readUpload(files[0])
		if err != nil {
			http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
			return
		}

		preview, err := h.orch.Stage(key, filename, content)
		if err != nil {
			if staging.IsValidationError(err) {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
				return
			}
			h.log.Error().Err(err).Str("slot", key.String()).Msg("Staging failed")
			http.Error(w, fmt.Sprintf(config.ErrStageFileFmt, err), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, stagedResponse{
			Token:    preview.Token,
			Slot:     preview.Key.String(),
			BlobID:   preview.BlobID,
			Filename: preview.Filename,
		})
		return
	}

	var batch []staging.File
	for _, header := range files {
		content, filename, err := readUpload(header)
		if err != nil {
			http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
			return
		}
		batch = append(batch, staging.File{Name: filename, Content: content})
	}

	result, err := h.orch.StageBatch(purpose, def.entityType, batch)
	if err != nil {
		h.log.Error().Err(err).Str("entity", string(def.entityType)).Msg("Batch staging failed")
		http.Error(w, fmt.Sprintf(config.ErrStageFileFmt, err), http.StatusInternalServerError)
		return
	}

	staged := make([]stagedResponse, 0, len(result.Staged))
	for _, preview := range result.Staged {
		staged = append(staged, stagedResponse{
			Token:    preview.Token,
			Slot:     preview.Key.String(),
			BlobID:   preview.BlobID,
			Filename: preview.Filename,
		})
	}
	rejected := make([]rejectedResponse, 0, len(result.Rejected))
	for _, rej := range result.Rejected {
		rejected = append(rejected, rejectedResponse{Filename: rej.Name, Reason: rej.Reason.Error()})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"staged":      staged,
		"rejected":    rejected,
		"skippedFull": result.SkippedFull(),
	})
}

func readUpload(header *multipart.FileHeader) ([]byte, string, error) {
	file, err := header.Open()
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return content, header.Filename, nil
}

func (h *handlers) handleUnstage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, config.ErrBadRequest, http.StatusBadRequest)
		return
	}

	key, err := model.NewSlotKey(r.PathValue("purpose"), model.EntityType(r.PathValue("entity")), index)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.orch.Unstage(key); err != nil {
		h.log.Error().Err(err).Str("slot", key.String()).Msg("Unstage failed")
		http.Error(w, fmt.Sprintf(config.ErrUnstageSlotFmt, err), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) handlePreview(w http.ResponseWriter, r *http.Request) {
	preview, ok := h.orch.Previews().Get(r.PathValue("token"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	// Previews are revocable; never let an intermediary cache them.
	w.Header().Set(config.HCacheControl, "no-store")
	w.Header().Set(config.HETag, preview.ContentHash)
	w.Header().Set(config.HCType, http.DetectContentType(preview.Content))
	w.WriteHeader(http.StatusOK)
	w.Write(preview.Content)
}

func (h *handlers) handleDraftGet(w http.ResponseWriter, r *http.Request) {
	namespace := r.PathValue("namespace")

	h.state.Set(model.Fetching{})
	defer h.state.Set(model.Idle{})

	var draft json.RawMessage
	found, err := h.drafts.Load(namespace, &draft)
	if err != nil {
		h.log.Error().Err(err).Str("namespace", namespace).Msg("Draft load failed")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}
	if !found {
		// Caller-side default: an empty list for sub-resource namespaces.
		draft = json.RawMessage("[]")
	}

	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(http.StatusOK)
	w.Write(draft)
}

// handleDraftSave persists the posted body verbatim. Write-through: the
// response is only sent after the draft is durably stored.
func (h *handlers) handleDraftSave(w http.ResponseWriter, r *http.Request) {
	namespace := r.PathValue("namespace")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, config.ErrBadRequest, http.StatusBadRequest)
		return
	}

	var draft json.RawMessage
	if err := json.Unmarshal(body, &draft); err != nil {
		http.Error(w, "draft body must be JSON", http.StatusBadRequest)
		return
	}

	if err := h.drafts.Save(namespace, draft); err != nil {
		h.log.Error().Err(err).Str("namespace", namespace).Msg("Draft save failed")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) handleDraftClear(w http.ResponseWriter, r *http.Request) {
	namespace := r.PathValue("namespace")

	if err := h.drafts.Clear(namespace); err != nil {
		h.log.Error().Err(err).Str("namespace", namespace).Msg("Draft clear failed")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleRowRemove deletes one sub-resource row along with its staged image,
// renumbering higher rows so drafts and slots stay aligned.
func (h *handlers) handleRowRemove(w http.ResponseWriter, r *http.Request) {
	def, ok := entityDefs[r.PathValue("entity")]
	if !ok || !def.rowList {
		http.NotFound(w, r)
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		http.Error(w, config.ErrBadRequest, http.StatusBadRequest)
		return
	}

	for _, purpose := range def.purposes {
		if err := h.orch.RemoveRow(def.namespace, purpose, def.entityType, index); err != nil {
			h.log.Error().Err(err).Str("namespace", def.namespace).Int("row", index).Msg("Row removal failed")
			http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

type commitResponse struct {
	ID       string   `json:"id"`
	Uploaded int      `json:"uploaded"`
	Failed   []string `json:"failed,omitempty"`
	Stale    []string `json:"stale,omitempty"`
}

// handleCreate forwards the draft body to the catalog API and, once a server
// id exists, commits every staged slot of the entity. The draft namespace is
// cleared only when no staged entry remains.
func (h *handlers) handleCreate(w http.ResponseWriter, r *http.Request) {
	h.createOrUpdate(w, r, "")
}

func (h *handlers) handleUpdate(w http.ResponseWriter, r *http.Request) {
	h.createOrUpdate(w, r, r.PathValue("id"))
}

func (h *handlers) createOrUpdate(w http.ResponseWriter, r *http.Request, id string) {
	segment := r.PathValue("entity")
	def, ok := entityDefs[segment]
	if !ok {
		http.NotFound(w, r)
		return
	}

	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "entity body must be JSON", http.StatusBadRequest)
		return
	}

	h.state.Set(model.Submitting{})

	var serverID string
	var err error
	if id == "" {
		serverID, err = h.api.CreateEntity(r.Context(), segment, body)
	} else {
		serverID, err = h.api.UpdateEntity(r.Context(), segment, id, body)
	}
	if err != nil {
		h.state.Set(model.Idle{})
		h.log.Error().Err(err).Str("entity", segment).Msg("Entity call failed")
		http.Error(w, config.ErrInternalServerError, http.StatusBadGateway)
		return
	}

	// Replace-on-update: an update naming the old server-side cover swaps it
	// for the staged one instead of running the full pipeline for that slot.
	if oldImageID := r.URL.Query().Get("oldImageId"); id != "" && oldImageID != "" {
		h.replaceCover(w, r, def, serverID, oldImageID)
		return
	}

	response := commitResponse{ID: serverID}
	allOK := true
	for _, purpose := range def.purposes {
		prefix := model.SlotPrefix(purpose, def.entityType)
		report, err := h.pipe.Commit(r.Context(), prefix, serverID, imageTypeFor(purpose))
		if err != nil {
			h.log.Error().Err(err).Str("prefix", prefix).Msg("Commit failed")
			http.Error(w, fmt.Sprintf(config.ErrCommitPrefixFmt, err), http.StatusInternalServerError)
			return
		}

		response.Uploaded += len(report.Uploaded)
		for _, failed := range report.Failed {
			allOK = false
			response.Failed = append(response.Failed, failed.Key.String())
		}
		for _, stale := range report.Stale {
			response.Stale = append(response.Stale, stale.String())
		}
	}

	// A namespace is only cleared once every one of its prefixes committed
	// cleanly; pending slots keep the draft alive for the retry.
	if allOK {
		if err := h.drafts.Clear(def.namespace); err != nil {
			h.log.Error().Err(err).Str("namespace", def.namespace).Msg("Draft clear failed")
			http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
			return
		}
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusAccepted
	}
	writeJSON(w, status, response)
}

func (h *handlers) replaceCover(w http.ResponseWriter, r *http.Request, def entityDef, serverID, oldImageID string) {
	index := 0
	if indexValue := r.URL.Query().Get(config.FormFieldSlotIndex); indexValue != "" {
		parsed, err := strconv.Atoi(indexValue)
		if err != nil {
			http.Error(w, config.ErrBadRequest, http.StatusBadRequest)
			return
		}
		index = parsed
	}

	key, err := model.NewSlotKey("coverImageId", def.entityType, index)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	imageID, err := h.pipe.CommitReplace(r.Context(), key, serverID, imageTypeFor("coverImageId"), oldImageID)
	if err != nil {
		h.log.Error().Err(err).Str("slot", key.String()).Msg("Replace failed")
		http.Error(w, fmt.Sprintf(config.ErrCommitPrefixFmt, err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": serverID, "imageId": imageID})
}

// handleClearAll abandons every draft and staged image of an entity kind.
func (h *handlers) handleClearAll(w http.ResponseWriter, r *http.Request) {
	def, ok := entityDefs[r.PathValue("entity")]
	if !ok {
		http.NotFound(w, r)
		return
	}

	prefixes := make([]string, 0, len(def.purposes))
	for _, purpose := range def.purposes {
		prefixes = append(prefixes, model.SlotPrefix(purpose, def.entityType))
	}

	if err := h.orch.ClearAll(prefixes, []string{def.namespace}); err != nil {
		h.log.Error().Err(err).Str("entity", string(def.entityType)).Msg("Clear-all failed")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
