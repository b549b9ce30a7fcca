// Package staging validates candidate files and stores them locally against
// logical slots of entities that do not exist on the server yet.
package staging

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/flotillahq/flotilla/internal/blobstore"
	"github.com/flotillahq/flotilla/internal/draftstore"
	"github.com/flotillahq/flotilla/internal/keyindex"
	"github.com/flotillahq/flotilla/internal/model"
)

var stagingLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	stagingLogger = l
}

// Limits holds the validation policy. GalleryCaps maps a slot purpose to its
// maximum staged count; purposes without an entry are single-image slots with
// no cap beyond replacement.
type Limits struct {
	MaxFileSize int64
	GalleryCaps map[string]int
}

// File is one candidate upload.
type File struct {
	Name    string
	Content []byte
}

// RejectedFile records a file a batch could not stage, with the validation
// error that stopped it.
type RejectedFile struct {
	Name   string
	Reason error
}

// BatchResult reports a partially successful batch: everything that fit was
// staged, the rest is listed with reasons.
type BatchResult struct {
	Staged   []*Preview
	Rejected []RejectedFile
}

func (r *BatchResult) SkippedFull() int {
	n := 0
	for _, rej := range r.Rejected {
		if errors.Is(rej.Reason, ErrGalleryFull) {
			n++
		}
	}
	return n
}

type Orchestrator struct {
	blobs    blobstore.Store
	index    keyindex.Index
	drafts   draftstore.Store
	previews *PreviewStore

	limits Limits
}

func NewOrchestrator(blobs blobstore.Store, index keyindex.Index, drafts draftstore.Store, limits Limits) *Orchestrator {
	return &Orchestrator{
		blobs:    blobs,
		index:    index,
		drafts:   drafts,
		previews: NewPreviewStore(),

		limits: limits,
	}
}

func (o *Orchestrator) Previews() *PreviewStore {
	return o.previews
}

// Stage validates file content for a slot, writes it to the blob store,
// registers (or replaces) the slot's key index entry, and returns a preview
// handle. The blob write completes before the index points at it, so a crash
// in between leaves at worst an orphaned blob, never a dangling reference.
func (o *Orchestrator) Stage(key model.SlotKey, filename string, content []byte) (*Preview, error) {
	if int64(len(content)) > o.limits.MaxFileSize {
		return nil, fmt.Errorf("%w: %q is %d bytes, limit %d", ErrFileTooLarge, filename, len(content), o.limits.MaxFileSize)
	}

	prev, replaced, err := o.index.Get(key)
	if err != nil {
		return nil, fmt.Errorf("error checking slot %s: %w", key, err)
	}

	if limit, bounded := o.limits.GalleryCaps[key.Purpose()]; bounded && !replaced {
		count, err := o.stagedCount(key.Prefix())
		if err != nil {
			return nil, err
		}
		if count >= limit {
			return nil, fmt.Errorf("%w: %d staged under %s", ErrGalleryFull, count, key.Prefix())
		}
	}

	id, err := o.nextID(key.Prefix())
	if err != nil {
		return nil, err
	}

	if err := o.blobs.Save(id, filename, content); err != nil {
		return nil, err
	}
	if err := o.index.Set(key, id); err != nil {
		return nil, fmt.Errorf("error registering slot %s: %w", key, err)
	}

	// The index now points at the new blob; the replaced one is unreachable
	// and must not survive.
	if replaced && prev != id {
		if err := o.blobs.Delete(prev); err != nil {
			return nil, err
		}
	}

	stagingLogger.Info().
		Str("slot", key.String()).
		Uint64("blob_id", id).
		Str("filename", filename).
		Bool("replaced", replaced).
		Msg("File staged")

	return o.previews.Put(key, id, filename, content), nil
}

// StageBatch appends files to a gallery starting at its next free slot index.
// Files that do not fit are reported, not fatal.
func (o *Orchestrator) StageBatch(purpose string, entity model.EntityType, files []File) (*BatchResult, error) {
	prefix := model.SlotPrefix(purpose, entity)

	entries, err := o.index.ScanByPrefix(prefix)
	if err != nil {
		return nil, fmt.Errorf("error scanning gallery %q: %w", prefix, err)
	}

	nextIndex := 0
	for _, e := range entries {
		if e.Key.Index() >= nextIndex {
			nextIndex = e.Key.Index() + 1
		}
	}

	result := &BatchResult{}
	for _, file := range files {
		key, err := model.NewSlotKey(purpose, entity, nextIndex)
		if err != nil {
			return nil, err
		}

		preview, err := o.Stage(key, file.Name, file.Content)
		if err != nil {
			if !IsValidationError(err) {
				return nil, err
			}
			result.Rejected = append(result.Rejected, RejectedFile{Name: file.Name, Reason: err})
			continue
		}

		result.Staged = append(result.Staged, preview)
		nextIndex++
	}

	return result, nil
}

// Unstage deletes a slot's key index entry and its staged blob. Safe to call
// when nothing is staged.
func (o *Orchestrator) Unstage(key model.SlotKey) error {
	id, ok, err := o.index.Get(key)
	if err != nil {
		return fmt.Errorf("error checking slot %s: %w", key, err)
	}
	if !ok {
		return nil
	}

	if err := o.blobs.Delete(id); err != nil {
		return err
	}
	if err := o.index.Delete(key); err != nil {
		return fmt.Errorf("error deleting slot %s: %w", key, err)
	}
	o.previews.RevokeSlot(key)

	stagingLogger.Info().Str("slot", key.String()).Uint64("blob_id", id).Msg("Slot unstaged")
	return nil
}

// Staged returns the blob currently referenced by a slot, if any.
func (o *Orchestrator) Staged(key model.SlotKey) (*model.StagedBlob, bool, error) {
	id, ok, err := o.index.Get(key)
	if err != nil || !ok {
		return nil, false, err
	}

	blob, err := o.blobs.Get(id)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return blob, true, nil
}

// RemoveRow deletes draft row index from namespace, unstages the row's slot
// for the given purpose, and renumbers every higher slot down by one so that
// draft row i and slot index i stay aligned.
func (o *Orchestrator) RemoveRow(namespace, purpose string, entity model.EntityType, index int) error {
	removed, err := model.NewSlotKey(purpose, entity, index)
	if err != nil {
		return err
	}

	// Load the draft before touching any slot. A namespace whose draft is
	// not a row list fails here, leaving staged state untouched.
	var rows []interface{}
	found, err := o.drafts.Load(namespace, &rows)
	if err != nil {
		return fmt.Errorf("namespace %q does not hold row drafts: %w", namespace, err)
	}

	if err := o.Unstage(removed); err != nil {
		return err
	}

	entries, err := o.index.ScanByPrefix(removed.Prefix())
	if err != nil {
		return fmt.Errorf("error scanning %q for renumbering: %w", removed.Prefix(), err)
	}

	// Shift in ascending index order so a slot never lands on an occupied key.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key.Index() < entries[j].Key.Index()
	})

	for _, e := range entries {
		if e.Key.Index() <= index {
			continue
		}

		shifted, err := e.Key.WithIndex(e.Key.Index() - 1)
		if err != nil {
			return err
		}

		if err := o.index.Set(shifted, e.BlobID); err != nil {
			return fmt.Errorf("error renumbering %s: %w", e.Key, err)
		}
		if err := o.index.Delete(e.Key); err != nil {
			return fmt.Errorf("error removing renumbered %s: %w", e.Key, err)
		}
		o.previews.RekeySlot(e.Key, shifted)
	}

	if !found || index >= len(rows) {
		return nil
	}

	rows = append(rows[:index], rows[index+1:]...)
	if err := o.drafts.Save(namespace, rows); err != nil {
		return err
	}

	stagingLogger.Info().
		Str("namespace", namespace).
		Int("row", index).
		Int("renumbered", len(rows)-index).
		Msg("Draft row removed")
	return nil
}

// ClearAll discards every staged blob and key entry under the given prefixes
// plus the given draft namespaces. This is the explicit abandon path.
func (o *Orchestrator) ClearAll(prefixes []string, namespaces []string) error {
	for _, prefix := range prefixes {
		entries, err := o.index.ScanByPrefix(prefix)
		if err != nil {
			return fmt.Errorf("error scanning prefix %q: %w", prefix, err)
		}

		for _, e := range entries {
			if err := o.blobs.Delete(e.BlobID); err != nil {
				return err
			}
			if err := o.index.Delete(e.Key); err != nil {
				return fmt.Errorf("error deleting %s: %w", e.Key, err)
			}
			o.previews.RevokeSlot(e.Key)
		}
	}

	for _, namespace := range namespaces {
		if err := o.drafts.Clear(namespace); err != nil {
			return err
		}
	}

	stagingLogger.Info().Strs("prefixes", prefixes).Strs("namespaces", namespaces).Msg("Staged state cleared")
	return nil
}

func (o *Orchestrator) stagedCount(prefix string) (int, error) {
	entries, err := o.index.ScanByPrefix(prefix)
	if err != nil {
		return 0, fmt.Errorf("error counting staged entries under %q: %w", prefix, err)
	}
	return len(entries), nil
}

// nextID allocates a fresh blob id: one past the highest id ever referenced
// under this prefix, so deleting an entry mid-session can never cause a
// reuse. The blob store's own max id is taken as a floor to keep ids unique
// across prefixes in the single blob namespace.
func (o *Orchestrator) nextID(prefix string) (uint64, error) {
	entries, err := o.index.ScanByPrefix(prefix)
	if err != nil {
		return 0, fmt.Errorf("error scanning prefix %q for id allocation: %w", prefix, err)
	}

	var max uint64
	found := false
	for _, e := range entries {
		if !found || e.BlobID > max {
			max = e.BlobID
			found = true
		}
	}

	storeMax, storeFound, err := o.blobs.MaxID()
	if err != nil {
		return 0, err
	}
	if storeFound && (!found || storeMax > max) {
		max = storeMax
		found = true
	}

	if !found {
		return 0, nil
	}
	return max + 1, nil
}
