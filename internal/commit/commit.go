// Package commit pushes staged images to the catalog API once a real server
// identifier exists, and cleans up local staged state on success.
package commit

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/flotillahq/flotilla/internal/blobstore"
	"github.com/flotillahq/flotilla/internal/draftstore"
	"github.com/flotillahq/flotilla/internal/keyindex"
	"github.com/flotillahq/flotilla/internal/model"
)

var commitLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	commitLogger = l
}

// Collaborator is the slice of the catalog API the pipeline needs.
// remote.Client satisfies it.
type Collaborator interface {
	UploadImage(ctx context.Context, entityID string, entityType model.EntityType, imageType, filename string, content []byte) (uploadedImageID string, err error)
	DeleteImage(ctx context.Context, uploadedImageID string) error
}

// SlotRevoker invalidates preview handles for slots whose staged bytes no
// longer exist. staging.PreviewStore satisfies it.
type SlotRevoker interface {
	RevokeSlot(key model.SlotKey)
}

// UploadedSlot records one successful upload.
type UploadedSlot struct {
	Key     model.SlotKey
	ImageID string
}

// FailedSlot records one upload that did not go through. Its local staged
// state is retained so a later Commit can retry it.
type FailedSlot struct {
	Key model.SlotKey
	Err error
}

// Report is the outcome of one Commit run.
type Report struct {
	Prefix string

	Uploaded []UploadedSlot
	Failed   []FailedSlot

	// Stale lists index entries whose blob was missing locally; the entry is
	// removed and the slot skipped rather than failing the run.
	Stale []model.SlotKey

	DraftsCleared bool
}

func (r *Report) OK() bool {
	return len(r.Failed) == 0
}

type Pipeline struct {
	blobs    blobstore.Store
	index    keyindex.Index
	drafts   draftstore.Store
	api      Collaborator
	previews SlotRevoker

	state *model.StateTracker
}

func NewPipeline(blobs blobstore.Store, index keyindex.Index, drafts draftstore.Store, api Collaborator, previews SlotRevoker, state *model.StateTracker) *Pipeline {
	return &Pipeline{
		blobs:    blobs,
		index:    index,
		drafts:   drafts,
		api:      api,
		previews: previews,

		state: state,
	}
}

// Commit uploads every staged slot under prefix to the server entity and
// deletes the local copy of each slot that went through. Failed slots stay
// staged and are listed in the report, so calling Commit again on unchanged
// state retries exactly the failures. The draft namespaces are cleared only
// when no staged entry remains under the prefix.
func (p *Pipeline) Commit(ctx context.Context, prefix, serverEntityID, imageType string, namespaces ...string) (*Report, error) {
	p.state.Set(model.Uploading{Field: prefix})
	defer p.state.Set(model.Idle{})

	entries, err := p.index.ScanByPrefix(prefix)
	if err != nil {
		return nil, fmt.Errorf("error scanning prefix %q: %w", prefix, err)
	}

	report := &Report{Prefix: prefix}

	for _, entry := range entries {
		blob, err := p.blobs.Get(entry.BlobID)
		if errors.Is(err, blobstore.ErrNotFound) {
			// Soft inconsistency: the index points at a blob that no longer
			// exists locally. Drop the entry and move on.
			commitLogger.Warn().Str("slot", entry.Key.String()).Uint64("blob_id", entry.BlobID).Msg("Stale index entry, removing")
			if err := p.index.Delete(entry.Key); err != nil {
				return nil, fmt.Errorf("error removing stale entry %s: %w", entry.Key, err)
			}
			p.previews.RevokeSlot(entry.Key)
			report.Stale = append(report.Stale, entry.Key)
			continue
		}
		if err != nil {
			report.Failed = append(report.Failed, FailedSlot{Key: entry.Key, Err: err})
			continue
		}

		imageID, err := p.api.UploadImage(ctx, serverEntityID, entry.Key.Entity(), imageType, blob.Filename, blob.Content)
		if err != nil {
			commitLogger.Error().Err(err).Str("slot", entry.Key.String()).Msg("Upload failed, slot retained")
			report.Failed = append(report.Failed, FailedSlot{Key: entry.Key, Err: err})
			continue
		}

		// Upload confirmed; the local copy must not survive.
		if err := p.blobs.Delete(entry.BlobID); err != nil {
			return nil, err
		}
		if err := p.index.Delete(entry.Key); err != nil {
			return nil, fmt.Errorf("error deleting committed entry %s: %w", entry.Key, err)
		}
		p.previews.RevokeSlot(entry.Key)

		report.Uploaded = append(report.Uploaded, UploadedSlot{Key: entry.Key, ImageID: imageID})

		commitLogger.Info().
			Str("slot", entry.Key.String()).
			Str("entity_id", serverEntityID).
			Str("image_id", imageID).
			Msg("Staged image committed")
	}

	if report.OK() {
		for _, namespace := range namespaces {
			if err := p.drafts.Clear(namespace); err != nil {
				return nil, err
			}
		}
		report.DraftsCleared = len(namespaces) > 0
	}

	return report, nil
}

// CommitReplace handles an update of a sub-resource that already carries a
// server-side image. When a replacement is staged locally, the old remote
// image is deleted first, then the new one uploaded, then the local copy
// cleared. When nothing is staged the remote image is left untouched and the
// returned image id is empty.
func (p *Pipeline) CommitReplace(ctx context.Context, key model.SlotKey, serverEntityID, imageType, oldImageID string) (string, error) {
	p.state.Set(model.Uploading{Field: key.Prefix()})
	defer p.state.Set(model.Idle{})

	blobID, ok, err := p.index.Get(key)
	if err != nil {
		return "", fmt.Errorf("error checking slot %s: %w", key, err)
	}
	if !ok {
		return "", nil
	}

	blob, err := p.blobs.Get(blobID)
	if errors.Is(err, blobstore.ErrNotFound) {
		commitLogger.Warn().Str("slot", key.String()).Uint64("blob_id", blobID).Msg("Stale index entry, removing")
		if err := p.index.Delete(key); err != nil {
			return "", fmt.Errorf("error removing stale entry %s: %w", key, err)
		}
		p.previews.RevokeSlot(key)
		return "", nil
	}
	if err != nil {
		return "", err
	}

	if oldImageID != "" {
		if err := p.api.DeleteImage(ctx, oldImageID); err != nil {
			// The staged replacement stays put for a retry.
			return "", fmt.Errorf("error deleting replaced image %s: %w", oldImageID, err)
		}
	}

	imageID, err := p.api.UploadImage(ctx, serverEntityID, key.Entity(), imageType, blob.Filename, blob.Content)
	if err != nil {
		return "", fmt.Errorf("error uploading replacement for %s: %w", key, err)
	}

	if err := p.blobs.Delete(blobID); err != nil {
		return "", err
	}
	if err := p.index.Delete(key); err != nil {
		return "", fmt.Errorf("error deleting committed entry %s: %w", key, err)
	}
	p.previews.RevokeSlot(key)

	commitLogger.Info().
		Str("slot", key.String()).
		Str("entity_id", serverEntityID).
		Str("old_image_id", oldImageID).
		Str("image_id", imageID).
		Msg("Server-side image replaced")

	return imageID, nil
}
