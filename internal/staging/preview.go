package staging

import (
	"sync"

	"github.com/google/uuid"

	"github.com/flotillahq/flotilla/internal/cache"
	"github.com/flotillahq/flotilla/internal/model"
	"github.com/flotillahq/flotilla/internal/util"
)

// Preview is a revocable in-memory handle to a freshly staged image, meant
// for immediate display. Previews do not survive a restart; the staged bytes
// themselves do, in the blob store.
type Preview struct {
	Token    string
	Key      model.SlotKey
	BlobID   uint64
	Filename string
	Content  []byte

	// ContentHash doubles as the preview ETag.
	ContentHash string
}

type PreviewStore struct {
	byToken *cache.Cache[string, *Preview]

	mu     sync.Mutex
	bySlot map[string]string // slot key string -> token
}

func NewPreviewStore() *PreviewStore {
	return &PreviewStore{
		byToken: cache.NewCache[string, *Preview](),
		bySlot:  make(map[string]string),
	}
}

// Put registers a preview for a slot, revoking any previous preview for the
// same slot. At most one preview is reachable per slot.
func (p *PreviewStore) Put(key model.SlotKey, blobID uint64, filename string, content []byte) *Preview {
	preview := &Preview{
		Token:       uuid.New().String(),
		Key:         key,
		BlobID:      blobID,
		Filename:    filename,
		Content:     content,
		ContentHash: util.ContentHash(content),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if old, ok := p.bySlot[key.String()]; ok {
		p.byToken.Delete(old)
	}
	p.bySlot[key.String()] = preview.Token
	p.byToken.Set(preview.Token, preview)

	return preview
}

func (p *PreviewStore) Get(token string) (*Preview, bool) {
	return p.byToken.Get(token)
}

func (p *PreviewStore) Revoke(token string) {
	preview, ok := p.byToken.Get(token)
	if !ok {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.byToken.Delete(token)
	if p.bySlot[preview.Key.String()] == token {
		delete(p.bySlot, preview.Key.String())
	}
}

func (p *PreviewStore) RevokeSlot(key model.SlotKey) {
	p.mu.Lock()
	defer p.mu.Unlock()

	token, ok := p.bySlot[key.String()]
	if !ok {
		return
	}
	p.byToken.Delete(token)
	delete(p.bySlot, key.String())
}

// RekeySlot moves a slot's preview to a new key, keeping the token valid.
// Used when rows are removed and higher slots are renumbered down.
func (p *PreviewStore) RekeySlot(from, to model.SlotKey) {
	p.mu.Lock()
	defer p.mu.Unlock()

	token, ok := p.bySlot[from.String()]
	if !ok {
		return
	}

	delete(p.bySlot, from.String())

	if preview, ok := p.byToken.Get(token); ok {
		preview.Key = to
		p.bySlot[to.String()] = token
	}
}
