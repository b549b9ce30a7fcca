package model

import (
	"fmt"
	"strconv"
	"strings"
)

// SlotKey identifies one image attachment point: a purpose (coverImageId,
// galleryImageId, ...), an entity type and the positional index of the owning
// draft row. Its string form is the persistent key in the shared kv namespace.
//
// SlotKeys are only built through NewSlotKey and ParseSlotKey so that a
// malformed or colliding key cannot exist by construction.
type SlotKey struct {
	purpose string
	entity  EntityType
	index   int
}

const slotKeySep = "_"

func NewSlotKey(purpose string, entity EntityType, index int) (SlotKey, error) {
	if purpose == "" {
		return SlotKey{}, fmt.Errorf("slot key purpose is empty")
	}
	if strings.Contains(purpose, slotKeySep) {
		return SlotKey{}, fmt.Errorf("slot key purpose %q contains %q", purpose, slotKeySep)
	}
	if !entity.Valid() {
		return SlotKey{}, fmt.Errorf("unknown entity type %q", entity)
	}
	if index < 0 {
		return SlotKey{}, fmt.Errorf("negative slot index %d", index)
	}
	return SlotKey{purpose: purpose, entity: entity, index: index}, nil
}

// ParseSlotKey is the inverse of SlotKey.String. It rejects anything that is
// not a well-formed slot key, which lets prefix scans over the shared kv
// namespace skip unrelated scalar settings.
func ParseSlotKey(s string) (SlotKey, error) {
	parts := strings.Split(s, slotKeySep)
	if len(parts) != 3 {
		return SlotKey{}, fmt.Errorf("malformed slot key %q", s)
	}
	index, err := strconv.Atoi(parts[2])
	if err != nil {
		return SlotKey{}, fmt.Errorf("malformed slot index in key %q: %w", s, err)
	}
	return NewSlotKey(parts[0], EntityType(parts[1]), index)
}

func (k SlotKey) Purpose() string    { return k.purpose }
func (k SlotKey) Entity() EntityType { return k.entity }
func (k SlotKey) Index() int         { return k.index }

func (k SlotKey) String() string {
	return k.purpose + slotKeySep + string(k.entity) + slotKeySep + strconv.Itoa(k.index)
}

// Prefix returns the scan prefix covering every slot of the same purpose and
// entity type, regardless of index.
func (k SlotKey) Prefix() string {
	return SlotPrefix(k.purpose, k.entity)
}

// WithIndex returns a copy of the key pointing at a different row position.
// Used when rows are removed and higher slots are renumbered down.
func (k SlotKey) WithIndex(index int) (SlotKey, error) {
	return NewSlotKey(k.purpose, k.entity, index)
}

func SlotPrefix(purpose string, entity EntityType) string {
	return purpose + slotKeySep + string(entity) + slotKeySep
}
