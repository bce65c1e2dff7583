package memory

import (
	"context"
	"sync"

	"github.com/statfuse/statfuse/internal/domain/rawrecord"
)

type archiveKey struct {
	provider  string
	kind      string
	entityKey string
}

// RawArchiveRepository keeps raw payload snapshots in process memory
// under the (provider, kind, entity_key) replacement key.
type RawArchiveRepository struct {
	mu    sync.RWMutex
	items map[archiveKey]rawrecord.ArchivedPayload
}

func NewRawArchiveRepository() *RawArchiveRepository {
	return &RawArchiveRepository{items: map[archiveKey]rawrecord.ArchivedPayload{}}
}

func (r *RawArchiveRepository) UpsertMany(_ context.Context, items []rawrecord.ArchivedPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		key := archiveKey{provider: item.Provider, kind: item.Kind, entityKey: item.EntityKey}
		r.items[key] = item
	}
	return nil
}

// Len reports how many distinct payloads are stored.
func (r *RawArchiveRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
