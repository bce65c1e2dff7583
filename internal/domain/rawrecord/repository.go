package rawrecord

import (
	"context"
	"time"

	"github.com/statfuse/statfuse/internal/domain/sport"
)

// ArchivedPayload is the audit copy of a provider record as it arrived,
// before any normalization touched it. EntityKey is the provider-native
// identifier of whatever the record describes (event id, player id).
type ArchivedPayload struct {
	Provider    string
	Sport       sport.Sport
	Kind        string
	EntityKey   string
	PayloadJSON string
	PayloadHash string
	ReceivedAt  time.Time
}

// ArchiveRepository persists raw payload snapshots keyed on
// (provider, kind, entity_key). Re-ingesting the same payload replaces
// the stored copy.
type ArchiveRepository interface {
	UpsertMany(ctx context.Context, items []ArchivedPayload) error
}
