package gamestat

import "context"

// Repository describes stat persistence needs from the merger.
//
// Upsert writes the full merged record under the (event_id, player_id)
// uniqueness constraint via insert-on-conflict, so two runs racing on
// the same pair can never produce two rows. The merge policy itself is
// computed by the merger before calling Upsert.
type Repository interface {
	Get(ctx context.Context, eventID, playerID string) (Record, bool, error)
	ListByEvent(ctx context.Context, eventID string) ([]Record, error)
	ListRecentByPlayer(ctx context.Context, playerID string, limit int) ([]Record, error)
	Upsert(ctx context.Context, record Record) (created bool, err error)
}
