package provenance

import "context"

// Repository is append-only review material; nothing in the ingestion
// path reads it back.
type Repository interface {
	RecordWarning(ctx context.Context, warning Warning) error
	RecordConflict(ctx context.Context, conflict Conflict) error
	RecordRun(ctx context.Context, run RunRecord) error
	ListRecentConflicts(ctx context.Context, limit int) ([]Conflict, error)
	ListRecentWarnings(ctx context.Context, limit int) ([]Warning, error)
}
