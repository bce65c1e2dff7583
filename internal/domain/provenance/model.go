package provenance

import (
	"time"

	"github.com/statfuse/statfuse/internal/domain/sport"
)

const (
	WarningAmbiguousPlayer = "ambiguous_player"
	WarningAmbiguousEvent  = "ambiguous_event"
	WarningUnresolvedName  = "unresolved_name"

	ConflictEventScores = "event_scores"
	ConflictStatField   = "stat_field"
)

// Warning records an entity resolution that could not confidently match
// an existing identity and fell back to creating a new one. Warnings
// are review material, never failures.
type Warning struct {
	ID         int64
	Kind       string
	Provider   string
	Sport      sport.Sport
	Subject    string
	Detail     string
	OccurredAt time.Time
}

// Conflict records a merge that was rejected to protect existing data:
// a finalized event reported with different scores, or a stat field a
// lower-priority source tried to overwrite.
type Conflict struct {
	ID            int64
	Kind          string
	Provider      string
	Sport         sport.Sport
	EventID       string
	PlayerID      string
	Field         string
	KeptValue     string
	RejectedValue string
	OccurredAt    time.Time
}

// RunRecord is the persisted summary of one ingestion run.
type RunRecord struct {
	ID         int64
	Provider   string
	Sport      sport.Sport
	Inserted   int
	Updated    int
	Skipped    int
	Ambiguous  int
	Conflicts  int
	Errors     int
	StartedAt  time.Time
	FinishedAt time.Time
}
