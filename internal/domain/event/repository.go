package event

import (
	"context"
	"time"

	"github.com/statfuse/statfuse/internal/domain/sport"
)

// Repository describes event persistence needs from the resolver and
// merger.
//
// GetByExternalRef consults both primary and secondary provider refs.
// Create rides on the (provider, external id) uniqueness constraint and
// resolves races to the winner's row. SetResult performs the one-way
// scheduled to completed transition and must refuse to alter scores that
// are already set (the merger decides what to do with the refusal).
type Repository interface {
	GetByExternalRef(ctx context.Context, s sport.Sport, provider, externalID string) (Event, bool, error)
	FindByTeamsAndDate(ctx context.Context, s sport.Sport, homeTeamID, awayTeamID string, day time.Time) ([]Event, error)
	GetByID(ctx context.Context, eventID string) (Event, bool, error)
	ListBySportAndDate(ctx context.Context, s sport.Sport, day time.Time) ([]Event, error)
	Create(ctx context.Context, item Event) (Event, error)
	AttachExternalRef(ctx context.Context, eventID string, ref ExternalRef) error
	SetResult(ctx context.Context, eventID string, homeScore, awayScore int) (Event, error)
}
