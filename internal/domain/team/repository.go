package team

import (
	"context"

	"github.com/statfuse/statfuse/internal/domain/sport"
)

// Repository describes team persistence needs from the resolver.
//
// Create must be atomic with respect to the (sport, alias) uniqueness
// constraint: when two ingestion runs race to create the same team, the
// loser receives the winner's row instead of an error or a duplicate.
type Repository interface {
	GetByAlias(ctx context.Context, s sport.Sport, alias string) (Team, bool, error)
	ListBySport(ctx context.Context, s sport.Sport) ([]Team, error)
	Create(ctx context.Context, item Team) (Team, error)
	AddAlias(ctx context.Context, teamID string, s sport.Sport, alias string) error
}
