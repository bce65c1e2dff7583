package player

import (
	"context"

	"github.com/statfuse/statfuse/internal/domain/sport"
)

// Repository describes player persistence needs from the resolver.
//
// Create and AddProviderRef ride on the (sport, provider, provider
// native id) uniqueness constraint; a racing create resolves to the
// winner's row. UpdateSighting refreshes the soft team/position
// pointers without touching identity data.
type Repository interface {
	GetByProviderRef(ctx context.Context, s sport.Sport, provider, nativeID string) (Player, bool, error)
	ListByNormalizedName(ctx context.Context, s sport.Sport, normalizedName string) ([]Player, error)
	ListBySport(ctx context.Context, s sport.Sport) ([]Player, error)
	Create(ctx context.Context, item Player) (Player, error)
	AddProviderRef(ctx context.Context, playerID string, s sport.Sport, ref ProviderRef) error
	UpdateSighting(ctx context.Context, playerID, teamID, position string) error
}
