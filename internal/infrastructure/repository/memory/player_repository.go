package memory

import (
	"context"
	"sync"

	"github.com/statfuse/statfuse/internal/domain/player"
	"github.com/statfuse/statfuse/internal/domain/sport"
)

type providerRefKey struct {
	sport    sport.Sport
	provider string
	nativeID string
}

// PlayerRepository keeps players in process memory, enforcing the
// (sport, provider, native id) uniqueness the postgres schema carries.
type PlayerRepository struct {
	mu     sync.RWMutex
	items  map[string]player.Player
	orders []string
	byRef  map[providerRefKey]string
}

func NewPlayerRepository() *PlayerRepository {
	return &PlayerRepository{
		items: map[string]player.Player{},
		byRef: map[providerRefKey]string{},
	}
}

func (r *PlayerRepository) GetByProviderRef(_ context.Context, s sport.Sport, provider, nativeID string) (player.Player, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byRef[providerRefKey{sport: s, provider: provider, nativeID: nativeID}]
	if !ok {
		return player.Player{}, false, nil
	}
	return r.items[id], true, nil
}

func (r *PlayerRepository) ListByNormalizedName(_ context.Context, s sport.Sport, normalizedName string) ([]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []player.Player
	for _, id := range r.orders {
		item := r.items[id]
		if item.Sport == s && item.NormalizedName == normalizedName {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *PlayerRepository) ListBySport(_ context.Context, s sport.Sport) ([]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.Player, 0, len(r.orders))
	for _, id := range r.orders {
		if item := r.items[id]; item.Sport == s {
			out = append(out, item)
		}
	}
	return out, nil
}

// Create inserts the player unless one of its provider refs is already
// claimed, in which case the claiming player wins.
func (r *PlayerRepository) Create(_ context.Context, item player.Player) (player.Player, error) {
	if err := item.Validate(); err != nil {
		return player.Player{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ref := range item.ProviderRefs {
		key := providerRefKey{sport: item.Sport, provider: ref.Provider, nativeID: ref.NativeID}
		if id, ok := r.byRef[key]; ok {
			return r.items[id], nil
		}
	}

	r.items[item.ID] = item
	r.orders = append(r.orders, item.ID)
	for _, ref := range item.ProviderRefs {
		r.byRef[providerRefKey{sport: item.Sport, provider: ref.Provider, nativeID: ref.NativeID}] = item.ID
	}
	return item, nil
}

// AddProviderRef fuses a provider identity onto the player unless the
// triple already belongs to someone else.
func (r *PlayerRepository) AddProviderRef(_ context.Context, playerID string, s sport.Sport, ref player.ProviderRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := providerRefKey{sport: s, provider: ref.Provider, nativeID: ref.NativeID}
	if _, claimed := r.byRef[key]; claimed {
		return nil
	}
	item, ok := r.items[playerID]
	if !ok {
		return nil
	}

	item.ProviderRefs = append(item.ProviderRefs, ref)
	r.items[playerID] = item
	r.byRef[key] = playerID
	return nil
}

func (r *PlayerRepository) UpdateSighting(_ context.Context, playerID, teamID, position string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[playerID]
	if !ok {
		return nil
	}
	item.TeamID = teamID
	item.Position = position
	r.items[playerID] = item
	return nil
}
