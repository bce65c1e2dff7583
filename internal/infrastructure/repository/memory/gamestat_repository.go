package memory

import (
	"context"
	"sync"

	"github.com/statfuse/statfuse/internal/domain/gamestat"
)

type statKey struct {
	eventID  string
	playerID string
}

// GameStatRepository keeps stat records in process memory under the
// (event, player) uniqueness the postgres schema enforces.
type GameStatRepository struct {
	mu     sync.RWMutex
	items  map[statKey]gamestat.Record
	orders []statKey
}

func NewGameStatRepository() *GameStatRepository {
	return &GameStatRepository{items: map[statKey]gamestat.Record{}}
}

func (r *GameStatRepository) Get(_ context.Context, eventID, playerID string) (gamestat.Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[statKey{eventID: eventID, playerID: playerID}]
	if !ok {
		return gamestat.Record{}, false, nil
	}
	return item.Clone(), true, nil
}

func (r *GameStatRepository) ListByEvent(_ context.Context, eventID string) ([]gamestat.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []gamestat.Record
	for _, key := range r.orders {
		if key.eventID == eventID {
			out = append(out, r.items[key].Clone())
		}
	}
	return out, nil
}

// ListRecentByPlayer returns the player's records newest first. Memory
// has no event timestamps to order by, so recency is insertion order.
func (r *GameStatRepository) ListRecentByPlayer(_ context.Context, playerID string, limit int) ([]gamestat.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []gamestat.Record
	for i := len(r.orders) - 1; i >= 0 && len(out) < limit; i-- {
		key := r.orders[i]
		if key.playerID == playerID {
			out = append(out, r.items[key].Clone())
		}
	}
	return out, nil
}

func (r *GameStatRepository) Upsert(_ context.Context, record gamestat.Record) (bool, error) {
	if err := record.Validate(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := statKey{eventID: record.EventID, playerID: record.PlayerID}
	_, exists := r.items[key]
	r.items[key] = record.Clone()
	if !exists {
		r.orders = append(r.orders, key)
	}
	return !exists, nil
}
