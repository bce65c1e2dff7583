package memory

import (
	"context"
	"sync"

	"github.com/statfuse/statfuse/internal/domain/sport"
	"github.com/statfuse/statfuse/internal/domain/team"
)

// TeamRepository keeps teams in process memory. It honors the same
// (sport, alias) uniqueness the postgres schema enforces, so resolver
// race semantics hold in tests too.
type TeamRepository struct {
	mu      sync.RWMutex
	items   map[string]team.Team
	orders  []string
	byAlias map[sport.Sport]map[string]string
}

func NewTeamRepository() *TeamRepository {
	return &TeamRepository{
		items:   map[string]team.Team{},
		byAlias: map[sport.Sport]map[string]string{},
	}
}

func (r *TeamRepository) GetByAlias(_ context.Context, s sport.Sport, alias string) (team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byAlias[s][alias]
	if !ok {
		return team.Team{}, false, nil
	}
	return r.items[id], true, nil
}

func (r *TeamRepository) ListBySport(_ context.Context, s sport.Sport) ([]team.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]team.Team, 0, len(r.orders))
	for _, id := range r.orders {
		if item := r.items[id]; item.Sport == s {
			out = append(out, item)
		}
	}
	return out, nil
}

// Create inserts the team unless any of its aliases is already claimed,
// in which case the claiming team wins.
func (r *TeamRepository) Create(_ context.Context, item team.Team) (team.Team, error) {
	if err := item.Validate(); err != nil {
		return team.Team{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, alias := range item.Aliases {
		if id, ok := r.byAlias[item.Sport][alias]; ok {
			return r.items[id], nil
		}
	}

	r.items[item.ID] = item
	r.orders = append(r.orders, item.ID)
	if r.byAlias[item.Sport] == nil {
		r.byAlias[item.Sport] = map[string]string{}
	}
	for _, alias := range item.Aliases {
		r.byAlias[item.Sport][alias] = item.ID
	}
	return item, nil
}

// AddAlias appends the alias unless another team already claimed it.
// A claimed alias is left untouched, matching insert-on-conflict
// do-nothing semantics.
func (r *TeamRepository) AddAlias(_ context.Context, teamID string, s sport.Sport, alias string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, claimed := r.byAlias[s][alias]; claimed {
		return nil
	}
	item, ok := r.items[teamID]
	if !ok {
		return nil
	}

	item.Aliases = append(item.Aliases, alias)
	r.items[teamID] = item
	if r.byAlias[s] == nil {
		r.byAlias[s] = map[string]string{}
	}
	r.byAlias[s][alias] = teamID
	return nil
}
