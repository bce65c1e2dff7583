package cache

import (
	"context"

	"github.com/statfuse/statfuse/internal/domain/sport"
	"github.com/statfuse/statfuse/internal/domain/team"
	basecache "github.com/statfuse/statfuse/internal/platform/cache"
)

// TeamRepository caches alias lookups, by far the hottest read on the
// ingestion path: every record resolves two or three team names.
// Writes invalidate the affected keys so a freshly appended alias is
// visible to the next record.
type TeamRepository struct {
	next  team.Repository
	cache *basecache.Store
}

func NewTeamRepository(next team.Repository, cache *basecache.Store) *TeamRepository {
	return &TeamRepository{next: next, cache: cache}
}

func (r *TeamRepository) GetByAlias(ctx context.Context, s sport.Sport, alias string) (team.Team, bool, error) {
	key := aliasKey(s, alias)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByAlias(ctx, s, alias)
		if err != nil {
			return nil, err
		}
		return cachedTeamByAlias{value: item, exists: exists}, nil
	})
	if err != nil {
		return team.Team{}, false, err
	}

	cached, _ := v.(cachedTeamByAlias)
	return cached.value, cached.exists, nil
}

func (r *TeamRepository) ListBySport(ctx context.Context, s sport.Sport) ([]team.Team, error) {
	return r.next.ListBySport(ctx, s)
}

func (r *TeamRepository) Create(ctx context.Context, item team.Team) (team.Team, error) {
	created, err := r.next.Create(ctx, item)
	if err != nil {
		return team.Team{}, err
	}
	for _, alias := range created.Aliases {
		r.cache.Delete(ctx, aliasKey(created.Sport, alias))
	}
	return created, nil
}

func (r *TeamRepository) AddAlias(ctx context.Context, teamID string, s sport.Sport, alias string) error {
	if err := r.next.AddAlias(ctx, teamID, s, alias); err != nil {
		return err
	}
	r.cache.Delete(ctx, aliasKey(s, alias))
	return nil
}

type cachedTeamByAlias struct {
	value  team.Team
	exists bool
}

func aliasKey(s sport.Sport, alias string) string {
	return "team:alias:" + s.String() + ":" + alias
}
