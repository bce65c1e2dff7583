package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/statfuse/statfuse/internal/domain/event"
	"github.com/statfuse/statfuse/internal/domain/gamestat"
	"github.com/statfuse/statfuse/internal/domain/player"
	"github.com/statfuse/statfuse/internal/domain/sport"
	"github.com/statfuse/statfuse/internal/platform/logging"
)

const (
	defaultRecentGamesLimit = 10
	maxRecentGamesLimit     = 100
	queryFanOutLimit        = 8
)

// PlayerGameLine joins one stat line with the event it was recorded in.
type PlayerGameLine struct {
	Event  event.Event
	Stats  gamestat.Payload
	Source string
}

// EventDaySummary is one event on a slate plus how many player stat
// lines have landed for it so far.
type EventDaySummary struct {
	Event     event.Event
	StatLines int
}

// QueryService answers the read paths downstream products use: a
// player's latest N games and a sport's slate for a date.
type QueryService struct {
	players player.Repository
	events  event.Repository
	stats   gamestat.Repository
	logger  *logging.Logger
}

func NewQueryService(players player.Repository, events event.Repository, stats gamestat.Repository, logger *logging.Logger) *QueryService {
	if logger == nil {
		logger = logging.Default()
	}
	return &QueryService{players: players, events: events, stats: stats, logger: logger}
}

// GetRecentGames returns the player's most recent stat lines joined
// with their events, newest first. Event lookups fan out concurrently.
func (s *QueryService) GetRecentGames(ctx context.Context, playerID string, limit int) ([]PlayerGameLine, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueryService.GetRecentGames")
	defer span.End()

	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, fmt.Errorf("%w: player_id is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultRecentGamesLimit
	}
	if limit > maxRecentGamesLimit {
		limit = maxRecentGamesLimit
	}

	records, err := s.stats.ListRecentByPlayer(ctx, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent stats player_id=%s: %w", playerID, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	lines := make([]PlayerGameLine, len(records))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(queryFanOutLimit)
	for idx := range records {
		idx := idx
		p.Go(func(ctx context.Context) error {
			rec := records[idx]
			ev, found, err := s.events.GetByID(ctx, rec.EventID)
			if err != nil {
				return fmt.Errorf("get event %s: %w", rec.EventID, err)
			}
			if !found {
				return fmt.Errorf("%w: event %s referenced by stat line", ErrNotFound, rec.EventID)
			}
			lines[idx] = PlayerGameLine{Event: ev, Stats: rec.Payload, Source: rec.SourceProvider}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return lines, nil
}

// GetEventsForDate returns the slate for one sport and calendar day,
// with a per-event count of stat lines already ingested.
func (s *QueryService) GetEventsForDate(ctx context.Context, sp sport.Sport, day time.Time) ([]EventDaySummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueryService.GetEventsForDate")
	defer span.End()

	if err := sp.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	items, err := s.events.ListBySportAndDate(ctx, sp, day)
	if err != nil {
		return nil, fmt.Errorf("list events sport=%s date=%s: %w", sp, day.Format("2006-01-02"), err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	summaries := make([]EventDaySummary, len(items))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(queryFanOutLimit)
	for idx := range items {
		idx := idx
		p.Go(func(ctx context.Context) error {
			lines, err := s.stats.ListByEvent(ctx, items[idx].ID)
			if err != nil {
				return fmt.Errorf("list stats event_id=%s: %w", items[idx].ID, err)
			}
			summaries[idx] = EventDaySummary{Event: items[idx], StatLines: len(lines)}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}
