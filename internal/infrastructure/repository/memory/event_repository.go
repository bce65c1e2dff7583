package memory

import (
	"context"
	"sync"
	"time"

	"github.com/statfuse/statfuse/internal/domain/event"
	"github.com/statfuse/statfuse/internal/domain/sport"
)

type externalRefKey struct {
	provider   string
	externalID string
}

// EventRepository keeps events in process memory, enforcing the
// (provider, external id) uniqueness and the one-way result transition
// the postgres schema carries.
type EventRepository struct {
	mu     sync.RWMutex
	items  map[string]event.Event
	orders []string
	byRef  map[externalRefKey]string
}

func NewEventRepository() *EventRepository {
	return &EventRepository{
		items: map[string]event.Event{},
		byRef: map[externalRefKey]string{},
	}
}

func (r *EventRepository) GetByExternalRef(_ context.Context, s sport.Sport, provider, externalID string) (event.Event, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byRef[externalRefKey{provider: provider, externalID: externalID}]
	if !ok {
		return event.Event{}, false, nil
	}
	item := r.items[id]
	if item.Sport != s {
		return event.Event{}, false, nil
	}
	return item, true, nil
}

// FindByTeamsAndDate matches the team pair in either orientation on the
// same UTC calendar day.
func (r *EventRepository) FindByTeamsAndDate(_ context.Context, s sport.Sport, homeTeamID, awayTeamID string, day time.Time) ([]event.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []event.Event
	for _, id := range r.orders {
		item := r.items[id]
		if item.Sport != s || !sameDay(item.ScheduledAt, day) {
			continue
		}
		straight := item.HomeTeamID == homeTeamID && item.AwayTeamID == awayTeamID
		flipped := item.HomeTeamID == awayTeamID && item.AwayTeamID == homeTeamID
		if straight || flipped {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *EventRepository) GetByID(_ context.Context, eventID string) (event.Event, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[eventID]
	return item, ok, nil
}

func (r *EventRepository) ListBySportAndDate(_ context.Context, s sport.Sport, day time.Time) ([]event.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []event.Event
	for _, id := range r.orders {
		item := r.items[id]
		if item.Sport == s && sameDay(item.ScheduledAt, day) {
			out = append(out, item)
		}
	}
	return out, nil
}

// Create inserts the event unless its primary external ref is already
// claimed, in which case the claiming event wins.
func (r *EventRepository) Create(_ context.Context, item event.Event) (event.Event, error) {
	if err := item.Validate(); err != nil {
		return event.Event{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := externalRefKey{provider: item.Provider, externalID: item.ExternalID}
	if id, ok := r.byRef[key]; ok {
		return r.items[id], nil
	}

	if item.Status == "" {
		item.Status = event.StatusScheduled
	}
	r.items[item.ID] = item
	r.orders = append(r.orders, item.ID)
	r.byRef[key] = item.ID
	return item, nil
}

// AttachExternalRef records a secondary provider ref unless the ref is
// already claimed by another event.
func (r *EventRepository) AttachExternalRef(_ context.Context, eventID string, ref event.ExternalRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := externalRefKey{provider: ref.Provider, externalID: ref.ExternalID}
	if _, claimed := r.byRef[key]; claimed {
		return nil
	}
	item, ok := r.items[eventID]
	if !ok {
		return nil
	}

	item.SecondaryRefs = append(item.SecondaryRefs, ref)
	r.items[eventID] = item
	r.byRef[key] = eventID
	return nil
}

// SetResult transitions the event to completed once. A second call
// returns the row as finalized by the first, scores untouched.
func (r *EventRepository) SetResult(_ context.Context, eventID string, homeScore, awayScore int) (event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[eventID]
	if !ok {
		return event.Event{}, nil
	}
	if item.HasFinalScores() {
		return item, nil
	}

	item.Status = event.StatusCompleted
	item.HomeScore = &homeScore
	item.AwayScore = &awayScore
	r.items[eventID] = item
	return item, nil
}

func sameDay(a, b time.Time) bool {
	au, bu := a.UTC(), b.UTC()
	return au.Year() == bu.Year() && au.YearDay() == bu.YearDay()
}
