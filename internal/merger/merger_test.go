package merger

import (
	"context"
	"testing"
	"time"

	"github.com/statfuse/statfuse/internal/domain/event"
	"github.com/statfuse/statfuse/internal/domain/gamestat"
	"github.com/statfuse/statfuse/internal/domain/provenance"
	"github.com/statfuse/statfuse/internal/domain/sport"
	"github.com/statfuse/statfuse/internal/infrastructure/repository/memory"
)

func newTestMerger(t *testing.T) (*Merger, *memory.GameStatRepository, *memory.EventRepository, *memory.ProvenanceRepository) {
	t.Helper()

	stats := memory.NewGameStatRepository()
	events := memory.NewEventRepository()
	prov := memory.NewProvenanceRepository()
	priorities := NewPriorityTable(
		map[string][]string{"default": {"sportsdataio", "espn", "oddsapi"}},
		nil,
	)
	return New(stats, events, prov, priorities, nil), stats, events, prov
}

func seedEvent(t *testing.T, events *memory.EventRepository, id string) event.Event {
	t.Helper()

	ev, err := events.Create(context.Background(), event.Event{
		ID:          id,
		Sport:       sport.NBA,
		Provider:    "espn",
		ExternalID:  "ext-" + id,
		HomeTeamID:  "team-home",
		AwayTeamID:  "team-away",
		ScheduledAt: time.Date(2026, time.March, 14, 19, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return ev
}

func TestMergeGameStat_InsertThenSameProviderReplace(t *testing.T) {
	t.Parallel()

	m, stats, _, _ := newTestMerger(t)
	ctx := context.Background()

	outcome, err := m.MergeGameStat(ctx, sport.NBA, "ev1", "pl1", gamestat.Payload{"points": 20, "assists": 5}, "espn")
	if err != nil {
		t.Fatalf("first merge: %v", err)
	}
	if outcome != OutcomeInserted {
		t.Fatalf("first merge outcome: got %s, want %s", outcome, OutcomeInserted)
	}

	// A same-provider re-publish fully replaces the payload, dropped
	// fields included.
	outcome, err = m.MergeGameStat(ctx, sport.NBA, "ev1", "pl1", gamestat.Payload{"points": 22}, "espn")
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Fatalf("second merge outcome: got %s, want %s", outcome, OutcomeUpdated)
	}

	record, found, err := stats.Get(ctx, "ev1", "pl1")
	if err != nil || !found {
		t.Fatalf("get record: found=%v err=%v", found, err)
	}
	if len(record.Payload) != 1 || record.Payload["points"] != 22 {
		t.Fatalf("replace must drop stale fields, got %+v", record.Payload)
	}
	if record.FieldSources["points"] != "espn" {
		t.Fatalf("unexpected field source: %+v", record.FieldSources)
	}
}

func TestMergeGameStat_CrossProviderAdditive(t *testing.T) {
	t.Parallel()

	m, stats, _, prov := newTestMerger(t)
	ctx := context.Background()

	if _, err := m.MergeGameStat(ctx, sport.NBA, "ev1", "pl1", gamestat.Payload{"points": 20}, "espn"); err != nil {
		t.Fatalf("seed merge: %v", err)
	}

	// oddsapi ranks below espn: it may fill missing fields but its
	// disagreeing points value is rejected and recorded.
	outcome, err := m.MergeGameStat(ctx, sport.NBA, "ev1", "pl1", gamestat.Payload{"points": 18, "rebounds": 7}, "oddsapi")
	if err != nil {
		t.Fatalf("cross merge: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Fatalf("cross merge outcome: got %s, want %s", outcome, OutcomeUpdated)
	}

	record, _, err := stats.Get(ctx, "ev1", "pl1")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.Payload["points"] != 20 {
		t.Fatalf("lower priority source must not overwrite, got points=%v", record.Payload["points"])
	}
	if record.Payload["rebounds"] != 7 {
		t.Fatalf("missing field must be filled additively, got %+v", record.Payload)
	}
	if record.FieldSources["points"] != "espn" || record.FieldSources["rebounds"] != "oddsapi" {
		t.Fatalf("unexpected field sources: %+v", record.FieldSources)
	}

	conflicts, err := prov.ListRecentConflicts(ctx, 10)
	if err != nil {
		t.Fatalf("list conflicts: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 recorded conflict, got %d", len(conflicts))
	}
	if conflicts[0].Kind != provenance.ConflictStatField || conflicts[0].Field != "points" {
		t.Fatalf("unexpected conflict: %+v", conflicts[0])
	}
	if conflicts[0].KeptValue != "20" || conflicts[0].RejectedValue != "18" {
		t.Fatalf("unexpected conflict values: %+v", conflicts[0])
	}
}

func TestMergeGameStat_HigherPriorityOverwrites(t *testing.T) {
	t.Parallel()

	m, stats, _, _ := newTestMerger(t)
	ctx := context.Background()

	if _, err := m.MergeGameStat(ctx, sport.NBA, "ev1", "pl1", gamestat.Payload{"points": 18}, "oddsapi"); err != nil {
		t.Fatalf("seed merge: %v", err)
	}

	outcome, err := m.MergeGameStat(ctx, sport.NBA, "ev1", "pl1", gamestat.Payload{"points": 20}, "sportsdataio")
	if err != nil {
		t.Fatalf("overwrite merge: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Fatalf("overwrite outcome: got %s, want %s", outcome, OutcomeUpdated)
	}

	record, _, err := stats.Get(ctx, "ev1", "pl1")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.Payload["points"] != 20 {
		t.Fatalf("higher priority source must overwrite, got %+v", record.Payload)
	}
	if record.FieldSources["points"] != "sportsdataio" {
		t.Fatalf("field source must follow the overwrite, got %+v", record.FieldSources)
	}
}

func TestMergeGameStat_AgreeingCrossProviderSkips(t *testing.T) {
	t.Parallel()

	m, _, _, prov := newTestMerger(t)
	ctx := context.Background()

	if _, err := m.MergeGameStat(ctx, sport.NBA, "ev1", "pl1", gamestat.Payload{"points": 20}, "espn"); err != nil {
		t.Fatalf("seed merge: %v", err)
	}

	outcome, err := m.MergeGameStat(ctx, sport.NBA, "ev1", "pl1", gamestat.Payload{"points": 20}, "oddsapi")
	if err != nil {
		t.Fatalf("agreeing merge: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Fatalf("agreeing merge outcome: got %s, want %s", outcome, OutcomeSkipped)
	}

	conflicts, err := prov.ListRecentConflicts(ctx, 10)
	if err != nil {
		t.Fatalf("list conflicts: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("agreeing values must not record conflicts, got %d", len(conflicts))
	}
}

func TestMergeGameStat_EmptyPayloadSkips(t *testing.T) {
	t.Parallel()

	m, _, _, _ := newTestMerger(t)

	outcome, err := m.MergeGameStat(context.Background(), sport.NBA, "ev1", "pl1", nil, "espn")
	if err != nil {
		t.Fatalf("empty merge: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Fatalf("empty payload outcome: got %s, want %s", outcome, OutcomeSkipped)
	}
}

func TestMergeEvent_FirstResultWins(t *testing.T) {
	t.Parallel()

	m, _, events, prov := newTestMerger(t)
	ctx := context.Background()
	seedEvent(t, events, "ev1")

	outcome, err := m.MergeEvent(ctx, sport.NBA, "ev1", 101, 98, "espn")
	if err != nil {
		t.Fatalf("first result: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Fatalf("first result outcome: got %s, want %s", outcome, OutcomeUpdated)
	}

	// An identical re-publish is idempotent.
	outcome, err = m.MergeEvent(ctx, sport.NBA, "ev1", 101, 98, "oddsapi")
	if err != nil {
		t.Fatalf("re-publish: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Fatalf("re-publish outcome: got %s, want %s", outcome, OutcomeSkipped)
	}

	// A disagreeing result is rejected and kept for review.
	outcome, err = m.MergeEvent(ctx, sport.NBA, "ev1", 99, 98, "oddsapi")
	if err != nil {
		t.Fatalf("disagreeing result: %v", err)
	}
	if outcome != OutcomeConflict {
		t.Fatalf("disagreeing result outcome: got %s, want %s", outcome, OutcomeConflict)
	}

	ev, found, err := events.GetByID(ctx, "ev1")
	if err != nil || !found {
		t.Fatalf("get event: found=%v err=%v", found, err)
	}
	if !ev.HasFinalScores() || *ev.HomeScore != 101 || *ev.AwayScore != 98 {
		t.Fatalf("recorded scores must never be revised, got %+v", ev)
	}

	conflicts, err := prov.ListRecentConflicts(ctx, 10)
	if err != nil {
		t.Fatalf("list conflicts: %v", err)
	}
	if len(conflicts) != 1 || conflicts[0].Kind != provenance.ConflictEventScores {
		t.Fatalf("unexpected conflicts: %+v", conflicts)
	}
	if conflicts[0].KeptValue != "101-98" || conflicts[0].RejectedValue != "99-98" {
		t.Fatalf("unexpected conflict values: %+v", conflicts[0])
	}
}

func TestMergeEvent_UnknownEvent(t *testing.T) {
	t.Parallel()

	m, _, _, _ := newTestMerger(t)

	if _, err := m.MergeEvent(context.Background(), sport.NBA, "missing", 1, 2, "espn"); err == nil {
		t.Fatalf("merging a result for an unknown event must fail")
	}
}
