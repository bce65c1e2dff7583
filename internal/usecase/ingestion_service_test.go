package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/statfuse/statfuse/internal/domain/rawrecord"
	"github.com/statfuse/statfuse/internal/domain/sport"
	"github.com/statfuse/statfuse/internal/infrastructure/repository/memory"
	"github.com/statfuse/statfuse/internal/merger"
	"github.com/statfuse/statfuse/internal/normalizer"
	"github.com/statfuse/statfuse/internal/resolver"
	"github.com/statfuse/statfuse/internal/transform"
)

type seqIDGenerator struct {
	next int
}

func (g *seqIDGenerator) NewID() (string, error) {
	g.next++
	return fmt.Sprintf("id-%04d", g.next), nil
}

type ingestionFixture struct {
	service *IngestionService
	teams   *memory.TeamRepository
	players *memory.PlayerRepository
	events  *memory.EventRepository
	stats   *memory.GameStatRepository
	prov    *memory.ProvenanceRepository
	archive *memory.RawArchiveRepository
}

func newIngestionFixture(t *testing.T) *ingestionFixture {
	t.Helper()

	f := &ingestionFixture{
		teams:   memory.NewTeamRepository(),
		players: memory.NewPlayerRepository(),
		events:  memory.NewEventRepository(),
		stats:   memory.NewGameStatRepository(),
		prov:    memory.NewProvenanceRepository(),
		archive: memory.NewRawArchiveRepository(),
	}

	norm := normalizer.New(normalizer.NewAliasTable())
	res := resolver.New(norm, f.teams, f.players, f.events, f.prov, &seqIDGenerator{}, nil)
	priorities := merger.NewPriorityTable(
		map[string][]string{"default": {"sportsdataio", "espn", "oddsapi"}},
		nil,
	)
	merge := merger.New(f.stats, f.events, f.prov, priorities, nil)
	f.service = NewIngestionService(transform.DefaultRegistry(), res, merge, f.prov, f.archive, nil)
	return f
}

func mustParseTime(t *testing.T, value string) time.Time {
	t.Helper()

	at, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return at
}

func oddsAPIScheduleRecord(externalID, home, away, commence string) rawrecord.Record {
	return rawrecord.Record{
		Kind: rawrecord.KindSchedule,
		Fields: map[string]string{
			"id":            externalID,
			"home_team":     home,
			"away_team":     away,
			"commence_time": commence,
		},
	}
}

func TestIngestionRun_ScheduleBatchIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newIngestionFixture(t)
	ctx := context.Background()
	batch := []rawrecord.Record{
		oddsAPIScheduleRecord("odds-1", "New York Yankees", "Boston Red Sox", "2026-04-02T23:05:00Z"),
		oddsAPIScheduleRecord("odds-2", "Chicago Cubs", "St. Louis Cardinals", "2026-04-02T19:20:00Z"),
	}

	first, err := f.service.Run(ctx, "oddsapi", sport.MLB, batch)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Inserted != 2 || first.Updated != 0 || first.Skipped != 0 || first.Errors != 0 {
		t.Fatalf("unexpected first summary: %+v", first)
	}

	// Re-running the identical batch must not create or change anything.
	second, err := f.service.Run(ctx, "oddsapi", sport.MLB, batch)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Inserted != 0 || second.Updated != 0 {
		t.Fatalf("second run must be a no-op, got %+v", second)
	}
	if second.Skipped != 2 {
		t.Fatalf("second run must skip both records, got %+v", second)
	}

	teams, err := f.teams.ListBySport(ctx, sport.MLB)
	if err != nil {
		t.Fatalf("list teams: %v", err)
	}
	if len(teams) != 4 {
		t.Fatalf("expected 4 canonical teams, got %d", len(teams))
	}
}

func TestIngestionRun_ResultThenBoxScore(t *testing.T) {
	t.Parallel()

	f := newIngestionFixture(t)
	ctx := context.Background()

	schedule := []rawrecord.Record{
		oddsAPIScheduleRecord("odds-1", "Milwaukee Bucks", "Chicago Bulls", "2026-03-14T19:00:00Z"),
	}
	if _, err := f.service.Run(ctx, "oddsapi", sport.NBA, schedule); err != nil {
		t.Fatalf("schedule run: %v", err)
	}

	result := []rawrecord.Record{{
		Kind: rawrecord.KindResult,
		Fields: map[string]string{
			"id":            "odds-1",
			"home_team":     "Milwaukee Bucks",
			"away_team":     "Chicago Bulls",
			"commence_time": "2026-03-14T19:00:00Z",
			"home_score":    "112",
			"away_score":    "104",
		},
	}}
	summary, err := f.service.Run(ctx, "oddsapi", sport.NBA, result)
	if err != nil {
		t.Fatalf("result run: %v", err)
	}
	if summary.Updated != 1 {
		t.Fatalf("result must complete the event, got %+v", summary)
	}

	// A box score from another provider lands on the same fused event.
	box := []rawrecord.Record{{
		Kind: rawrecord.KindBoxScore,
		Fields: map[string]string{
			"GameID":   "sdio-55",
			"PlayerID": "20001",
			"Name":     "Giannis Antetokounmpo",
			"Team":     "Milwaukee Bucks",
			"HomeTeam": "Milwaukee Bucks",
			"AwayTeam": "Chicago Bulls",
			"Position": "PF",
			"Day":      "2026-03-14T19:00:00Z",
			"Points":   "31",
			"Rebounds": "12",
		},
	}}
	summary, err = f.service.Run(ctx, "sportsdataio", sport.NBA, box)
	if err != nil {
		t.Fatalf("box score run: %v", err)
	}
	if summary.Inserted != 1 {
		t.Fatalf("box score must insert one stat line, got %+v", summary)
	}

	events, err := f.events.ListBySportAndDate(ctx, sport.NBA, mustParseTime(t, "2026-03-14T00:00:00Z"))
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("both providers must share one event, got %d", len(events))
	}
	if !events[0].HasFinalScores() || *events[0].HomeScore != 112 {
		t.Fatalf("event result not recorded: %+v", events[0])
	}

	lines, err := f.stats.ListByEvent(ctx, events[0].ID)
	if err != nil {
		t.Fatalf("list stat lines: %v", err)
	}
	if len(lines) != 1 || lines[0].Payload["points"] != 31 {
		t.Fatalf("unexpected stat lines: %+v", lines)
	}

	// Same-provider re-publish of the stat line counts as an update.
	summary, err = f.service.Run(ctx, "sportsdataio", sport.NBA, box)
	if err != nil {
		t.Fatalf("box score re-run: %v", err)
	}
	if summary.Inserted != 0 || summary.Updated != 1 {
		t.Fatalf("stat re-publish must update in place, got %+v", summary)
	}
}

func TestIngestionRun_MalformedRecordsAreCountedNotFatal(t *testing.T) {
	t.Parallel()

	f := newIngestionFixture(t)
	ctx := context.Background()

	batch := []rawrecord.Record{
		oddsAPIScheduleRecord("odds-1", "New York Yankees", "Boston Red Sox", "2026-04-02T23:05:00Z"),
		oddsAPIScheduleRecord("odds-2", "", "Boston Red Sox", "2026-04-02T23:05:00Z"),
		oddsAPIScheduleRecord("odds-3", "Chicago Cubs", "St. Louis Cardinals", "not-a-time"),
		oddsAPIScheduleRecord("odds-4", "Houston Astros", "Texas Rangers", "2026-04-02T20:10:00Z"),
	}

	summary, err := f.service.Run(ctx, "oddsapi", sport.MLB, batch)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Inserted != 2 {
		t.Fatalf("valid records must still land, got %+v", summary)
	}
	if summary.Errors != 2 {
		t.Fatalf("malformed records must be counted, got %+v", summary)
	}
	if summary.Total() != len(batch) {
		t.Fatalf("every record needs exactly one bucket, got %+v", summary)
	}
}

func TestIngestionRun_ConflictingResultIsCounted(t *testing.T) {
	t.Parallel()

	f := newIngestionFixture(t)
	ctx := context.Background()

	resultRecord := func(home, away string) rawrecord.Record {
		return rawrecord.Record{
			Kind: rawrecord.KindResult,
			Fields: map[string]string{
				"id":            "odds-1",
				"home_team":     "New York Yankees",
				"away_team":     "Boston Red Sox",
				"commence_time": "2026-04-02T23:05:00Z",
				"home_score":    home,
				"away_score":    away,
			},
		}
	}

	if _, err := f.service.Run(ctx, "oddsapi", sport.MLB, []rawrecord.Record{resultRecord("5", "3")}); err != nil {
		t.Fatalf("first result run: %v", err)
	}

	summary, err := f.service.Run(ctx, "oddsapi", sport.MLB, []rawrecord.Record{resultRecord("4", "3")})
	if err != nil {
		t.Fatalf("conflicting result run: %v", err)
	}
	if summary.Conflicts != 1 {
		t.Fatalf("disagreeing result must count as a conflict, got %+v", summary)
	}
}

func TestIngestionRun_ArchivesRawPayloads(t *testing.T) {
	t.Parallel()

	f := newIngestionFixture(t)
	ctx := context.Background()
	batch := []rawrecord.Record{
		oddsAPIScheduleRecord("odds-1", "New York Yankees", "Boston Red Sox", "2026-04-02T23:05:00Z"),
	}

	if _, err := f.service.Run(ctx, "oddsapi", sport.MLB, batch); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := f.archive.Len(); got != 1 {
		t.Fatalf("expected 1 archived payload, got %d", got)
	}

	// The archive replaces in place, it never accumulates duplicates.
	if _, err := f.service.Run(ctx, "oddsapi", sport.MLB, batch); err != nil {
		t.Fatalf("re-run: %v", err)
	}
	if got := f.archive.Len(); got != 1 {
		t.Fatalf("re-ingested payload must replace, got %d entries", got)
	}
}

func TestIngestionRun_PersistsRunRecord(t *testing.T) {
	t.Parallel()

	f := newIngestionFixture(t)
	ctx := context.Background()

	batch := []rawrecord.Record{
		oddsAPIScheduleRecord("odds-1", "New York Yankees", "Boston Red Sox", "2026-04-02T23:05:00Z"),
		oddsAPIScheduleRecord("odds-2", "", "Boston Red Sox", "2026-04-02T23:05:00Z"),
	}
	if _, err := f.service.Run(ctx, "OddsAPI", sport.MLB, batch); err != nil {
		t.Fatalf("run: %v", err)
	}

	runs := f.prov.Runs()
	if len(runs) != 1 {
		t.Fatalf("expected 1 run record, got %d", len(runs))
	}
	run := runs[0]
	if run.Provider != "oddsapi" || run.Sport != sport.MLB {
		t.Fatalf("unexpected run identity: %+v", run)
	}
	if run.Inserted != 1 || run.Errors != 1 {
		t.Fatalf("unexpected run counters: %+v", run)
	}
	if run.FinishedAt.Before(run.StartedAt) {
		t.Fatalf("run must finish after it starts: %+v", run)
	}
}

func TestIngestionRun_InvalidInput(t *testing.T) {
	t.Parallel()

	f := newIngestionFixture(t)
	ctx := context.Background()

	if _, err := f.service.Run(ctx, "", sport.MLB, nil); err == nil {
		t.Fatalf("empty provider must fail")
	}
	if _, err := f.service.Run(ctx, "oddsapi", sport.Sport("cricket"), nil); err == nil {
		t.Fatalf("unknown sport must fail")
	}
	if _, err := f.service.Run(ctx, "nobody", sport.MLB, nil); err == nil {
		t.Fatalf("unregistered provider must fail")
	}
}

func TestIngestionRun_CancelledContextAborts(t *testing.T) {
	t.Parallel()

	f := newIngestionFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := []rawrecord.Record{
		oddsAPIScheduleRecord("odds-1", "New York Yankees", "Boston Red Sox", "2026-04-02T23:05:00Z"),
	}
	summary, err := f.service.Run(ctx, "oddsapi", sport.MLB, batch)
	if err == nil {
		t.Fatalf("cancelled context must abort the run")
	}
	if summary.Inserted != 0 {
		t.Fatalf("no record may land after cancellation, got %+v", summary)
	}
}
