package memory

import (
	"context"
	"testing"
	"time"

	"github.com/statfuse/statfuse/internal/domain/event"
	"github.com/statfuse/statfuse/internal/domain/player"
	"github.com/statfuse/statfuse/internal/domain/sport"
	"github.com/statfuse/statfuse/internal/domain/team"
)

func TestTeamRepository_CreateRaceWinnerWins(t *testing.T) {
	t.Parallel()

	repo := NewTeamRepository()
	ctx := context.Background()

	winner, err := repo.Create(ctx, team.Team{
		ID:            "t1",
		Sport:         sport.MLB,
		CanonicalName: "new york yankees",
		Aliases:       []string{"new york yankees"},
	})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	// A second create claiming the same alias loses and receives the
	// winner's row.
	loser, err := repo.Create(ctx, team.Team{
		ID:            "t2",
		Sport:         sport.MLB,
		CanonicalName: "new york yankees",
		Aliases:       []string{"new york yankees", "nyy"},
	})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if loser.ID != winner.ID {
		t.Fatalf("loser must receive the winner's row: %q vs %q", loser.ID, winner.ID)
	}

	if _, found, _ := repo.GetByAlias(ctx, sport.MLB, "nyy"); found {
		t.Fatalf("losing create must not leave aliases behind")
	}
}

func TestTeamRepository_AddAliasClaimedIsNoOp(t *testing.T) {
	t.Parallel()

	repo := NewTeamRepository()
	ctx := context.Background()

	for _, item := range []team.Team{
		{ID: "t1", Sport: sport.MLB, CanonicalName: "new york yankees", Aliases: []string{"new york yankees"}},
		{ID: "t2", Sport: sport.MLB, CanonicalName: "new york mets", Aliases: []string{"new york mets"}},
	} {
		if _, err := repo.Create(ctx, item); err != nil {
			t.Fatalf("create %s: %v", item.ID, err)
		}
	}

	if err := repo.AddAlias(ctx, "t1", sport.MLB, "ny"); err != nil {
		t.Fatalf("first add alias: %v", err)
	}
	if err := repo.AddAlias(ctx, "t2", sport.MLB, "ny"); err != nil {
		t.Fatalf("second add alias must be a silent no-op: %v", err)
	}

	item, found, _ := repo.GetByAlias(ctx, sport.MLB, "ny")
	if !found || item.ID != "t1" {
		t.Fatalf("alias must stay with its first claimant, got %+v found=%v", item, found)
	}
}

func TestPlayerRepository_CreateRaceWinnerWins(t *testing.T) {
	t.Parallel()

	repo := NewPlayerRepository()
	ctx := context.Background()

	ref := player.ProviderRef{Provider: "sportsdataio", NativeID: "10001"}
	winner, err := repo.Create(ctx, player.Player{
		ID:             "p1",
		Sport:          sport.MLB,
		CanonicalName:  "Aaron Judge",
		NormalizedName: "aaron judge",
		ProviderRefs:   []player.ProviderRef{ref},
	})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	loser, err := repo.Create(ctx, player.Player{
		ID:             "p2",
		Sport:          sport.MLB,
		CanonicalName:  "A. Judge",
		NormalizedName: "a judge",
		ProviderRefs:   []player.ProviderRef{ref},
	})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if loser.ID != winner.ID {
		t.Fatalf("loser must receive the winner's row: %q vs %q", loser.ID, winner.ID)
	}
}

func TestPlayerRepository_AddProviderRefClaimedIsNoOp(t *testing.T) {
	t.Parallel()

	repo := NewPlayerRepository()
	ctx := context.Background()

	ref := player.ProviderRef{Provider: "espn", NativeID: "e-1"}
	for _, item := range []player.Player{
		{ID: "p1", Sport: sport.NBA, CanonicalName: "A", NormalizedName: "a", ProviderRefs: []player.ProviderRef{ref}},
		{ID: "p2", Sport: sport.NBA, CanonicalName: "B", NormalizedName: "b"},
	} {
		if _, err := repo.Create(ctx, item); err != nil {
			t.Fatalf("create %s: %v", item.ID, err)
		}
	}

	if err := repo.AddProviderRef(ctx, "p2", sport.NBA, ref); err != nil {
		t.Fatalf("add claimed ref must be a silent no-op: %v", err)
	}

	item, found, _ := repo.GetByProviderRef(ctx, sport.NBA, "espn", "e-1")
	if !found || item.ID != "p1" {
		t.Fatalf("ref must stay with its first claimant, got %+v found=%v", item, found)
	}
}

func TestEventRepository_CreateRaceAndSetResult(t *testing.T) {
	t.Parallel()

	repo := NewEventRepository()
	ctx := context.Background()
	day := time.Date(2026, time.April, 2, 23, 5, 0, 0, time.UTC)

	base := event.Event{
		Sport:       sport.MLB,
		Provider:    "oddsapi",
		ExternalID:  "odds-1",
		HomeTeamID:  "team-a",
		AwayTeamID:  "team-b",
		ScheduledAt: day,
	}

	first := base
	first.ID = "e1"
	winner, err := repo.Create(ctx, first)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	second := base
	second.ID = "e2"
	loser, err := repo.Create(ctx, second)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if loser.ID != winner.ID {
		t.Fatalf("loser must receive the winner's row: %q vs %q", loser.ID, winner.ID)
	}

	// SetResult transitions once; the second write is ignored.
	applied, err := repo.SetResult(ctx, winner.ID, 5, 3)
	if err != nil {
		t.Fatalf("first set result: %v", err)
	}
	if !applied.HasFinalScores() {
		t.Fatalf("result not applied: %+v", applied)
	}

	again, err := repo.SetResult(ctx, winner.ID, 9, 9)
	if err != nil {
		t.Fatalf("second set result: %v", err)
	}
	if *again.HomeScore != 5 || *again.AwayScore != 3 {
		t.Fatalf("recorded scores must survive a second write: %+v", again)
	}
}

func TestEventRepository_FindByTeamsAndDateOrientation(t *testing.T) {
	t.Parallel()

	repo := NewEventRepository()
	ctx := context.Background()
	day := time.Date(2026, time.April, 2, 19, 0, 0, 0, time.UTC)

	if _, err := repo.Create(ctx, event.Event{
		ID:          "e1",
		Sport:       sport.MLB,
		Provider:    "espn",
		ExternalID:  "espn-1",
		HomeTeamID:  "team-a",
		AwayTeamID:  "team-b",
		ScheduledAt: day,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	flipped, err := repo.FindByTeamsAndDate(ctx, sport.MLB, "team-b", "team-a", day.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("find flipped: %v", err)
	}
	if len(flipped) != 1 {
		t.Fatalf("flipped orientation on the same day must match, got %d", len(flipped))
	}

	nextDay, err := repo.FindByTeamsAndDate(ctx, sport.MLB, "team-a", "team-b", day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("find next day: %v", err)
	}
	if len(nextDay) != 0 {
		t.Fatalf("a different day must not match, got %d", len(nextDay))
	}
}
