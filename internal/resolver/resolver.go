package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/statfuse/statfuse/internal/domain/event"
	"github.com/statfuse/statfuse/internal/domain/player"
	"github.com/statfuse/statfuse/internal/domain/provenance"
	"github.com/statfuse/statfuse/internal/domain/sport"
	"github.com/statfuse/statfuse/internal/domain/team"
	"github.com/statfuse/statfuse/internal/normalizer"
	idgen "github.com/statfuse/statfuse/internal/platform/id"
	"github.com/statfuse/statfuse/internal/platform/logging"
)

// DefaultSimilarityThreshold gates fuzzy player matching when no team
// corroboration exists. Deliberately high: an uncertain match creates a
// new identity instead of guessing.
const DefaultSimilarityThreshold = 0.85

// Resolution describes how an identity was resolved. Ambiguous means
// the resolver could not confidently match an existing identity and
// fell back to creating a new one; that is a warning, never an error.
type Resolution struct {
	Created   bool
	Fused     bool
	Ambiguous bool
}

// Resolver maps incoming provider names and ids onto canonical
// identities, creating new ones when no confident match exists.
// Creation rides storage uniqueness constraints, so concurrent runs
// racing on the same new identity converge on one row.
type Resolver struct {
	norm      *normalizer.Normalizer
	teams     team.Repository
	players   player.Repository
	events    event.Repository
	prov      provenance.Repository
	ids       idgen.Generator
	logger    *logging.Logger
	threshold float64
}

func New(
	norm *normalizer.Normalizer,
	teams team.Repository,
	players player.Repository,
	events event.Repository,
	prov provenance.Repository,
	ids idgen.Generator,
	logger *logging.Logger,
) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{
		norm:      norm,
		teams:     teams,
		players:   players,
		events:    events,
		prov:      prov,
		ids:       ids,
		logger:    logger,
		threshold: DefaultSimilarityThreshold,
	}
}

// ResolveTeam maps a raw team name onto its canonical team, creating
// the team on first sighting. A new spelling of a known team is
// appended to its alias set, never repointed later.
func (r *Resolver) ResolveTeam(ctx context.Context, rawName string, s sport.Sport) (team.Team, Resolution, error) {
	key, _ := r.norm.Normalize(rawName, s)
	if key == "" {
		return team.Team{}, Resolution{}, fmt.Errorf("resolve team: empty name for sport %s", s)
	}
	folded := normalizer.Fold(rawName)

	existing, found, err := r.teams.GetByAlias(ctx, s, string(key))
	if err != nil {
		return team.Team{}, Resolution{}, fmt.Errorf("get team by alias sport=%s alias=%s: %w", s, key, err)
	}
	if found {
		if err := r.recordTeamAlias(ctx, existing, s, folded, key); err != nil {
			return team.Team{}, Resolution{}, err
		}
		return existing, Resolution{}, nil
	}

	newID, err := r.ids.NewID()
	if err != nil {
		return team.Team{}, Resolution{}, fmt.Errorf("generate team id: %w", err)
	}
	candidate := team.Team{
		ID:            newID,
		Sport:         s,
		CanonicalName: string(key),
		Aliases:       []string{string(key)},
	}
	if folded != string(key) {
		candidate.Aliases = append(candidate.Aliases, folded)
	}

	created, err := r.teams.Create(ctx, candidate)
	if err != nil {
		return team.Team{}, Resolution{}, fmt.Errorf("create team sport=%s name=%s: %w", s, key, err)
	}
	r.norm.Aliases().RegisterCanonical(s, normalizer.Key(created.CanonicalName))

	// Create resolves alias races to the winner, so a returned id that
	// differs from ours is a normal resolution hit.
	if created.ID != newID {
		return created, Resolution{}, nil
	}

	r.logger.InfoContext(ctx, "created canonical team",
		"sport", s.String(), "team_id", created.ID, "canonical_name", created.CanonicalName)
	return created, Resolution{Created: true}, nil
}

func (r *Resolver) recordTeamAlias(ctx context.Context, t team.Team, s sport.Sport, folded string, key normalizer.Key) error {
	if folded == "" || folded == string(key) || t.HasAlias(folded) {
		return nil
	}
	if err := r.teams.AddAlias(ctx, t.ID, s, folded); err != nil {
		return fmt.Errorf("append team alias team_id=%s alias=%s: %w", t.ID, folded, err)
	}
	if err := r.norm.Aliases().Add(s, folded, key); err != nil {
		// The table refuses repoints; an already-claimed alias means a
		// concurrent run recorded it first.
		r.logger.WarnContext(ctx, "alias already claimed in table", "alias", folded, "error", err)
	}
	return nil
}

// PlayerSighting carries one provider's view of a player.
type PlayerSighting struct {
	Provider string
	Name     string
	NativeID string
	TeamID   string
	Position string
}

// ResolvePlayer resolves in priority order: provider-native id, then
// name + current-team corroboration (which also fuses the provider id
// onto the existing identity), then high-threshold fuzzy name match,
// then creation. Ambiguity degrades to creation plus a warning.
func (r *Resolver) ResolvePlayer(ctx context.Context, sighting PlayerSighting, s sport.Sport) (player.Player, Resolution, error) {
	name := normalizer.Fold(sighting.Name)
	if name == "" {
		return player.Player{}, Resolution{}, fmt.Errorf("resolve player: empty name for sport %s", s)
	}

	if sighting.NativeID != "" {
		existing, found, err := r.players.GetByProviderRef(ctx, s, sighting.Provider, sighting.NativeID)
		if err != nil {
			return player.Player{}, Resolution{}, fmt.Errorf("get player by provider ref provider=%s native_id=%s: %w", sighting.Provider, sighting.NativeID, err)
		}
		if found {
			return r.refreshSighting(ctx, existing, sighting)
		}
	}

	matched, found, err := r.matchByNameAndTeam(ctx, name, sighting.TeamID, s)
	if err != nil {
		return player.Player{}, Resolution{}, err
	}
	if found {
		fused, err := r.fuseProviderRef(ctx, matched, sighting, s)
		if err != nil {
			return player.Player{}, Resolution{}, err
		}
		resolved, res, err := r.refreshSighting(ctx, matched, sighting)
		res.Fused = fused
		return resolved, res, err
	}

	fuzzyMatch, ambiguous, err := r.matchFuzzy(ctx, name, s)
	if err != nil {
		return player.Player{}, Resolution{}, err
	}
	if fuzzyMatch != nil {
		fused, err := r.fuseProviderRef(ctx, *fuzzyMatch, sighting, s)
		if err != nil {
			return player.Player{}, Resolution{}, err
		}
		resolved, res, err := r.refreshSighting(ctx, *fuzzyMatch, sighting)
		res.Fused = fused
		return resolved, res, err
	}

	created, err := r.createPlayer(ctx, name, sighting, s)
	if err != nil {
		return player.Player{}, Resolution{}, err
	}
	if ambiguous {
		r.warn(ctx, provenance.Warning{
			Kind:     provenance.WarningAmbiguousPlayer,
			Provider: sighting.Provider,
			Sport:    s,
			Subject:  sighting.Name,
			Detail:   fmt.Sprintf("multiple equally strong name matches, created new player %s", created.ID),
		})
	}
	return created, Resolution{Created: true, Ambiguous: ambiguous}, nil
}

func (r *Resolver) matchByNameAndTeam(ctx context.Context, name, teamID string, s sport.Sport) (player.Player, bool, error) {
	if teamID == "" {
		return player.Player{}, false, nil
	}

	candidates, err := r.players.ListByNormalizedName(ctx, s, name)
	if err != nil {
		return player.Player{}, false, fmt.Errorf("list players by normalized name sport=%s name=%s: %w", s, name, err)
	}

	var match player.Player
	count := 0
	for _, candidate := range candidates {
		if candidate.TeamID == teamID {
			match = candidate
			count++
		}
	}
	if count == 1 {
		return match, true, nil
	}
	return player.Player{}, false, nil
}

// matchFuzzy returns a match only when exactly one player clears the
// similarity threshold with a strictly best score. The second return
// reports that candidates existed but tied, which is ambiguity worth a
// warning once the caller has created the fallback identity.
func (r *Resolver) matchFuzzy(ctx context.Context, name string, s sport.Sport) (*player.Player, bool, error) {
	all, err := r.players.ListBySport(ctx, s)
	if err != nil {
		return nil, false, fmt.Errorf("list players by sport %s: %w", s, err)
	}

	var best *player.Player
	bestScore := 0.0
	bestCount := 0
	for i := range all {
		score := normalizer.TokenSimilarity(name, all[i].NormalizedName)
		if score < r.threshold {
			continue
		}
		if score > bestScore {
			best = &all[i]
			bestScore = score
			bestCount = 1
			continue
		}
		if score == bestScore {
			bestCount++
		}
	}

	if best == nil {
		return nil, false, nil
	}
	if bestCount > 1 {
		return nil, true, nil
	}
	return best, false, nil
}

func (r *Resolver) fuseProviderRef(ctx context.Context, p player.Player, sighting PlayerSighting, s sport.Sport) (bool, error) {
	if sighting.NativeID == "" || p.HasProviderRef(sighting.Provider, sighting.NativeID) {
		return false, nil
	}
	ref := player.ProviderRef{Provider: sighting.Provider, NativeID: sighting.NativeID}
	if err := r.players.AddProviderRef(ctx, p.ID, s, ref); err != nil {
		return false, fmt.Errorf("fuse provider ref player_id=%s provider=%s: %w", p.ID, sighting.Provider, err)
	}
	r.logger.InfoContext(ctx, "fused provider identity onto player",
		"sport", s.String(), "player_id", p.ID, "provider", sighting.Provider, "native_id", sighting.NativeID)
	return true, nil
}

func (r *Resolver) refreshSighting(ctx context.Context, p player.Player, sighting PlayerSighting) (player.Player, Resolution, error) {
	teamID := sighting.TeamID
	if teamID == "" {
		teamID = p.TeamID
	}
	position := sighting.Position
	if position == "" {
		position = p.Position
	}
	if teamID != p.TeamID || position != p.Position {
		if err := r.players.UpdateSighting(ctx, p.ID, teamID, position); err != nil {
			return player.Player{}, Resolution{}, fmt.Errorf("update player sighting player_id=%s: %w", p.ID, err)
		}
		p.TeamID = teamID
		p.Position = position
	}
	return p, Resolution{}, nil
}

func (r *Resolver) createPlayer(ctx context.Context, name string, sighting PlayerSighting, s sport.Sport) (player.Player, error) {
	newID, err := r.ids.NewID()
	if err != nil {
		return player.Player{}, fmt.Errorf("generate player id: %w", err)
	}

	candidate := player.Player{
		ID:             newID,
		Sport:          s,
		CanonicalName:  sighting.Name,
		NormalizedName: name,
		TeamID:         sighting.TeamID,
		Position:       sighting.Position,
	}
	if sighting.NativeID != "" {
		candidate.ProviderRefs = []player.ProviderRef{{Provider: sighting.Provider, NativeID: sighting.NativeID}}
	}

	created, err := r.players.Create(ctx, candidate)
	if err != nil {
		return player.Player{}, fmt.Errorf("create player sport=%s name=%s: %w", s, name, err)
	}
	if created.ID == newID {
		r.logger.InfoContext(ctx, "created canonical player",
			"sport", s.String(), "player_id", created.ID, "name", created.CanonicalName)
	}
	return created, nil
}

// EventSighting carries one provider's view of a scheduled game.
type EventSighting struct {
	Provider    string
	ExternalID  string
	HomeTeamID  string
	AwayTeamID  string
	ScheduledAt time.Time
}

// ResolveEvent looks up the provider's own external id first. Cross
// provider fusion is best effort: a single team-pair + date match lets
// the new provider attach a secondary external id; zero or multiple
// matches create a new event rather than guess.
func (r *Resolver) ResolveEvent(ctx context.Context, sighting EventSighting, s sport.Sport) (event.Event, Resolution, error) {
	if sighting.Provider == "" || sighting.ExternalID == "" {
		return event.Event{}, Resolution{}, fmt.Errorf("resolve event: provider and external id are required")
	}

	existing, found, err := r.events.GetByExternalRef(ctx, s, sighting.Provider, sighting.ExternalID)
	if err != nil {
		return event.Event{}, Resolution{}, fmt.Errorf("get event by external ref provider=%s external_id=%s: %w", sighting.Provider, sighting.ExternalID, err)
	}
	if found {
		return existing, Resolution{}, nil
	}

	matches, err := r.events.FindByTeamsAndDate(ctx, s, sighting.HomeTeamID, sighting.AwayTeamID, sighting.ScheduledAt)
	if err != nil {
		return event.Event{}, Resolution{}, fmt.Errorf("find events by teams and date sport=%s: %w", s, err)
	}
	if len(matches) == 1 {
		ref := event.ExternalRef{Provider: sighting.Provider, ExternalID: sighting.ExternalID}
		if err := r.events.AttachExternalRef(ctx, matches[0].ID, ref); err != nil {
			return event.Event{}, Resolution{}, fmt.Errorf("attach external ref event_id=%s provider=%s: %w", matches[0].ID, sighting.Provider, err)
		}
		matches[0].SecondaryRefs = append(matches[0].SecondaryRefs, ref)
		r.logger.InfoContext(ctx, "fused provider event id onto existing event",
			"sport", s.String(), "event_id", matches[0].ID, "provider", sighting.Provider)
		return matches[0], Resolution{Fused: true}, nil
	}

	ambiguous := len(matches) > 1
	created, err := r.createEvent(ctx, sighting, s)
	if err != nil {
		return event.Event{}, Resolution{}, err
	}
	if ambiguous {
		r.warn(ctx, provenance.Warning{
			Kind:     provenance.WarningAmbiguousEvent,
			Provider: sighting.Provider,
			Sport:    s,
			Subject:  sighting.ExternalID,
			Detail:   fmt.Sprintf("%d events share the team pair and date, created new event %s", len(matches), created.ID),
		})
	}
	return created, Resolution{Created: true, Ambiguous: ambiguous}, nil
}

func (r *Resolver) createEvent(ctx context.Context, sighting EventSighting, s sport.Sport) (event.Event, error) {
	newID, err := r.ids.NewID()
	if err != nil {
		return event.Event{}, fmt.Errorf("generate event id: %w", err)
	}

	candidate := event.Event{
		ID:          newID,
		Sport:       s,
		Provider:    sighting.Provider,
		ExternalID:  sighting.ExternalID,
		HomeTeamID:  sighting.HomeTeamID,
		AwayTeamID:  sighting.AwayTeamID,
		ScheduledAt: sighting.ScheduledAt,
		Status:      event.StatusScheduled,
	}

	created, err := r.events.Create(ctx, candidate)
	if err != nil {
		return event.Event{}, fmt.Errorf("create event provider=%s external_id=%s: %w", sighting.Provider, sighting.ExternalID, err)
	}
	if created.ID == newID {
		r.logger.InfoContext(ctx, "created canonical event",
			"sport", s.String(), "event_id", created.ID, "provider", created.Provider, "external_id", created.ExternalID)
	}
	return created, nil
}

func (r *Resolver) warn(ctx context.Context, warning provenance.Warning) {
	warning.OccurredAt = time.Now().UTC()
	r.logger.WarnContext(ctx, "ambiguous entity resolution",
		"kind", warning.Kind, "sport", warning.Sport.String(), "subject", warning.Subject, "detail", warning.Detail)
	if r.prov == nil {
		return
	}
	if err := r.prov.RecordWarning(ctx, warning); err != nil {
		r.logger.ErrorContext(ctx, "record resolution warning", "error", err)
	}
}
