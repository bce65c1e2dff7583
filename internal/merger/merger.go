package merger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/statfuse/statfuse/internal/domain/event"
	"github.com/statfuse/statfuse/internal/domain/gamestat"
	"github.com/statfuse/statfuse/internal/domain/provenance"
	"github.com/statfuse/statfuse/internal/domain/sport"
	"github.com/statfuse/statfuse/internal/platform/logging"
)

// Outcome classifies one merge for the run summary.
type Outcome string

const (
	OutcomeInserted Outcome = "inserted"
	OutcomeUpdated  Outcome = "updated"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeConflict Outcome = "conflict"
)

// Merger owns insert-or-update semantics for stats and event results.
// Same-provider re-publishes fully replace a stat payload; a different
// provider merges additively, field by field, gated by the priority
// table. Finalized event scores are never revised; a disagreeing
// result is recorded as a conflict and the original values persist.
type Merger struct {
	stats      gamestat.Repository
	events     event.Repository
	prov       provenance.Repository
	priorities PriorityTable
	logger     *logging.Logger
}

func New(
	stats gamestat.Repository,
	events event.Repository,
	prov provenance.Repository,
	priorities PriorityTable,
	logger *logging.Logger,
) *Merger {
	if logger == nil {
		logger = logging.Default()
	}
	return &Merger{
		stats:      stats,
		events:     events,
		prov:       prov,
		priorities: priorities,
		logger:     logger,
	}
}

// MergeGameStat merges one stat payload under the (event, player) key.
func (m *Merger) MergeGameStat(ctx context.Context, s sport.Sport, eventID, playerID string, payload gamestat.Payload, provider string) (Outcome, error) {
	if eventID == "" || playerID == "" {
		return OutcomeSkipped, fmt.Errorf("merge game stat: event and player ids are required")
	}
	if len(payload) == 0 {
		return OutcomeSkipped, nil
	}

	existing, found, err := m.stats.Get(ctx, eventID, playerID)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("get game stat event_id=%s player_id=%s: %w", eventID, playerID, err)
	}

	if !found || existing.SourceProvider == provider {
		record := gamestat.Record{
			EventID:        eventID,
			PlayerID:       playerID,
			SourceProvider: provider,
			Payload:        payload,
			FieldSources:   uniformSources(payload, provider),
		}
		created, err := m.stats.Upsert(ctx, record)
		if err != nil {
			return OutcomeSkipped, fmt.Errorf("upsert game stat event_id=%s player_id=%s: %w", eventID, playerID, err)
		}
		if created {
			return OutcomeInserted, nil
		}
		return OutcomeUpdated, nil
	}

	merged, changed, conflicted := m.mergeAdditive(ctx, s, existing, payload, provider)
	if !changed {
		if conflicted {
			return OutcomeConflict, nil
		}
		return OutcomeSkipped, nil
	}
	if _, err := m.stats.Upsert(ctx, merged); err != nil {
		return OutcomeSkipped, fmt.Errorf("upsert merged game stat event_id=%s player_id=%s: %w", eventID, playerID, err)
	}
	return OutcomeUpdated, nil
}

// mergeAdditive fills missing fields and lets a strictly higher
// priority source overwrite populated ones. Fields absent from the new
// payload are left untouched.
func (m *Merger) mergeAdditive(ctx context.Context, s sport.Sport, existing gamestat.Record, payload gamestat.Payload, provider string) (gamestat.Record, bool, bool) {
	merged := existing.Clone()
	if merged.FieldSources == nil {
		merged.FieldSources = map[string]string{}
	}

	changed := false
	conflicted := false
	for field, value := range payload {
		currentValue, populated := merged.Payload[field]
		if !populated {
			merged.Payload[field] = value
			merged.FieldSources[field] = provider
			changed = true
			continue
		}

		fieldSource := merged.FieldSources[field]
		if fieldSource == "" {
			fieldSource = existing.SourceProvider
		}
		if m.priorities.Outranks(provider, fieldSource, field) {
			if currentValue != value {
				merged.Payload[field] = value
				changed = true
			}
			merged.FieldSources[field] = provider
			continue
		}

		if currentValue != value {
			conflicted = true
			m.recordConflict(ctx, provenance.Conflict{
				Kind:          provenance.ConflictStatField,
				Provider:      provider,
				Sport:         s,
				EventID:       existing.EventID,
				PlayerID:      existing.PlayerID,
				Field:         field,
				KeptValue:     formatStat(currentValue),
				RejectedValue: formatStat(value),
			})
		}
	}

	return merged, changed, conflicted
}

// MergeEvent applies a result to an event. The scheduled to completed
// transition happens once; a later result disagreeing with recorded
// final scores is rejected and kept for operator review.
func (m *Merger) MergeEvent(ctx context.Context, s sport.Sport, eventID string, homeScore, awayScore int, provider string) (Outcome, error) {
	current, found, err := m.events.GetByID(ctx, eventID)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("get event %s: %w", eventID, err)
	}
	if !found {
		return OutcomeSkipped, fmt.Errorf("merge event: event %s not found", eventID)
	}

	if current.HasFinalScores() {
		if *current.HomeScore == homeScore && *current.AwayScore == awayScore {
			return OutcomeSkipped, nil
		}
		m.recordConflict(ctx, provenance.Conflict{
			Kind:          provenance.ConflictEventScores,
			Provider:      provider,
			Sport:         s,
			EventID:       eventID,
			KeptValue:     fmt.Sprintf("%d-%d", *current.HomeScore, *current.AwayScore),
			RejectedValue: fmt.Sprintf("%d-%d", homeScore, awayScore),
		})
		return OutcomeConflict, nil
	}

	applied, err := m.events.SetResult(ctx, eventID, homeScore, awayScore)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("set event result event_id=%s: %w", eventID, err)
	}

	// SetResult is a guarded one-way transition; a concurrent run may
	// have finalized the event with other scores first.
	if applied.HasFinalScores() && (*applied.HomeScore != homeScore || *applied.AwayScore != awayScore) {
		m.recordConflict(ctx, provenance.Conflict{
			Kind:          provenance.ConflictEventScores,
			Provider:      provider,
			Sport:         s,
			EventID:       eventID,
			KeptValue:     fmt.Sprintf("%d-%d", *applied.HomeScore, *applied.AwayScore),
			RejectedValue: fmt.Sprintf("%d-%d", homeScore, awayScore),
		})
		return OutcomeConflict, nil
	}

	return OutcomeUpdated, nil
}

func (m *Merger) recordConflict(ctx context.Context, conflict provenance.Conflict) {
	conflict.OccurredAt = time.Now().UTC()
	m.logger.WarnContext(ctx, "merge conflict, keeping existing data",
		"kind", conflict.Kind,
		"provider", conflict.Provider,
		"event_id", conflict.EventID,
		"player_id", conflict.PlayerID,
		"field", conflict.Field,
		"kept", conflict.KeptValue,
		"rejected", conflict.RejectedValue,
	)
	if m.prov == nil {
		return
	}
	if err := m.prov.RecordConflict(ctx, conflict); err != nil {
		m.logger.ErrorContext(ctx, "record merge conflict", "error", err)
	}
}

func uniformSources(payload gamestat.Payload, provider string) map[string]string {
	out := make(map[string]string, len(payload))
	for field := range payload {
		out[field] = provider
	}
	return out
}

func formatStat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
