package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/statfuse/statfuse/internal/domain/event"
	"github.com/statfuse/statfuse/internal/domain/sport"
	qb "github.com/statfuse/statfuse/internal/platform/querybuilder"
)

type EventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// GetByExternalRef checks the primary ref on the event row first, then
// the secondary refs attached by cross-provider fusion.
func (r *EventRepository) GetByExternalRef(ctx context.Context, s sport.Sport, provider, externalID string) (event.Event, bool, error) {
	query, args, err := qb.Select("*").From("events").
		Where(
			qb.Eq("sport", s.String()),
			qb.Eq("provider", provider),
			qb.Eq("external_id", externalID),
		).
		ToSQL()
	if err != nil {
		return event.Event{}, false, fmt.Errorf("build select event by ref query: %w", err)
	}

	var row eventTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err == nil {
		return r.withSecondaryRefs(ctx, row)
	} else if !isNotFound(err) {
		return event.Event{}, false, fmt.Errorf("select event by ref: %w", err)
	}

	refQuery, refArgs, err := qb.Select("event_id").From("event_external_ids").
		Where(
			qb.Eq("provider", provider),
			qb.Eq("external_id", externalID),
		).
		ToSQL()
	if err != nil {
		return event.Event{}, false, fmt.Errorf("build select secondary event ref query: %w", err)
	}
	var eventID string
	if err := r.db.GetContext(ctx, &eventID, refQuery, refArgs...); err != nil {
		if isNotFound(err) {
			return event.Event{}, false, nil
		}
		return event.Event{}, false, fmt.Errorf("select secondary event ref: %w", err)
	}
	return r.GetByID(ctx, eventID)
}

func (r *EventRepository) FindByTeamsAndDate(ctx context.Context, s sport.Sport, homeTeamID, awayTeamID string, day time.Time) ([]event.Event, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	query, args, err := qb.Select("*").From("events").
		Where(
			qb.Eq("sport", s.String()),
			qb.Expr("((home_team_id = ? AND away_team_id = ?) OR (home_team_id = ? AND away_team_id = ?))",
				homeTeamID, awayTeamID, awayTeamID, homeTeamID),
			qb.Expr("scheduled_at >= ? AND scheduled_at < ?", start, end),
		).
		OrderBy("scheduled_at").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select events by teams query: %w", err)
	}
	return r.selectEvents(ctx, query, args)
}

func (r *EventRepository) GetByID(ctx context.Context, eventID string) (event.Event, bool, error) {
	query, args, err := qb.Select("*").From("events").
		Where(qb.Eq("id", eventID)).
		ToSQL()
	if err != nil {
		return event.Event{}, false, fmt.Errorf("build select event query: %w", err)
	}

	var row eventTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return event.Event{}, false, nil
		}
		return event.Event{}, false, fmt.Errorf("select event %s: %w", eventID, err)
	}
	return r.withSecondaryRefs(ctx, row)
}

func (r *EventRepository) ListBySportAndDate(ctx context.Context, s sport.Sport, day time.Time) ([]event.Event, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	query, args, err := qb.Select("*").From("events").
		Where(
			qb.Eq("sport", s.String()),
			qb.Expr("scheduled_at >= ? AND scheduled_at < ?", start, end),
		).
		OrderBy("scheduled_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select events by date query: %w", err)
	}
	return r.selectEvents(ctx, query, args)
}

// Create inserts the event under the (provider, external_id) constraint
// and resolves a lost race to the winner's row.
func (r *EventRepository) Create(ctx context.Context, item event.Event) (event.Event, error) {
	if err := item.Validate(); err != nil {
		return event.Event{}, err
	}
	if item.Status == "" {
		item.Status = event.StatusScheduled
	}

	insertModel := eventInsertModel{
		ID:          item.ID,
		Sport:       item.Sport.String(),
		Provider:    item.Provider,
		ExternalID:  item.ExternalID,
		HomeTeamID:  item.HomeTeamID,
		AwayTeamID:  item.AwayTeamID,
		ScheduledAt: item.ScheduledAt.UTC(),
		Status:      item.Status,
	}
	query, args, err := qb.InsertModel("events", insertModel, "ON CONFLICT (provider, external_id) DO NOTHING")
	if err != nil {
		return event.Event{}, fmt.Errorf("build insert event query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return event.Event{}, fmt.Errorf("insert event %s: %w", item.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return event.Event{}, fmt.Errorf("event rows affected: %w", err)
	}
	if affected == 0 {
		winner, found, err := r.GetByExternalRef(ctx, item.Sport, item.Provider, item.ExternalID)
		if err != nil {
			return event.Event{}, err
		}
		if !found {
			return event.Event{}, fmt.Errorf("event ref %s/%s claimed but owner not found", item.Provider, item.ExternalID)
		}
		return winner, nil
	}
	return item, nil
}

func (r *EventRepository) AttachExternalRef(ctx context.Context, eventID string, ref event.ExternalRef) error {
	query, args, err := qb.InsertInto("event_external_ids").
		Columns("event_id", "provider", "external_id").
		Values(eventID, ref.Provider, ref.ExternalID).
		Suffix("ON CONFLICT (provider, external_id) DO NOTHING").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert event ref query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert event ref %s/%s: %w", ref.Provider, ref.ExternalID, err)
	}
	return nil
}

// SetResult performs the guarded scheduled to completed transition. The
// WHERE clause makes the update a no-op when scores are already final;
// the row is re-read either way so the caller sees what actually stuck.
func (r *EventRepository) SetResult(ctx context.Context, eventID string, homeScore, awayScore int) (event.Event, error) {
	query, args, err := qb.Update("events").
		Set("status", event.StatusCompleted).
		Set("home_score", homeScore).
		Set("away_score", awayScore).
		Set("updated_at", time.Now().UTC()).
		Where(
			qb.Eq("id", eventID),
			qb.Expr("status = ?", event.StatusScheduled),
		).
		ToSQL()
	if err != nil {
		return event.Event{}, fmt.Errorf("build update event result query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return event.Event{}, fmt.Errorf("update event result %s: %w", eventID, err)
	}

	item, found, err := r.GetByID(ctx, eventID)
	if err != nil {
		return event.Event{}, err
	}
	if !found {
		return event.Event{}, fmt.Errorf("event %s not found after result update", eventID)
	}
	return item, nil
}

func (r *EventRepository) selectEvents(ctx context.Context, query string, args []any) ([]event.Event, error) {
	var rows []eventTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}

	out := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		item, _, err := r.withSecondaryRefs(ctx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *EventRepository) withSecondaryRefs(ctx context.Context, row eventTableModel) (event.Event, bool, error) {
	query, args, err := qb.Select("event_id", "provider", "external_id").From("event_external_ids").
		Where(qb.Eq("event_id", row.ID)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return event.Event{}, false, fmt.Errorf("build select event refs query: %w", err)
	}

	var refRows []eventExternalRefTableModel
	if err := r.db.SelectContext(ctx, &refRows, query, args...); err != nil {
		return event.Event{}, false, fmt.Errorf("select event refs %s: %w", row.ID, err)
	}

	refs := make([]event.ExternalRef, 0, len(refRows))
	for _, refRow := range refRows {
		refs = append(refs, event.ExternalRef{Provider: refRow.Provider, ExternalID: refRow.ExternalID})
	}

	return event.Event{
		ID:            row.ID,
		Sport:         sport.Sport(row.Sport),
		Provider:      row.Provider,
		ExternalID:    row.ExternalID,
		SecondaryRefs: refs,
		HomeTeamID:    row.HomeTeamID,
		AwayTeamID:    row.AwayTeamID,
		ScheduledAt:   row.ScheduledAt,
		Status:        row.Status,
		HomeScore:     nullInt64ToIntPtr(row.HomeScore),
		AwayScore:     nullInt64ToIntPtr(row.AwayScore),
	}, true, nil
}
