package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/statfuse/statfuse/internal/domain/gamestat"
	qb "github.com/statfuse/statfuse/internal/platform/querybuilder"
)

// GameStatRepository stores stat payloads as jsonb next to a jsonb map
// of per-field source providers.
type GameStatRepository struct {
	db *sqlx.DB
}

func NewGameStatRepository(db *sqlx.DB) *GameStatRepository {
	return &GameStatRepository{db: db}
}

func (r *GameStatRepository) Get(ctx context.Context, eventID, playerID string) (gamestat.Record, bool, error) {
	query, args, err := qb.Select("*").From("game_stats").
		Where(
			qb.Eq("event_id", eventID),
			qb.Eq("player_id", playerID),
		).
		ToSQL()
	if err != nil {
		return gamestat.Record{}, false, fmt.Errorf("build select game stat query: %w", err)
	}

	var row gameStatTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return gamestat.Record{}, false, nil
		}
		return gamestat.Record{}, false, fmt.Errorf("select game stat: %w", err)
	}

	record, err := gameStatFromRow(row)
	if err != nil {
		return gamestat.Record{}, false, err
	}
	return record, true, nil
}

func (r *GameStatRepository) ListByEvent(ctx context.Context, eventID string) ([]gamestat.Record, error) {
	query, args, err := qb.Select("*").From("game_stats").
		Where(qb.Eq("event_id", eventID)).
		OrderBy("player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select game stats by event query: %w", err)
	}
	return r.selectRecords(ctx, query, args)
}

// ListRecentByPlayer orders by the event's scheduled time, newest
// first.
func (r *GameStatRepository) ListRecentByPlayer(ctx context.Context, playerID string, limit int) ([]gamestat.Record, error) {
	query, args, err := qb.Select("gs.event_id", "gs.player_id", "gs.source_provider", "gs.payload", "gs.field_sources", "gs.updated_at").
		From("game_stats gs JOIN events e ON e.id = gs.event_id").
		Where(qb.Eq("gs.player_id", playerID)).
		OrderBy("e.scheduled_at DESC", "gs.event_id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select recent game stats query: %w", err)
	}
	return r.selectRecords(ctx, query, args)
}

// Upsert writes the full record under the (event_id, player_id)
// constraint. Created reports whether a new row was inserted rather
// than an existing one replaced.
func (r *GameStatRepository) Upsert(ctx context.Context, record gamestat.Record) (bool, error) {
	if err := record.Validate(); err != nil {
		return false, err
	}

	payload, err := sonic.MarshalString(record.Payload)
	if err != nil {
		return false, fmt.Errorf("encode stat payload: %w", err)
	}
	sources, err := sonic.MarshalString(record.FieldSources)
	if err != nil {
		return false, fmt.Errorf("encode stat field sources: %w", err)
	}

	insertModel := gameStatInsertModel{
		EventID:        record.EventID,
		PlayerID:       record.PlayerID,
		SourceProvider: record.SourceProvider,
		Payload:        payload,
		FieldSources:   sources,
	}
	query, args, err := qb.InsertModel("game_stats", insertModel, "ON CONFLICT (event_id, player_id) DO NOTHING")
	if err != nil {
		return false, fmt.Errorf("build insert game stat query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert game stat %s/%s: %w", record.EventID, record.PlayerID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("game stat rows affected: %w", err)
	}
	if affected == 1 {
		return true, nil
	}

	updateQuery, updateArgs, err := qb.Update("game_stats").
		Set("source_provider", record.SourceProvider).
		Set("payload", payload).
		Set("field_sources", sources).
		Set("updated_at", time.Now().UTC()).
		Where(
			qb.Eq("event_id", record.EventID),
			qb.Eq("player_id", record.PlayerID),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build update game stat query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, updateQuery, updateArgs...); err != nil {
		return false, fmt.Errorf("update game stat %s/%s: %w", record.EventID, record.PlayerID, err)
	}
	return false, nil
}

func (r *GameStatRepository) selectRecords(ctx context.Context, query string, args []any) ([]gamestat.Record, error) {
	var rows []gameStatTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select game stats: %w", err)
	}

	out := make([]gamestat.Record, 0, len(rows))
	for _, row := range rows {
		record, err := gameStatFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func gameStatFromRow(row gameStatTableModel) (gamestat.Record, error) {
	record := gamestat.Record{
		EventID:        row.EventID,
		PlayerID:       row.PlayerID,
		SourceProvider: row.SourceProvider,
	}
	if err := sonic.UnmarshalString(row.Payload, &record.Payload); err != nil {
		return gamestat.Record{}, fmt.Errorf("decode stat payload %s/%s: %w", row.EventID, row.PlayerID, err)
	}
	if row.FieldSources != "" {
		if err := sonic.UnmarshalString(row.FieldSources, &record.FieldSources); err != nil {
			return gamestat.Record{}, fmt.Errorf("decode stat field sources %s/%s: %w", row.EventID, row.PlayerID, err)
		}
	}
	return record, nil
}
