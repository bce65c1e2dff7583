package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/statfuse/statfuse/internal/domain/player"
	"github.com/statfuse/statfuse/internal/domain/sport"
	qb "github.com/statfuse/statfuse/internal/platform/querybuilder"
)

type PlayerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) GetByProviderRef(ctx context.Context, s sport.Sport, provider, nativeID string) (player.Player, bool, error) {
	query, args, err := qb.Select("player_id").From("player_provider_ids").
		Where(
			qb.Eq("sport", s.String()),
			qb.Eq("provider", provider),
			qb.Eq("native_id", nativeID),
		).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build select player provider ref query: %w", err)
	}

	var playerID string
	if err := r.db.GetContext(ctx, &playerID, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("select player provider ref: %w", err)
	}
	return r.getByID(ctx, playerID)
}

func (r *PlayerRepository) ListByNormalizedName(ctx context.Context, s sport.Sport, normalizedName string) ([]player.Player, error) {
	query, args, err := qb.Select("*").From("players").
		Where(
			qb.Eq("sport", s.String()),
			qb.Eq("normalized_name", normalizedName),
		).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players by name query: %w", err)
	}
	return r.selectPlayers(ctx, s, query, args)
}

func (r *PlayerRepository) ListBySport(ctx context.Context, s sport.Sport) ([]player.Player, error) {
	query, args, err := qb.Select("*").From("players").
		Where(qb.Eq("sport", s.String())).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players by sport query: %w", err)
	}
	return r.selectPlayers(ctx, s, query, args)
}

// Create inserts the player and its provider refs atomically. When
// another run already claimed a ref, the insert is rolled back and the
// claiming player is returned instead.
func (r *PlayerRepository) Create(ctx context.Context, item player.Player) (player.Player, error) {
	if err := item.Validate(); err != nil {
		return player.Player{}, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return player.Player{}, fmt.Errorf("begin tx create player: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	insertModel := playerInsertModel{
		ID:             item.ID,
		Sport:          item.Sport.String(),
		CanonicalName:  item.CanonicalName,
		NormalizedName: item.NormalizedName,
		TeamID:         nullableString(item.TeamID),
		Position:       nullableString(item.Position),
	}
	query, args, err := qb.InsertModel("players", insertModel, "")
	if err != nil {
		return player.Player{}, fmt.Errorf("build insert player query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return player.Player{}, fmt.Errorf("insert player %s: %w", item.ID, err)
	}

	for _, ref := range item.ProviderRefs {
		query, args, err := qb.InsertInto("player_provider_ids").
			Columns("player_id", "sport", "provider", "native_id").
			Values(item.ID, item.Sport.String(), ref.Provider, ref.NativeID).
			Suffix("ON CONFLICT (sport, provider, native_id) DO NOTHING").
			ToSQL()
		if err != nil {
			return player.Player{}, fmt.Errorf("build insert player provider ref query: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return player.Player{}, fmt.Errorf("insert player provider ref %s/%s: %w", ref.Provider, ref.NativeID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return player.Player{}, fmt.Errorf("player provider ref rows affected: %w", err)
		}
		if affected == 0 {
			_ = tx.Rollback()
			winner, found, err := r.GetByProviderRef(ctx, item.Sport, ref.Provider, ref.NativeID)
			if err != nil {
				return player.Player{}, err
			}
			if !found {
				return player.Player{}, fmt.Errorf("provider ref %s/%s claimed but owner not found", ref.Provider, ref.NativeID)
			}
			return winner, nil
		}
	}

	if err := tx.Commit(); err != nil {
		return player.Player{}, fmt.Errorf("commit create player tx: %w", err)
	}
	return item, nil
}

func (r *PlayerRepository) AddProviderRef(ctx context.Context, playerID string, s sport.Sport, ref player.ProviderRef) error {
	query, args, err := qb.InsertInto("player_provider_ids").
		Columns("player_id", "sport", "provider", "native_id").
		Values(playerID, s.String(), ref.Provider, ref.NativeID).
		Suffix("ON CONFLICT (sport, provider, native_id) DO NOTHING").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert player provider ref query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert player provider ref %s/%s: %w", ref.Provider, ref.NativeID, err)
	}
	return nil
}

func (r *PlayerRepository) UpdateSighting(ctx context.Context, playerID, teamID, position string) error {
	query, args, err := qb.Update("players").
		Set("team_id", nullableString(teamID)).
		Set("position", nullableString(position)).
		Where(qb.Eq("id", playerID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update player sighting query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update player sighting %s: %w", playerID, err)
	}
	return nil
}

func (r *PlayerRepository) getByID(ctx context.Context, playerID string) (player.Player, bool, error) {
	query, args, err := qb.Select("*").From("players").
		Where(qb.Eq("id", playerID)).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build select player query: %w", err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("select player %s: %w", playerID, err)
	}

	refs, err := r.refsByPlayerIDs(ctx, []any{playerID})
	if err != nil {
		return player.Player{}, false, err
	}
	return playerFromRow(row, refs[playerID]), true, nil
}

func (r *PlayerRepository) selectPlayers(ctx context.Context, s sport.Sport, query string, args []any) ([]player.Player, error) {
	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select players sport=%s: %w", s, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]any, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	refs, err := r.refsByPlayerIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, playerFromRow(row, refs[row.ID]))
	}
	return out, nil
}

func (r *PlayerRepository) refsByPlayerIDs(ctx context.Context, playerIDs []any) (map[string][]player.ProviderRef, error) {
	query, args, err := qb.Select("player_id", "provider", "native_id").From("player_provider_ids").
		Where(qb.In("player_id", playerIDs)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select player provider refs query: %w", err)
	}

	var rows []playerProviderRefTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select player provider refs: %w", err)
	}

	out := make(map[string][]player.ProviderRef, len(rows))
	for _, row := range rows {
		out[row.PlayerID] = append(out[row.PlayerID], player.ProviderRef{
			Provider: row.Provider,
			NativeID: row.NativeID,
		})
	}
	return out, nil
}

func playerFromRow(row playerTableModel, refs []player.ProviderRef) player.Player {
	return player.Player{
		ID:             row.ID,
		Sport:          sport.Sport(row.Sport),
		CanonicalName:  row.CanonicalName,
		NormalizedName: row.NormalizedName,
		TeamID:         nullStringToString(row.TeamID),
		Position:       nullStringToString(row.Position),
		ProviderRefs:   refs,
	}
}
