package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/statfuse/statfuse/internal/domain/sport"
	"github.com/statfuse/statfuse/internal/domain/team"
	qb "github.com/statfuse/statfuse/internal/platform/querybuilder"
)

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) GetByAlias(ctx context.Context, s sport.Sport, alias string) (team.Team, bool, error) {
	query, args, err := qb.Select("team_id").From("team_aliases").
		Where(
			qb.Eq("sport", s.String()),
			qb.Eq("alias", alias),
		).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build select team alias query: %w", err)
	}

	var teamID string
	if err := r.db.GetContext(ctx, &teamID, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, fmt.Errorf("select team alias: %w", err)
	}

	item, found, err := r.getByID(ctx, teamID)
	if err != nil {
		return team.Team{}, false, err
	}
	return item, found, nil
}

func (r *TeamRepository) ListBySport(ctx context.Context, s sport.Sport) ([]team.Team, error) {
	query, args, err := qb.Select("*").From("teams").
		Where(qb.Eq("sport", s.String())).
		OrderBy("canonical_name").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select teams query: %w", err)
	}

	var rows []teamTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select teams by sport: %w", err)
	}

	aliases, err := r.aliasesBySport(ctx, s)
	if err != nil {
		return nil, err
	}

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, teamFromRow(row, aliases[row.ID]))
	}
	return out, nil
}

// Create inserts the team and its aliases atomically. When another run
// already claimed the canonical alias, the insert is rolled back and
// the claiming team is returned instead.
func (r *TeamRepository) Create(ctx context.Context, item team.Team) (team.Team, error) {
	if err := item.Validate(); err != nil {
		return team.Team{}, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return team.Team{}, fmt.Errorf("begin tx create team: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	insertModel := teamInsertModel{
		ID:            item.ID,
		Sport:         item.Sport.String(),
		CanonicalName: item.CanonicalName,
		Abbreviation:  nullableString(item.Abbreviation),
	}
	query, args, err := qb.InsertModel("teams", insertModel, "")
	if err != nil {
		return team.Team{}, fmt.Errorf("build insert team query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return team.Team{}, fmt.Errorf("insert team %s: %w", item.ID, err)
	}

	for idx, alias := range item.Aliases {
		query, args, err := qb.InsertInto("team_aliases").
			Columns("team_id", "sport", "alias").
			Values(item.ID, item.Sport.String(), alias).
			Suffix("ON CONFLICT (sport, alias) DO NOTHING").
			ToSQL()
		if err != nil {
			return team.Team{}, fmt.Errorf("build insert team alias query: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return team.Team{}, fmt.Errorf("insert team alias %s: %w", alias, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return team.Team{}, fmt.Errorf("team alias rows affected: %w", err)
		}

		// The first alias is the canonical key. Losing it to a
		// concurrent insert means the whole team already exists.
		if affected == 0 && idx == 0 {
			_ = tx.Rollback()
			winner, found, err := r.GetByAlias(ctx, item.Sport, alias)
			if err != nil {
				return team.Team{}, err
			}
			if !found {
				return team.Team{}, fmt.Errorf("team alias %s claimed but owner not found", alias)
			}
			return winner, nil
		}
	}

	if err := tx.Commit(); err != nil {
		return team.Team{}, fmt.Errorf("commit create team tx: %w", err)
	}
	return item, nil
}

func (r *TeamRepository) AddAlias(ctx context.Context, teamID string, s sport.Sport, alias string) error {
	query, args, err := qb.InsertInto("team_aliases").
		Columns("team_id", "sport", "alias").
		Values(teamID, s.String(), alias).
		Suffix("ON CONFLICT (sport, alias) DO NOTHING").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert team alias query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert team alias %s: %w", alias, err)
	}
	return nil
}

func (r *TeamRepository) getByID(ctx context.Context, teamID string) (team.Team, bool, error) {
	query, args, err := qb.Select("*").From("teams").
		Where(qb.Eq("id", teamID)).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build select team query: %w", err)
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, fmt.Errorf("select team %s: %w", teamID, err)
	}

	aliasQuery, aliasArgs, err := qb.Select("team_id", "alias").From("team_aliases").
		Where(qb.Eq("team_id", teamID)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build select team aliases query: %w", err)
	}
	var aliasRows []teamAliasTableModel
	if err := r.db.SelectContext(ctx, &aliasRows, aliasQuery, aliasArgs...); err != nil {
		return team.Team{}, false, fmt.Errorf("select team aliases %s: %w", teamID, err)
	}

	aliases := make([]string, 0, len(aliasRows))
	for _, aliasRow := range aliasRows {
		aliases = append(aliases, aliasRow.Alias)
	}
	return teamFromRow(row, aliases), true, nil
}

func (r *TeamRepository) aliasesBySport(ctx context.Context, s sport.Sport) (map[string][]string, error) {
	query, args, err := qb.Select("team_id", "alias").From("team_aliases").
		Where(qb.Eq("sport", s.String())).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select aliases by sport query: %w", err)
	}

	var rows []teamAliasTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select aliases by sport: %w", err)
	}

	out := make(map[string][]string, len(rows))
	for _, row := range rows {
		out[row.TeamID] = append(out[row.TeamID], row.Alias)
	}
	return out, nil
}

func teamFromRow(row teamTableModel, aliases []string) team.Team {
	return team.Team{
		ID:            row.ID,
		Sport:         sport.Sport(row.Sport),
		CanonicalName: row.CanonicalName,
		Abbreviation:  nullStringToString(row.Abbreviation),
		Aliases:       aliases,
	}
}
