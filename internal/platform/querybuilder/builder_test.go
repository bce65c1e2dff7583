package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("id", "canonical_name").
		From("teams").
		Where(Eq("sport", "mlb"), IsNull("deleted_at")).
		OrderBy("canonical_name").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id, canonical_name FROM teams WHERE sport = $1 AND deleted_at IS NULL ORDER BY canonical_name LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != "mlb" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_InCondition(t *testing.T) {
	query, args, err := Select("player_id", "provider").
		From("player_provider_ids").
		Where(In("player_id", []any{"p1", "p2"})).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT player_id, provider FROM player_provider_ids WHERE player_id IN ($1, $2)"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "p1" || args[1] != "p2" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_EmptyInMatchesNothing(t *testing.T) {
	query, args, err := Select("id").
		From("teams").
		Where(In("id", nil)).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id FROM teams WHERE 1=0"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 0 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_ExprRewritesPlaceholders(t *testing.T) {
	query, args, err := Select("id").
		From("events").
		Where(
			Eq("sport", "mlb"),
			Expr("((home_team_id = ? AND away_team_id = ?) OR (home_team_id = ? AND away_team_id = ?))",
				"a", "b", "b", "a"),
		).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id FROM events WHERE sport = $1 AND ((home_team_id = $2 AND away_team_id = $3) OR (home_team_id = $4 AND away_team_id = $5))"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 5 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("team_aliases").
		Columns("team_id", "sport", "alias").
		Values("t1", "mlb", "nyy").
		Suffix("ON CONFLICT (sport, alias) DO NOTHING").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO team_aliases (team_id, sport, alias) VALUES ($1, $2, $3) ON CONFLICT (sport, alias) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[0] != "t1" || args[2] != "nyy" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder_RowArityMismatch(t *testing.T) {
	_, _, err := InsertInto("teams").
		Columns("id", "sport").
		Values("t1").
		ToSQL()
	if err == nil {
		t.Fatalf("mismatched row arity must fail")
	}
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("players").
		Set("team_id", "t2").
		Set("position", "CF").
		Where(Eq("id", "p1")).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE players SET team_id = $1, position = $2 WHERE id = $3"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[0] != "t2" || args[2] != "p1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModel(t *testing.T) {
	model := struct {
		ID    string `db:"id"`
		Sport string `db:"sport"`
		Note  string `db:"-"`
	}{ID: "t1", Sport: "mlb", Note: "ignored"}

	query, args, err := InsertModel("teams", model, "ON CONFLICT (id) DO NOTHING")
	if err != nil {
		t.Fatalf("build insert from model: %v", err)
	}

	wantQuery := "INSERT INTO teams (id, sport) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "t1" || args[1] != "mlb" {
		t.Fatalf("unexpected args: %+v", args)
	}
}
