package postgres

import (
	"database/sql"
	"time"
)

type teamTableModel struct {
	ID            string         `db:"id"`
	Sport         string         `db:"sport"`
	CanonicalName string         `db:"canonical_name"`
	Abbreviation  sql.NullString `db:"abbreviation"`
	CreatedAt     time.Time      `db:"created_at"`
}

type teamInsertModel struct {
	ID            string  `db:"id"`
	Sport         string  `db:"sport"`
	CanonicalName string  `db:"canonical_name"`
	Abbreviation  *string `db:"abbreviation"`
}

type teamAliasTableModel struct {
	TeamID string `db:"team_id"`
	Alias  string `db:"alias"`
}
