package postgres

import (
	"database/sql"
	"time"
)

type playerTableModel struct {
	ID             string         `db:"id"`
	Sport          string         `db:"sport"`
	CanonicalName  string         `db:"canonical_name"`
	NormalizedName string         `db:"normalized_name"`
	TeamID         sql.NullString `db:"team_id"`
	Position       sql.NullString `db:"position"`
	CreatedAt      time.Time      `db:"created_at"`
}

type playerInsertModel struct {
	ID             string  `db:"id"`
	Sport          string  `db:"sport"`
	CanonicalName  string  `db:"canonical_name"`
	NormalizedName string  `db:"normalized_name"`
	TeamID         *string `db:"team_id"`
	Position       *string `db:"position"`
}

type playerProviderRefTableModel struct {
	PlayerID string `db:"player_id"`
	Provider string `db:"provider"`
	NativeID string `db:"native_id"`
}
