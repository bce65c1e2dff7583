package postgres

import "time"

type gameStatTableModel struct {
	EventID        string    `db:"event_id"`
	PlayerID       string    `db:"player_id"`
	SourceProvider string    `db:"source_provider"`
	Payload        string    `db:"payload"`
	FieldSources   string    `db:"field_sources"`
	UpdatedAt      time.Time `db:"updated_at"`
}

type gameStatInsertModel struct {
	EventID        string `db:"event_id"`
	PlayerID       string `db:"player_id"`
	SourceProvider string `db:"source_provider"`
	Payload        string `db:"payload"`
	FieldSources   string `db:"field_sources"`
}
