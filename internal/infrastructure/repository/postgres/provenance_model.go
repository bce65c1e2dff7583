package postgres

import (
	"database/sql"
	"time"
)

type warningTableModel struct {
	ID         int64     `db:"id"`
	Kind       string    `db:"kind"`
	Provider   string    `db:"provider"`
	Sport      string    `db:"sport"`
	Subject    string    `db:"subject"`
	Detail     string    `db:"detail"`
	OccurredAt time.Time `db:"occurred_at"`
}

type conflictTableModel struct {
	ID            int64          `db:"id"`
	Kind          string         `db:"kind"`
	Provider      string         `db:"provider"`
	Sport         string         `db:"sport"`
	EventID       sql.NullString `db:"event_id"`
	PlayerID      sql.NullString `db:"player_id"`
	Field         sql.NullString `db:"field"`
	KeptValue     string         `db:"kept_value"`
	RejectedValue string         `db:"rejected_value"`
	OccurredAt    time.Time      `db:"occurred_at"`
}

type warningInsertModel struct {
	Kind       string    `db:"kind"`
	Provider   string    `db:"provider"`
	Sport      string    `db:"sport"`
	Subject    string    `db:"subject"`
	Detail     string    `db:"detail"`
	OccurredAt time.Time `db:"occurred_at"`
}

type conflictInsertModel struct {
	Kind          string    `db:"kind"`
	Provider      string    `db:"provider"`
	Sport         string    `db:"sport"`
	EventID       *string   `db:"event_id"`
	PlayerID      *string   `db:"player_id"`
	Field         *string   `db:"field"`
	KeptValue     string    `db:"kept_value"`
	RejectedValue string    `db:"rejected_value"`
	OccurredAt    time.Time `db:"occurred_at"`
}

type runInsertModel struct {
	Provider   string    `db:"provider"`
	Sport      string    `db:"sport"`
	Inserted   int       `db:"inserted"`
	Updated    int       `db:"updated"`
	Skipped    int       `db:"skipped"`
	Ambiguous  int       `db:"ambiguous"`
	Conflicts  int       `db:"conflicts"`
	Errors     int       `db:"errors"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
}
