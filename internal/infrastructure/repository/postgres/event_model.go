package postgres

import (
	"database/sql"
	"time"
)

type eventTableModel struct {
	ID          string        `db:"id"`
	Sport       string        `db:"sport"`
	Provider    string        `db:"provider"`
	ExternalID  string        `db:"external_id"`
	HomeTeamID  string        `db:"home_team_id"`
	AwayTeamID  string        `db:"away_team_id"`
	ScheduledAt time.Time     `db:"scheduled_at"`
	Status      string        `db:"status"`
	HomeScore   sql.NullInt64 `db:"home_score"`
	AwayScore   sql.NullInt64 `db:"away_score"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

type eventInsertModel struct {
	ID          string    `db:"id"`
	Sport       string    `db:"sport"`
	Provider    string    `db:"provider"`
	ExternalID  string    `db:"external_id"`
	HomeTeamID  string    `db:"home_team_id"`
	AwayTeamID  string    `db:"away_team_id"`
	ScheduledAt time.Time `db:"scheduled_at"`
	Status      string    `db:"status"`
}

type eventExternalRefTableModel struct {
	EventID    string `db:"event_id"`
	Provider   string `db:"provider"`
	ExternalID string `db:"external_id"`
}
