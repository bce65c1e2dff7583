package event

import (
	"fmt"
	"time"

	"github.com/statfuse/statfuse/internal/domain/sport"
)

const (
	StatusScheduled = "SCHEDULED"
	StatusCompleted = "COMPLETED"
)

// ExternalRef is one provider's stable id for an event. The ref the
// event was first created from stays on the row itself; refs attached
// later by cross-provider fusion live in SecondaryRefs.
type ExternalRef struct {
	Provider   string
	ExternalID string
}

// Event is one physical game. Scores stay nil until the event
// transitions to completed; once set they are never revised, a
// disagreeing later result is recorded as a conflict instead.
type Event struct {
	ID            string
	Sport         sport.Sport
	Provider      string
	ExternalID    string
	SecondaryRefs []ExternalRef
	HomeTeamID    string
	AwayTeamID    string
	ScheduledAt   time.Time
	Status        string
	HomeScore     *int
	AwayScore     *int
}

func (e Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if err := e.Sport.Validate(); err != nil {
		return fmt.Errorf("event sport: %w", err)
	}
	if e.Provider == "" || e.ExternalID == "" {
		return fmt.Errorf("event provider and external id are required")
	}
	if e.HomeTeamID == "" || e.AwayTeamID == "" {
		return fmt.Errorf("event home and away team ids are required")
	}
	if e.ScheduledAt.IsZero() {
		return fmt.Errorf("event scheduled_at is required")
	}
	return nil
}

func (e Event) IsCompleted() bool {
	return e.Status == StatusCompleted
}

// HasFinalScores reports whether completed scores have been recorded.
func (e Event) HasFinalScores() bool {
	return e.IsCompleted() && e.HomeScore != nil && e.AwayScore != nil
}

func NormalizeStatus(value string) string {
	switch value {
	case StatusScheduled, StatusCompleted:
		return value
	}
	return StatusScheduled
}
