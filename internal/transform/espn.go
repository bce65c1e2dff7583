package transform

import (
	"fmt"
	"time"

	"github.com/statfuse/statfuse/internal/domain/rawrecord"
)

const ProviderESPN = "espn"

// ESPNTransformer maps ESPN scoreboard records: schedules before the
// game and final results after.
type ESPNTransformer struct{}

func NewESPNTransformer() *ESPNTransformer {
	return &ESPNTransformer{}
}

func (t *ESPNTransformer) Provider() string {
	return ProviderESPN
}

func (t *ESPNTransformer) Transform(record rawrecord.Record) (CanonicalRecord, error) {
	out := CanonicalRecord{
		Provider:        ProviderESPN,
		Sport:           record.Sport,
		Kind:            record.Kind,
		ExternalEventID: record.Field("event_id"),
		HomeTeamName:    record.Field("home_team"),
		AwayTeamName:    record.Field("away_team"),
	}

	date := record.Field("date")
	if date != "" {
		at, err := parseESPNDate(date)
		if err != nil {
			return CanonicalRecord{}, newError(record, fmt.Sprintf("unparseable date %q", date), err)
		}
		out.ScheduledAt = at
	}

	if record.Kind == rawrecord.KindResult {
		home, err := parseScore(record, "home_score")
		if err != nil {
			return CanonicalRecord{}, err
		}
		away, err := parseScore(record, "away_score")
		if err != nil {
			return CanonicalRecord{}, err
		}
		out.HomeScore = home
		out.AwayScore = away
	}

	return finish(record, out)
}

// ESPN publishes "2024-07-04T23:05Z" style timestamps without seconds.
func parseESPNDate(raw string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04Z0700", time.RFC3339, "2006-01-02"} {
		if at, err := time.Parse(layout, raw); err == nil {
			return at.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("no known date layout matches %q", raw)
}
