package transform

import (
	"fmt"
	"strconv"
	"time"

	"github.com/statfuse/statfuse/internal/domain/gamestat"
	"github.com/statfuse/statfuse/internal/domain/rawrecord"
)

const ProviderSportsDataIO = "sportsdataio"

// sportsDataIOReserved are the identity fields of a SportsData.io stat
// line; every other field is treated as a numeric stat.
var sportsDataIOReserved = map[string]struct{}{
	"GameID":   {},
	"PlayerID": {},
	"Name":     {},
	"Team":     {},
	"HomeTeam": {},
	"AwayTeam": {},
	"Position": {},
	"Day":      {},
	"Updated":  {},
}

// SportsDataIOTransformer maps SportsData.io box score stat lines. The
// schema is wide and sport-specific, so stats are collected as an open
// bag rather than enumerated.
type SportsDataIOTransformer struct{}

func NewSportsDataIOTransformer() *SportsDataIOTransformer {
	return &SportsDataIOTransformer{}
}

func (t *SportsDataIOTransformer) Provider() string {
	return ProviderSportsDataIO
}

func (t *SportsDataIOTransformer) Transform(record rawrecord.Record) (CanonicalRecord, error) {
	if record.Kind != rawrecord.KindBoxScore {
		return CanonicalRecord{}, newError(record, fmt.Sprintf("unsupported record kind %q", record.Kind), nil)
	}

	out := CanonicalRecord{
		Provider:        ProviderSportsDataIO,
		Sport:           record.Sport,
		Kind:            rawrecord.KindBoxScore,
		ExternalEventID: record.Field("GameID"),
		HomeTeamName:    record.Field("HomeTeam"),
		AwayTeamName:    record.Field("AwayTeam"),
		PlayerName:      record.Field("Name"),
		PlayerNativeID:  record.Field("PlayerID"),
		PlayerTeamName:  record.Field("Team"),
		PlayerPosition:  record.Field("Position"),
	}

	day := record.Field("Day")
	if day != "" {
		at, err := parseDay(day)
		if err != nil {
			return CanonicalRecord{}, newError(record, fmt.Sprintf("unparseable Day %q", day), err)
		}
		out.ScheduledAt = at
	}

	stats := make(gamestat.Payload)
	for field, raw := range record.Fields {
		if _, reserved := sportsDataIOReserved[field]; reserved {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return CanonicalRecord{}, newError(record, fmt.Sprintf("unparseable stat %s=%q", field, raw), err)
		}
		stats[statKey(field)] = value
	}
	out.Stats = stats

	return finish(record, out)
}

func parseDay(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if at, err := time.Parse(layout, raw); err == nil {
			return at.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("no known date layout matches %q", raw)
}
