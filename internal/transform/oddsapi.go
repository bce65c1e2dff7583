package transform

import (
	"fmt"
	"strconv"
	"time"

	"github.com/statfuse/statfuse/internal/domain/rawrecord"
)

const ProviderOddsAPI = "oddsapi"

// OddsAPITransformer maps TheOddsAPI event records. The feed publishes
// upcoming events with a commence time and, once completed, the same
// event id with final scores.
type OddsAPITransformer struct{}

func NewOddsAPITransformer() *OddsAPITransformer {
	return &OddsAPITransformer{}
}

func (t *OddsAPITransformer) Provider() string {
	return ProviderOddsAPI
}

func (t *OddsAPITransformer) Transform(record rawrecord.Record) (CanonicalRecord, error) {
	out := CanonicalRecord{
		Provider:        ProviderOddsAPI,
		Sport:           record.Sport,
		Kind:            record.Kind,
		ExternalEventID: record.Field("id"),
		HomeTeamName:    record.Field("home_team"),
		AwayTeamName:    record.Field("away_team"),
	}

	commence := record.Field("commence_time")
	if commence != "" {
		at, err := time.Parse(time.RFC3339, commence)
		if err != nil {
			return CanonicalRecord{}, newError(record, fmt.Sprintf("unparseable commence_time %q", commence), err)
		}
		out.ScheduledAt = at.UTC()
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

func parseScore(record rawrecord.Record, field string) (*int, error) {
	raw := record.Field(field)
	if raw == "" {
		return nil, newError(record, fmt.Sprintf("missing %s", field), nil)
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, newError(record, fmt.Sprintf("unparseable %s %q", field, raw), err)
	}
	if value < 0 {
		return nil, newError(record, fmt.Sprintf("negative %s %d", field, value), nil)
	}
	return &value, nil
}
