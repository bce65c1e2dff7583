package rawrecord

import (
	"strings"

	"github.com/statfuse/statfuse/internal/domain/sport"
)

// Kind tags what a raw record describes. Providers publish schedules,
// final results and per-player stat lines through the same batch path.
const (
	KindSchedule = "schedule"
	KindResult   = "result"
	KindBoxScore = "box_score"
)

// Record is the only contract this core demands from upstream fetchers:
// a flat key-value map plus a provider identifier and a sport tag.
// Field names are provider-native; the transform layer owns their
// interpretation.
type Record struct {
	Provider string
	Sport    sport.Sport
	Kind     string
	Fields   map[string]string
}

func (r Record) Field(name string) string {
	return strings.TrimSpace(r.Fields[name])
}

func (r Record) HasField(name string) bool {
	return r.Field(name) != ""
}
