package transform

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/statfuse/statfuse/internal/domain/gamestat"
	"github.com/statfuse/statfuse/internal/domain/rawrecord"
	"github.com/statfuse/statfuse/internal/domain/sport"
)

// CanonicalRecord is the provider-independent attribute set one raw
// record maps to. Team and player references are still names at this
// stage; the resolver turns them into canonical ids.
type CanonicalRecord struct {
	Provider        string      `validate:"required"`
	Sport           sport.Sport `validate:"required"`
	Kind            string      `validate:"required,oneof=schedule result box_score"`
	ExternalEventID string      `validate:"required"`
	HomeTeamName    string      `validate:"required"`
	AwayTeamName    string      `validate:"required"`
	ScheduledAt     time.Time   `validate:"required"`

	// result only
	HomeScore *int
	AwayScore *int

	// box_score only
	PlayerName     string
	PlayerNativeID string
	PlayerTeamName string
	PlayerPosition string
	Stats          gamestat.Payload
}

// Error wraps everything that makes a raw record unusable. Transform
// errors are recovered locally by the run: the record is skipped and
// counted, the batch continues.
type Error struct {
	Provider string
	Kind     string
	Reason   string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("transform %s record from %s: %s", e.Kind, e.Provider, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsTransformError(err error) bool {
	var te *Error
	return errors.As(err, &te)
}

func newError(record rawrecord.Record, reason string, err error) *Error {
	return &Error{Provider: record.Provider, Kind: record.Kind, Reason: reason, Err: err}
}

// Transformer maps one provider's raw record schema into the canonical
// attribute set.
type Transformer interface {
	Provider() string
	Transform(record rawrecord.Record) (CanonicalRecord, error)
}

// Registry holds one transformer per provider identifier.
type Registry struct {
	transformers map[string]Transformer
}

func NewRegistry(transformers ...Transformer) *Registry {
	r := &Registry{transformers: make(map[string]Transformer, len(transformers))}
	for _, t := range transformers {
		r.transformers[strings.ToLower(t.Provider())] = t
	}
	return r
}

func DefaultRegistry() *Registry {
	return NewRegistry(
		NewOddsAPITransformer(),
		NewSportsDataIOTransformer(),
		NewESPNTransformer(),
	)
}

func (r *Registry) Get(provider string) (Transformer, bool) {
	t, ok := r.transformers[strings.ToLower(strings.TrimSpace(provider))]
	return t, ok
}

func (r *Registry) Providers() []string {
	out := make([]string, 0, len(r.transformers))
	for name := range r.transformers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// finish validates the shared attribute set plus the kind-specific
// requirements the tag language cannot express.
func finish(record rawrecord.Record, out CanonicalRecord) (CanonicalRecord, error) {
	if err := validate.Struct(out); err != nil {
		return CanonicalRecord{}, newError(record, "missing required attributes", err)
	}

	switch out.Kind {
	case rawrecord.KindResult:
		if out.HomeScore == nil || out.AwayScore == nil {
			return CanonicalRecord{}, newError(record, "result record without final scores", nil)
		}
	case rawrecord.KindBoxScore:
		if out.PlayerName == "" {
			return CanonicalRecord{}, newError(record, "box score record without player name", nil)
		}
		if len(out.Stats) == 0 {
			return CanonicalRecord{}, newError(record, "box score record without stat fields", nil)
		}
	}

	return out, nil
}

// statKey lower-snakes a provider stat name, turning "HomeRuns" into "home_runs".
func statKey(name string) string {
	var buf strings.Builder
	buf.Grow(len(name) + 4)
	prevLower := false
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			if prevLower {
				buf.WriteByte('_')
			}
			buf.WriteRune(r + ('a' - 'A'))
			prevLower = false
		case r == ' ' || r == '-':
			buf.WriteByte('_')
			prevLower = false
		default:
			buf.WriteRune(r)
			prevLower = r >= 'a' && r <= 'z' || r >= '0' && r <= '9'
		}
	}
	return strings.Trim(buf.String(), "_")
}
