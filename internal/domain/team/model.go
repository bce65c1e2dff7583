package team

import (
	"fmt"

	"github.com/statfuse/statfuse/internal/domain/sport"
)

// Team is the canonical identity for one real-world club, independent of
// any provider's naming scheme. Aliases are the raw names seen from any
// provider, stored in normalized form; an alias is appended once and
// never repointed to a different team.
type Team struct {
	ID            string
	Sport         sport.Sport
	CanonicalName string
	Abbreviation  string
	Aliases       []string
}

func (t Team) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("team id is required")
	}
	if err := t.Sport.Validate(); err != nil {
		return fmt.Errorf("team sport: %w", err)
	}
	if t.CanonicalName == "" {
		return fmt.Errorf("team canonical name is required")
	}
	return nil
}

// HasAlias reports whether the normalized alias is already recorded.
func (t Team) HasAlias(alias string) bool {
	for _, a := range t.Aliases {
		if a == alias {
			return true
		}
	}
	return false
}
