package player

import (
	"fmt"

	"github.com/statfuse/statfuse/internal/domain/sport"
)

// ProviderRef is one provider-native identity mapped onto a canonical
// player. A (sport, provider, native id) triple belongs to exactly one
// player; a player may carry refs from many providers once identity
// fusion has corroborated them.
type ProviderRef struct {
	Provider string
	NativeID string
}

// Player is the canonical identity for one athlete. TeamID is a soft
// pointer refreshed on each sighting, not an ownership relation.
type Player struct {
	ID             string
	Sport          sport.Sport
	CanonicalName  string
	NormalizedName string
	TeamID         string
	Position       string
	ProviderRefs   []ProviderRef
}

func (p Player) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("player id is required")
	}
	if err := p.Sport.Validate(); err != nil {
		return fmt.Errorf("player sport: %w", err)
	}
	if p.CanonicalName == "" {
		return fmt.Errorf("player canonical name is required")
	}
	if p.NormalizedName == "" {
		return fmt.Errorf("player normalized name is required")
	}
	return nil
}

func (p Player) HasProviderRef(provider, nativeID string) bool {
	for _, ref := range p.ProviderRefs {
		if ref.Provider == provider && ref.NativeID == nativeID {
			return true
		}
	}
	return false
}
