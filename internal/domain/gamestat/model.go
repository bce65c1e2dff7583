package gamestat

import "fmt"

// Payload is the open stat bag for one player in one game. Keys are
// sport- and source-specific stat names; values are numeric.
type Payload map[string]float64

// Record is at most one row per (event, player) pair. SourceProvider is
// the provider whose payload last fully replaced the record.
// FieldSources tracks which provider populated each payload field so
// cross-source priority merges stay correct after partial merges.
type Record struct {
	EventID        string
	PlayerID       string
	SourceProvider string
	Payload        Payload
	FieldSources   map[string]string
}

func (r Record) Validate() error {
	if r.EventID == "" {
		return fmt.Errorf("game stat event id is required")
	}
	if r.PlayerID == "" {
		return fmt.Errorf("game stat player id is required")
	}
	if r.SourceProvider == "" {
		return fmt.Errorf("game stat source provider is required")
	}
	if len(r.Payload) == 0 {
		return fmt.Errorf("game stat payload is required")
	}
	return nil
}

// Clone returns a deep copy so merges never mutate a caller's maps.
func (r Record) Clone() Record {
	out := r
	out.Payload = make(Payload, len(r.Payload))
	for k, v := range r.Payload {
		out.Payload[k] = v
	}
	out.FieldSources = make(map[string]string, len(r.FieldSources))
	for k, v := range r.FieldSources {
		out.FieldSources[k] = v
	}
	return out
}
