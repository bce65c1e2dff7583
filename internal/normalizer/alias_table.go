package normalizer

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/statfuse/statfuse/internal/domain/sport"
)

// AliasTable is the versioned, hand-curated alias configuration plus
// the aliases learned at runtime. It is loaded once per process and
// shared by every ingestion run; entries are append-only, an alias is
// never removed or repointed once created, so historical data is never
// retroactively reclassified.
type AliasTable struct {
	mu      sync.RWMutex
	version int
	aliases map[sport.Sport]map[string]Key
	known   map[sport.Sport]map[string]struct{}
}

type aliasTableFile struct {
	Version int                          `yaml:"version"`
	Sports  map[string]aliasTableSportYA `yaml:"sports"`
}

type aliasTableSportYA struct {
	Teams map[string]string `yaml:"teams"`
}

func NewAliasTable() *AliasTable {
	return &AliasTable{
		aliases: make(map[sport.Sport]map[string]Key),
		known:   make(map[sport.Sport]map[string]struct{}),
	}
}

// LoadAliasTable reads the static alias configuration from a YAML
// file. Both alias and canonical strings are folded on load so lookups
// match regardless of the curation's casing.
func LoadAliasTable(path string) (*AliasTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias table %s: %w", path, err)
	}

	var file aliasTableFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse alias table %s: %w", path, err)
	}

	table := NewAliasTable()
	table.version = file.Version
	for sportName, section := range file.Sports {
		s, err := sport.Parse(sportName)
		if err != nil {
			return nil, fmt.Errorf("alias table %s: %w", path, err)
		}
		for alias, canonical := range section.Teams {
			foldedAlias := Fold(alias)
			foldedCanonical := Fold(canonical)
			if foldedAlias == "" || foldedCanonical == "" {
				return nil, fmt.Errorf("alias table %s: empty alias mapping under %s", path, sportName)
			}
			if err := table.Add(s, foldedAlias, Key(foldedCanonical)); err != nil {
				return nil, fmt.Errorf("alias table %s: %w", path, err)
			}
			table.RegisterCanonical(s, Key(foldedCanonical))
		}
	}

	return table, nil
}

func (t *AliasTable) Version() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

// Lookup returns the canonical key an already-folded alias maps to.
func (t *AliasTable) Lookup(s sport.Sport, alias string) (Key, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	key, ok := t.aliases[s][alias]
	return key, ok
}

// Add maps a folded alias onto a canonical key. Adding the same
// mapping twice is a no-op; repointing an existing alias is refused.
func (t *AliasTable) Add(s sport.Sport, alias string, canonical Key) error {
	if alias == "" || canonical == "" {
		return fmt.Errorf("alias and canonical key are required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.aliases[s] == nil {
		t.aliases[s] = make(map[string]Key)
	}
	if existing, ok := t.aliases[s][alias]; ok {
		if existing != canonical {
			return fmt.Errorf("alias %q already maps to %q for %s, refusing to repoint to %q", alias, existing, s, canonical)
		}
		return nil
	}
	t.aliases[s][alias] = canonical
	return nil
}

// RegisterCanonical records a canonical name as known for its sport so
// later fuzzy containment can match against it.
func (t *AliasTable) RegisterCanonical(s sport.Sport, canonical Key) {
	if canonical == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.known[s] == nil {
		t.known[s] = make(map[string]struct{})
	}
	t.known[s][string(canonical)] = struct{}{}
}

// KnownCanonicals returns a sorted snapshot of the known canonical
// names for a sport. Sorted so tie-breaking is deterministic.
func (t *AliasTable) KnownCanonicals(s sport.Sport) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.known[s]))
	for name := range t.known[s] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
