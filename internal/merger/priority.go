package merger

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultCategory = "default"

// PriorityTable is supplied configuration, never inferred: it ranks
// providers per stat category so cross-source merges know which feed
// is authoritative for which fields. Providers earlier in a category's
// list outrank later ones; unlisted providers rank lowest.
type PriorityTable struct {
	version    int
	categories map[string][]string
	fields     map[string]string
}

type priorityTableFile struct {
	Version    int                 `yaml:"version"`
	Categories map[string][]string `yaml:"categories"`
	Fields     map[string]string   `yaml:"fields"`
}

func NewPriorityTable(categories map[string][]string, fields map[string]string) PriorityTable {
	if categories == nil {
		categories = map[string][]string{}
	}
	if fields == nil {
		fields = map[string]string{}
	}
	return PriorityTable{categories: categories, fields: fields}
}

func LoadPriorityTable(path string) (PriorityTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return PriorityTable{}, fmt.Errorf("read priority table %s: %w", path, err)
	}

	var file priorityTableFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return PriorityTable{}, fmt.Errorf("parse priority table %s: %w", path, err)
	}

	table := NewPriorityTable(file.Categories, file.Fields)
	table.version = file.Version
	return table, nil
}

func (t PriorityTable) Version() int {
	return t.version
}

// Outranks reports whether newProvider is strictly higher priority
// than oldProvider for a stat field. Equal or unknown ranks never
// outrank, so an already-populated field is kept on ties.
func (t PriorityTable) Outranks(newProvider, oldProvider, field string) bool {
	if newProvider == oldProvider {
		return false
	}
	providers := t.providersFor(field)
	return rankOf(providers, newProvider) < rankOf(providers, oldProvider)
}

func (t PriorityTable) providersFor(field string) []string {
	category, ok := t.fields[strings.ToLower(strings.TrimSpace(field))]
	if !ok {
		category = defaultCategory
	}
	providers, ok := t.categories[category]
	if !ok {
		providers = t.categories[defaultCategory]
	}
	return providers
}

// rankOf returns the provider's index, or one past the end when the
// provider is not listed, which sorts it below every listed one.
func rankOf(providers []string, provider string) int {
	for i, p := range providers {
		if strings.EqualFold(p, provider) {
			return i
		}
	}
	return len(providers)
}
