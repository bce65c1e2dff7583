package merger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPriorityTable_Outranks(t *testing.T) {
	t.Parallel()

	table := NewPriorityTable(
		map[string][]string{
			"default": {"sportsdataio", "oddsapi", "espn"},
			"scores":  {"espn", "sportsdataio"},
		},
		map[string]string{"points": "scores"},
	)

	if !table.Outranks("sportsdataio", "oddsapi", "rebounds") {
		t.Fatalf("earlier provider must outrank later one in the default category")
	}
	if table.Outranks("oddsapi", "sportsdataio", "rebounds") {
		t.Fatalf("later provider must not outrank earlier one")
	}
	if table.Outranks("sportsdataio", "sportsdataio", "rebounds") {
		t.Fatalf("a provider never outranks itself")
	}

	// points routes to the scores category, flipping the order.
	if !table.Outranks("espn", "sportsdataio", "points") {
		t.Fatalf("category mapping must override the default order")
	}

	if table.Outranks("unknown", "espn", "rebounds") {
		t.Fatalf("unlisted provider must rank below every listed one")
	}
	if !table.Outranks("espn", "unknown", "rebounds") {
		t.Fatalf("listed provider must outrank an unlisted one")
	}
	if table.Outranks("mystery-a", "mystery-b", "rebounds") {
		t.Fatalf("two unlisted providers tie, neither outranks")
	}
}

func TestLoadPriorityTable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "priorities.yaml")
	content := []byte(`version: 2
categories:
  default:
    - sportsdataio
    - espn
  scores:
    - espn
fields:
  points: scores
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	table, err := LoadPriorityTable(path)
	if err != nil {
		t.Fatalf("load priority table: %v", err)
	}
	if table.Version() != 2 {
		t.Fatalf("unexpected version: %d", table.Version())
	}
	if !table.Outranks("sportsdataio", "espn", "assists") {
		t.Fatalf("default ordering not loaded")
	}
	if table.Outranks("sportsdataio", "espn", "points") {
		t.Fatalf("field mapping not loaded")
	}
}
