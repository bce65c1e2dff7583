package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/statfuse/statfuse/internal/domain/sport"
)

// Key is a canonical lookup key produced from a raw provider name. The
// same raw string always folds to the same key; the alias table may
// grow but never repoints an existing alias, so a key assignment is
// stable for the life of the process.
type Key string

// Normalizer canonicalizes team and player name strings across source
// formats. It is a pure function over its alias-table configuration:
// fold the raw text, consult the hand-curated alias table, then try
// fuzzy containment against the known canonical names of the sport.
type Normalizer struct {
	aliases *AliasTable
}

func New(aliases *AliasTable) *Normalizer {
	if aliases == nil {
		aliases = NewAliasTable()
	}
	return &Normalizer{aliases: aliases}
}

func (n *Normalizer) Aliases() *AliasTable {
	return n.aliases
}

// Normalize returns the canonical key for a raw name and whether it
// matched a known identity. An unmatched name still yields a usable
// key (its folded form) so the resolver can create a new identity; it
// is never silently dropped. Empty input is unresolved with no key.
func (n *Normalizer) Normalize(raw string, s sport.Sport) (Key, bool) {
	folded := Fold(raw)
	if folded == "" {
		return "", false
	}

	if key, ok := n.aliases.Lookup(s, folded); ok {
		return key, true
	}

	if key, ok := n.matchKnown(folded, s); ok {
		return key, true
	}

	return Key(folded), false
}

// matchKnown attempts fuzzy containment against the known canonical
// names for the sport. A single unambiguous containment wins; among
// multiple the longest common-token overlap wins; a tie stays
// unresolved rather than guessing.
func (n *Normalizer) matchKnown(candidate string, s sport.Sport) (Key, bool) {
	known := n.aliases.KnownCanonicals(s)
	if len(known) == 0 {
		return "", false
	}

	var contained []string
	for _, name := range known {
		if name == candidate {
			return Key(name), true
		}
		if strings.Contains(name, candidate) || strings.Contains(candidate, name) {
			contained = append(contained, name)
		}
	}

	switch len(contained) {
	case 0:
		return "", false
	case 1:
		return Key(contained[0]), true
	}

	best, tie := "", false
	bestScore := -1
	candidateTokens := strings.Fields(candidate)
	for _, name := range contained {
		score := commonTokenCount(candidateTokens, strings.Fields(name))
		if score > bestScore {
			best, bestScore, tie = name, score, false
			continue
		}
		if score == bestScore {
			tie = true
		}
	}
	if tie || best == "" {
		return "", false
	}
	return Key(best), true
}

func commonTokenCount(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, tok := range a {
		set[tok] = struct{}{}
	}
	count := 0
	for _, tok := range b {
		if _, ok := set[tok]; ok {
			count++
			delete(set, tok)
		}
	}
	return count
}

// TokenSimilarity scores two already-folded names in [0,1]: shared
// token count over the larger token count. Used by the resolver's
// fuzzy player matching.
func TokenSimilarity(a, b string) float64 {
	aTokens := strings.Fields(a)
	bTokens := strings.Fields(b)
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0
	}
	shared := commonTokenCount(aTokens, bTokens)
	larger := len(aTokens)
	if len(bTokens) > larger {
		larger = len(bTokens)
	}
	return float64(shared) / float64(larger)
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases, strips diacritics and drops punctuation except
// intra-word hyphens, collapsing runs of whitespace to single spaces.
// Folding is deterministic and independent of any configuration.
func Fold(raw string) string {
	stripped, _, err := transform.String(diacriticStripper, raw)
	if err != nil {
		stripped = raw
	}
	lowered := strings.ToLower(stripped)

	var buf strings.Builder
	buf.Grow(len(lowered))
	runesIn := []rune(lowered)
	for i, r := range runesIn {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			buf.WriteRune(r)
		case r == '-' && i > 0 && i+1 < len(runesIn) &&
			isWordRune(runesIn[i-1]) && isWordRune(runesIn[i+1]):
			buf.WriteRune(r)
		default:
			buf.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(buf.String()), " ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
