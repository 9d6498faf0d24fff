// Package entity resolves free-text participant names (teams) to canonical
// keys through an explicit alias table. It never guesses: an alias that is
// not in the table stays unresolved and is logged so it can be curated.
package entity

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Table maps category -> canonical key -> aliases.
type Table map[string]map[string][]string

// categoryOrder fixes which league wins when the global table sees the same
// alias twice.
var categoryOrder = []string{"nba", "nfl", "nhl", "cbb", "cfb"}

// minScanAlias is the shortest alias Scan will accept from free text. Two
// letter codes collide with ordinary words.
const minScanAlias = 3

var scanStopwords = map[string]bool{
	"was": true, "min": true, "sea": true, "van": true, "car": true,
	"ten": true, "pit": true, "the": true, "and": true, "win": true,
	"yes": true, "over": true, "under": true, "total": true, "spread": true,
}

// Normalizer resolves aliases. It is immutable after New apart from the
// set of aliases already reported as unknown, and is safe for concurrent use.
type Normalizer struct {
	byCategory map[string]map[string]string // category -> alias key -> canonical
	global     map[string]string
	maxWords   int
	logger     *slog.Logger

	unknown sync.Map
}

// New builds a Normalizer from the built-in table merged with overlays.
// Overlay aliases are appended to the built-in ones; overlays may also add
// new canonicals or categories.
func New(logger *slog.Logger, overlays ...Table) *Normalizer {
	n := &Normalizer{
		byCategory: make(map[string]map[string]string),
		global:     make(map[string]string),
		maxWords:   1,
		logger:     logger.With(slog.String("component", "entity")),
	}

	merged := merge(builtin, overlays...)
	for _, cat := range orderedCategories(merged) {
		local := make(map[string]string)
		canonicals := make([]string, 0, len(merged[cat]))
		for c := range merged[cat] {
			canonicals = append(canonicals, c)
		}
		sort.Strings(canonicals)

		for _, canonical := range canonicals {
			ck := Key(canonical)
			if ck == "" {
				continue
			}
			n.register(cat, local, ck, ck)
			for _, alias := range merged[cat][canonical] {
				if w := len(strings.Fields(alias)); w > n.maxWords {
					n.maxWords = w
				}
				if ak := Key(alias); ak != "" {
					n.register(cat, local, ak, ck)
				}
			}
		}
		n.byCategory[cat] = local
	}
	return n
}

func (n *Normalizer) register(cat string, local map[string]string, alias, canonical string) {
	if prev, ok := local[alias]; ok {
		if prev != canonical {
			n.logger.Warn("alias collision within category",
				slog.String("category", cat),
				slog.String("alias", alias),
				slog.String("kept", prev),
				slog.String("dropped", canonical),
			)
		}
	} else {
		local[alias] = canonical
	}

	if prev, ok := n.global[alias]; ok {
		if prev != canonical {
			n.logger.Debug("alias shadowed in global table",
				slog.String("category", cat),
				slog.String("alias", alias),
				slog.String("kept", prev),
			)
		}
		return
	}
	n.global[alias] = canonical
}

// Key folds s to its literal comparison form: lower case with everything
// outside [a-z0-9] removed.
func Key(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PairKey builds the unordered pair key for two entity keys.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "-" + b
}

// Normalize resolves raw through the global table.
func (n *Normalizer) Normalize(raw string) (string, bool) {
	k := Key(raw)
	if k == "" {
		return "", false
	}
	if c, ok := n.global[k]; ok {
		return c, true
	}
	n.noteUnknown("", raw)
	return "", false
}

// NormalizeIn resolves raw within category. Categories without a table of
// their own fall back to the global table.
func (n *Normalizer) NormalizeIn(category, raw string) (string, bool) {
	if _, ok := n.byCategory[category]; !ok {
		return n.Normalize(raw)
	}
	if c, ok := n.Lookup(category, raw); ok {
		return c, true
	}
	if Key(raw) != "" {
		n.noteUnknown(category, raw)
	}
	return "", false
}

// Lookup is NormalizeIn without the unknown-alias warning, for callers that
// check candidate substrings.
func (n *Normalizer) Lookup(category, raw string) (string, bool) {
	k := Key(raw)
	if k == "" {
		return "", false
	}
	c, ok := n.tableFor(category)[k]
	return c, ok
}

// Resolve returns the canonical key for raw, or its literal form when raw is
// not in the table.
func (n *Normalizer) Resolve(category, raw string) string {
	if c, ok := n.NormalizeIn(category, raw); ok {
		return c
	}
	return Key(raw)
}

// SameEntity reports whether a and b denote the same participant. When
// either side does not resolve, the literal forms are compared instead.
func (n *Normalizer) SameEntity(category, a, b string) bool {
	ca, okA := n.NormalizeIn(category, a)
	cb, okB := n.NormalizeIn(category, b)
	if okA && okB {
		return ca == cb
	}
	ka := Key(a)
	return ka != "" && ka == Key(b)
}

// Scan finds known aliases in free text and returns their canonicals in
// order of first appearance. Longer word sequences win over shorter ones at
// the same position.
func (n *Normalizer) Scan(category, text string) []string {
	table := n.tableFor(category)
	words := words(text)

	var out []string
	seen := make(map[string]bool)
	for i := 0; i < len(words); {
		matched := 0
		for size := n.maxWords; size >= 1; size-- {
			if i+size > len(words) {
				continue
			}
			k := strings.Join(words[i:i+size], "")
			if len(k) < minScanAlias || scanStopwords[k] {
				continue
			}
			if c, ok := table[k]; ok {
				if !seen[c] {
					seen[c] = true
					out = append(out, c)
				}
				matched = size
				break
			}
		}
		if matched == 0 {
			matched = 1
		}
		i += matched
	}
	return out
}

// Mentions reports whether text names the canonical entity, either through
// one of its aliases or by the canonical code itself.
func (n *Normalizer) Mentions(category, canonical, text string) bool {
	if canonical == "" {
		return false
	}
	for _, w := range words(text) {
		if w == canonical {
			return true
		}
	}
	for _, c := range n.Scan(category, text) {
		if c == canonical {
			return true
		}
	}
	return false
}

func (n *Normalizer) tableFor(category string) map[string]string {
	if t, ok := n.byCategory[category]; ok {
		return t
	}
	return n.global
}

func (n *Normalizer) noteUnknown(category, raw string) {
	key := category + "|" + Key(raw)
	if _, loaded := n.unknown.LoadOrStore(key, struct{}{}); loaded {
		return
	}
	n.logger.Warn("unmapped entity alias",
		slog.String("category", category),
		slog.String("alias", raw),
	)
}

// words lower-cases text and splits it on anything that is not a letter or
// digit.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
}

func merge(base Table, overlays ...Table) Table {
	out := make(Table, len(base))
	add := func(t Table) {
		for cat, entries := range t {
			if out[cat] == nil {
				out[cat] = make(map[string][]string)
			}
			for canonical, aliases := range entries {
				out[cat][canonical] = append(out[cat][canonical], aliases...)
			}
		}
	}
	add(base)
	for _, o := range overlays {
		add(o)
	}
	return out
}

func orderedCategories(t Table) []string {
	known := make(map[string]bool, len(categoryOrder))
	out := make([]string, 0, len(t))
	for _, c := range categoryOrder {
		known[c] = true
		if _, ok := t[c]; ok {
			out = append(out, c)
		}
	}
	var extra []string
	for c := range t {
		if !known[c] {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
