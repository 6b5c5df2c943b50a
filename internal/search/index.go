/*
Package search ranks expansions for the selection popup and the CLI.

Index is the ranked view used by the popup: tiered case-insensitive matching
on shortcut and description, popularity as the tie-breaker. FullText is a
bleve index over expansion bodies used by the find command.

Both are caches rebuilt from store snapshots; neither is ever edited in place.
*/
package search

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/bobersnip/TextShortcutter/internal/store"
)

// Tier is the match quality of a result; lower is better.
type Tier int

const (
	TierPrefix Tier = iota
	TierSubstring
	TierDescription
)

func (t Tier) String() string {
	switch t {
	case TierPrefix:
		return "prefix"
	case TierSubstring:
		return "substring"
	default:
		return "description"
	}
}

// Result is one ranked match.
type Result struct {
	store.Expansion
	Tier Tier
}

type entry struct {
	exp      store.Expansion
	shortcut string
	desc     string
}

// Index is an immutable ranked view swapped wholesale on Rebuild.
type Index struct {
	mu      sync.RWMutex
	entries []entry
	byID    map[string]int
}

// NewIndex returns an index over exps.
func NewIndex(exps []store.Expansion) *Index {
	ix := &Index{}
	ix.Rebuild(exps)
	return ix
}

// Rebuild replaces the index contents.
func (ix *Index) Rebuild(exps []store.Expansion) {
	entries := make([]entry, len(exps))
	byID := make(map[string]int, len(exps))
	for i, e := range exps {
		entries[i] = entry{
			exp:      e,
			shortcut: strings.ToLower(e.Shortcut),
			desc:     strings.ToLower(e.Description),
		}
		byID[e.ID] = i
	}

	ix.mu.Lock()
	ix.entries, ix.byID = entries, byID
	ix.mu.Unlock()
}

// Sync rebuilds from a store snapshot. It fits store.Subscribe.
func (ix *Index) Sync(snap store.Snapshot) {
	ix.Rebuild(snap.Expansions)
}

// Len reports how many expansions are indexed.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Get returns the expansion with id.
func (ix *Index) Get(id string) (store.Expansion, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	i, ok := ix.byID[id]
	if !ok {
		return store.Expansion{}, false
	}
	return ix.entries[i].exp, true
}

// Ranked returns matches for query with their tier. Disabled expansions are
// skipped when enabledOnly is set.
func (ix *Index) Ranked(query string, enabledOnly bool) []Result {
	q := strings.ToLower(strings.TrimSpace(query))

	ix.mu.RLock()
	out := make([]Result, 0, len(ix.entries))
	for _, en := range ix.entries {
		if enabledOnly && !en.exp.Enabled {
			continue
		}
		tier, ok := match(en, q)
		if !ok {
			continue
		}
		out = append(out, Result{Expansion: en.exp, Tier: tier})
	}
	ix.mu.RUnlock()

	slices.SortFunc(out, compareResults)
	return out
}

// Search returns every expansion matching query, best first. An empty query
// returns everything ordered by popularity.
func (ix *Index) Search(query string) []store.Expansion {
	return expansions(ix.Ranked(query, false))
}

// Listing is Search restricted to enabled expansions: what the popup shows.
func (ix *Index) Listing(query string) []store.Expansion {
	return expansions(ix.Ranked(query, true))
}

func match(en entry, q string) (Tier, bool) {
	switch {
	case q == "" || strings.HasPrefix(en.shortcut, q):
		return TierPrefix, true
	case strings.Contains(en.shortcut, q):
		return TierSubstring, true
	case strings.Contains(en.desc, q):
		return TierDescription, true
	}
	return 0, false
}

func compareResults(a, b Result) int {
	if c := cmp.Compare(a.Tier, b.Tier); c != 0 {
		return c
	}
	if c := cmp.Compare(b.UseCount, a.UseCount); c != 0 {
		return c
	}
	return strings.Compare(a.Shortcut, b.Shortcut)
}

func expansions(rs []Result) []store.Expansion {
	out := make([]store.Expansion, len(rs))
	for i, r := range rs {
		out[i] = r.Expansion
	}
	return out
}
