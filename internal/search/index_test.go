package search

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobersnip/TextShortcutter/internal/store"
)

func exp(id, shortcut, desc string, uses int64) store.Expansion {
	return store.Expansion{ID: id, Shortcut: shortcut, Body: "body of " + shortcut, Description: desc, Enabled: true, UseCount: uses}
}

func shortcuts(exps []store.Expansion) []string {
	out := make([]string, len(exps))
	for i, e := range exps {
		out[i] = e.Shortcut
	}
	return out
}

func sample() []store.Expansion {
	return []store.Expansion{
		exp("1", "omg", "Oh my gosh", 3),
		exp("2", "brb", "be right back", 10),
		exp("3", "addr", "home address", 3),
		exp("4", "sig", "email signature", 0),
		exp("5", "xomg", "", 1),
		exp("6", "omw", "on my way", 3),
	}
}

func TestSearchEmptyQueryOrdersByPopularity(t *testing.T) {
	ix := NewIndex(sample())
	got := shortcuts(ix.Search(""))
	assert.Equal(t, []string{"brb", "addr", "omg", "omw", "xomg", "sig"}, got)
}

func TestSearchTiers(t *testing.T) {
	ix := NewIndex(sample())

	tests := []struct {
		query string
		want  []string
	}{
		{"om", []string{"omg", "omw", "xomg", "addr"}},
		{"OMG", []string{"omg", "xomg"}},
		{"ig", []string{"sig", "brb"}},
		{"address", []string{"addr"}},
		// "my" only hits descriptions
		{"my", []string{"omg", "omw"}},
		{"  brb ", []string{"brb"}},
		{"zzz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, shortcuts(ix.Search(tt.query)))
		})
	}
}

func TestRankedReportsTier(t *testing.T) {
	ix := NewIndex([]store.Expansion{
		exp("1", "sig", "", 0),
		exp("2", "xsig", "", 100),
		exp("3", "mail", "signature block", 1000),
	})
	rs := ix.Ranked("sig", false)
	require.Len(t, rs, 3)
	assert.Equal(t, TierPrefix, rs[0].Tier)
	assert.Equal(t, TierSubstring, rs[1].Tier)
	assert.Equal(t, TierDescription, rs[2].Tier)
	assert.Equal(t, "mail", rs[2].Shortcut)
}

func TestShortcutTiersContainQuery(t *testing.T) {
	ix := NewIndex(sample())
	for _, q := range []string{"o", "om", "b", "r", "dd", "g"} {
		for _, r := range ix.Ranked(q, false) {
			if r.Tier == TierDescription {
				continue
			}
			assert.Contains(t, strings.ToLower(r.Shortcut), q)
		}
	}
}

func TestListingHidesDisabled(t *testing.T) {
	exps := sample()
	exps[1].Enabled = false
	ix := NewIndex(exps)

	assert.NotContains(t, shortcuts(ix.Listing("")), "brb")
	assert.Contains(t, shortcuts(ix.Search("")), "brb")
}

func TestRebuildReplaces(t *testing.T) {
	ix := NewIndex(sample())
	ix.Sync(store.Snapshot{Expansions: []store.Expansion{exp("9", "new", "", 0)}})

	assert.Equal(t, 1, ix.Len())
	_, ok := ix.Get("1")
	assert.False(t, ok)
	e, ok := ix.Get("9")
	require.True(t, ok)
	assert.Equal(t, "new", e.Shortcut)
}

func TestSearchReturnsCopies(t *testing.T) {
	ix := NewIndex(sample())
	res := ix.Search("omg")
	res[0].Body = "changed"
	e, _ := ix.Get("1")
	assert.Equal(t, "body of omg", e.Body)
}

func BenchmarkSearch(b *testing.B) {
	exps := make([]store.Expansion, 5000)
	for i := range exps {
		exps[i] = exp(fmt.Sprint(i), fmt.Sprintf("sc%04d", i), fmt.Sprintf("description %d", i), int64(i%17))
	}
	ix := NewIndex(exps)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ix.Listing("sc1")
	}
}
