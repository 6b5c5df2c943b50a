package search

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/bobersnip/TextShortcutter/internal/logging"
	"github.com/bobersnip/TextShortcutter/internal/store"
)

// FusionConfig weighs text relevance against popularity in Find.
type FusionConfig struct {
	TextWeight       float64
	PopularityWeight float64
}

// DefaultFusionConfig favours relevance.
var DefaultFusionConfig = FusionConfig{
	TextWeight:       0.8,
	PopularityWeight: 0.2,
}

// Hit is one full-text match.
type Hit struct {
	Expansion store.Expansion
	Score     float64
}

// FullText is an in-memory bleve index over expansion bodies and
// descriptions.
type FullText struct {
	mu    sync.RWMutex
	index bleve.Index
	exps  map[string]store.Expansion
}

// NewFullText creates an empty full-text index.
func NewFullText() (*FullText, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	return &FullText{index: idx, exps: map[string]store.Expansion{}}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("shortcut", bleve.NewTextFieldMapping())
	doc.AddFieldMappingsAt("body", bleve.NewTextFieldMapping())
	doc.AddFieldMappingsAt("description", bleve.NewTextFieldMapping())

	m := bleve.NewIndexMapping()
	m.AddDocumentMapping("_default", doc)
	return m
}

// Rebuild replaces the index contents with exps.
func (f *FullText) Rebuild(exps []store.Expansion) error {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to create bleve index: %w", err)
	}

	byID := make(map[string]store.Expansion, len(exps))
	batch := idx.NewBatch()
	for _, e := range exps {
		doc := map[string]any{
			"shortcut":    e.Shortcut,
			"body":        e.Body,
			"description": e.Description,
		}
		if err := batch.Index(e.ID, doc); err != nil {
			logging.Warnf("failed to index expansion %s: %v", e.ID, err)
			continue
		}
		byID[e.ID] = e
	}
	if err := idx.Batch(batch); err != nil {
		idx.Close()
		return fmt.Errorf("failed to batch index expansions: %w", err)
	}

	f.mu.Lock()
	old := f.index
	f.index, f.exps = idx, byID
	f.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// Count returns the number of indexed expansions.
func (f *FullText) Count() (uint64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n, err := f.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}
	return n, nil
}

// Find searches bodies and descriptions and ranks the hits by a weighted
// mix of normalized text score and normalized use count.
func (f *FullText) Find(text string, limit int, fc FusionConfig) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildMatchQuery(text), limit*2, 0, false)
	res, err := f.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		e, ok := f.exps[h.ID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Expansion: e, Score: h.Score})
	}
	hits = fuse(hits, fc)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Close releases the index.
func (f *FullText) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		return f.index.Close()
	}
	return nil
}

func buildMatchQuery(text string) query.Query {
	q := bleve.NewMatchQuery(text)
	q.SetFuzziness(1)
	return q
}

func fuse(hits []Hit, fc FusionConfig) []Hit {
	text := make([]float64, len(hits))
	pop := make([]float64, len(hits))
	for i, h := range hits {
		text[i] = h.Score
		pop[i] = float64(h.Expansion.UseCount)
	}
	text, pop = normalizeScores(text), normalizeScores(pop)

	out := make([]Hit, len(hits))
	for i, h := range hits {
		out[i] = Hit{Expansion: h.Expansion, Score: fc.TextWeight*text[i] + fc.PopularityWeight*pop[i]}
	}
	slices.SortStableFunc(out, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Expansion.Shortcut, b.Expansion.Shortcut)
	})
	return out
}

// normalizeScores maps scores onto [0, 1]. Equal scores all become 1.
func normalizeScores(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}
	lo, hi := slices.Min(scores), slices.Max(scores)
	out := make([]float64, len(scores))
	for i, s := range scores {
		if hi == lo {
			out[i] = 1
			continue
		}
		out[i] = (s - lo) / (hi - lo)
	}
	return out
}
