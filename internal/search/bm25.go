package search

import (
	"context"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/devmemory/navigator/internal/document"
	"github.com/devmemory/navigator/internal/store"
)

// BM25 tuning constants (Okapi BM25, spec §4.2).
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// bm25Doc is one document's tokenized posting-list entry.
type bm25Doc struct {
	id       string
	text     string
	metadata map[string]string
	common   document.Document
	tokens   map[string]int // term -> frequency in this document
	length   int
}

// LexicalResult is one BM25 hit.
type LexicalResult struct {
	Document document.Document
	Score    float64
}

// LexicalIndex is the process-wide BM25 index over the store's current
// contents (spec §4.2). It is a singleton guarded by a mutex: concurrent
// searchers either see a fully built index or block until one exists. A
// dirty flag, flipped by every store-mutating call, forces a rebuild on the
// next Search rather than on every write.
type LexicalIndex struct {
	store store.Store

	mu      sync.RWMutex
	docs    []*bm25Doc
	df      map[string]int // document frequency per term
	avgLen  float64
	built   bool
	dirty   atomic.Bool
}

// NewLexicalIndex creates an index over s, starting dirty so the first
// Search builds it.
func NewLexicalIndex(s store.Store) *LexicalIndex {
	idx := &LexicalIndex{store: s, df: map[string]int{}}
	idx.dirty.Store(true)
	return idx
}

// MarkDirty flags the index for rebuild on the next Search. Called by every
// write path (upsert, delete, save-memory, complete-initiative).
func (idx *LexicalIndex) MarkDirty() {
	idx.dirty.Store(true)
}

// ensureBuilt rebuilds the index from the store if dirty or force is set.
func (idx *LexicalIndex) ensureBuilt(ctx context.Context, force bool) error {
	if !force && !idx.dirty.Load() && idx.built {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	// Re-check under the write lock: another goroutine may have rebuilt
	// while we waited.
	if !force && !idx.dirty.Load() && idx.built {
		return nil
	}

	all, err := idx.store.Get(ctx, store.GetOptions{})
	if err != nil {
		return err
	}

	docs := make([]*bm25Doc, 0, len(all))
	df := map[string]int{}
	var totalLen int
	for _, d := range all {
		toks := tokenize(d.Text)
		freq := map[string]int{}
		seen := map[string]bool{}
		for _, t := range toks {
			freq[t]++
			if !seen[t] {
				df[t]++
				seen[t] = true
			}
		}
		docs = append(docs, &bm25Doc{
			id:     d.ID,
			text:   d.Text,
			common: d,
			tokens: freq,
			length: len(toks),
		})
		totalLen += len(toks)
	}

	idx.docs = docs
	idx.df = df
	if len(docs) > 0 {
		idx.avgLen = float64(totalLen) / float64(len(docs))
	} else {
		idx.avgLen = 0
	}
	idx.built = true
	idx.dirty.Store(false)
	return nil
}

// Search tokenizes query identically to the index, scores every document
// matching where, and returns the topK highest scoring. An empty collection
// yields an empty result, never an error. rebuild forces a rebuild before
// scoring regardless of the dirty flag.
func (idx *LexicalIndex) Search(ctx context.Context, query string, topK int, where store.Where, rebuild bool) ([]LexicalResult, error) {
	if err := idx.ensureBuilt(ctx, rebuild); err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.docs) == 0 {
		return nil, nil
	}

	qTokens := tokenize(query)
	n := float64(len(idx.docs))

	results := make([]LexicalResult, 0, len(idx.docs))
	for _, d := range idx.docs {
		if !where.IsZero() && !where.Match(flatMeta(d.common)) {
			continue
		}
		score := idx.score(d, qTokens, n)
		if score <= 0 {
			continue
		}
		results = append(results, LexicalResult{Document: d.common, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Document.ID < results[j].Document.ID
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// score computes the Okapi BM25 score of doc against qTokens.
func (idx *LexicalIndex) score(d *bm25Doc, qTokens []string, n float64) float64 {
	var score float64
	for _, qt := range qTokens {
		f := float64(d.tokens[qt])
		if f == 0 {
			continue
		}
		df := float64(idx.df[qt])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		denom := f + bm25K1*(1-bm25B+bm25B*float64(d.length)/maxFloat(idx.avgLen, 1))
		score += idf * (f * (bm25K1 + 1)) / denom
	}
	return score
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// flatMeta reduces a document to the flat metadata map the Where predicate
// tree matches against, mirroring the fields the store layer flattens.
func flatMeta(d document.Document) map[string]string {
	m := map[string]string{
		"type":       string(d.Common.Type),
		"repository": d.Common.Repository,
		"branch":     d.Common.Branch,
		"status":     string(d.Common.Status),
	}
	switch d.Common.Type {
	case document.TypeFileMetadata:
		if fm := d.Metadata.FileMetadata; fm != nil {
			m["file_path"] = fm.FilePath
		}
	case document.TypeDependency:
		if dep := d.Metadata.Dependency; dep != nil {
			m["file_path"] = dep.FilePath
		}
	case document.TypeEntryPoint:
		if ep := d.Metadata.EntryPoint; ep != nil {
			m["file_path"] = ep.FilePath
		}
	case document.TypeDataContract:
		if dc := d.Metadata.DataContract; dc != nil {
			m["file_path"] = dc.FilePath
		}
	case document.TypeNote:
		if x := d.Metadata.Note; x != nil {
			m["initiative_id"] = x.InitiativeID
		}
	case document.TypeSessionSummary:
		if x := d.Metadata.SessionSummary; x != nil {
			m["initiative_id"] = x.InitiativeID
		}
	case document.TypeInsight:
		if x := d.Metadata.Insight; x != nil {
			m["initiative_id"] = x.InitiativeID
		}
	}
	return m
}
