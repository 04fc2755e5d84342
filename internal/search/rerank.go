package search

import (
	"context"
	"sort"
)

// RerankCandidate is a fused (RRF-scored) candidate entering the rerank stage.
type RerankCandidate struct {
	ID    string
	Text  string
	Score float64 // incoming RRF score
}

// Reranked carries the cross-encoder relevance score assigned to a candidate.
type Reranked struct {
	ID    string
	Score float64 // rerank_score, in [0, 1]
}

// Reranker is the cross-encoder relevance stage boundary (spec §4.3 step 5).
// SimpleReranker is the only implementation shipped here; the interface
// exists so a real cross-encoder (e.g. scored via an LLM chat completion)
// can be swapped in later without touching the engine.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]Reranked, error)
}

// SimpleReranker blends the incoming fused score with query/document term
// overlap to produce a bounded [0,1] relevance score. Adapted from the
// teacher's internal/reranker.SimpleReranker: same tokenize/overlap
// calculation, renamed to the spec's rerank_score vocabulary and rebased so
// the output is a pure [0,1] score rather than a re-blend of the caller's
// original score (the type/recency/initiative stages downstream need a
// clean rerank_score to multiply against, not one already contaminated with
// RRF's 1/(k+rank) magnitude).
type SimpleReranker struct{}

// NewSimpleReranker returns the default reranker.
func NewSimpleReranker() *SimpleReranker { return &SimpleReranker{} }

// Rerank scores every candidate against query by term overlap, falling back
// to the incoming RRF order (normalized into [0,1]) when the query has no
// indexable tokens.
func (r *SimpleReranker) Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]Reranked, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	qTokens := tokenize(query)
	out := make([]Reranked, len(candidates))

	if len(qTokens) == 0 {
		maxScore := candidates[0].Score
		for _, c := range candidates {
			if c.Score > maxScore {
				maxScore = c.Score
			}
		}
		for i, c := range candidates {
			s := 0.0
			if maxScore > 0 {
				s = c.Score / maxScore
			}
			out[i] = Reranked{ID: c.ID, Score: s}
		}
		return out, nil
	}

	for i, c := range candidates {
		docTokens := tokenize(c.Text)
		overlap := termOverlap(qTokens, docTokens)
		out[i] = Reranked{ID: c.ID, Score: overlap}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// termOverlap returns the fraction of unique query tokens present in doc,
// in [0, 1].
func termOverlap(query, doc []string) float64 {
	if len(query) == 0 {
		return 0
	}
	docSet := make(map[string]bool, len(doc))
	for _, t := range doc {
		docSet[t] = true
	}
	matched := make(map[string]bool, len(query))
	count := 0
	for _, qt := range query {
		if docSet[qt] && !matched[qt] {
			matched[qt] = true
			count++
		}
	}
	return float64(count) / float64(len(query))
}

var _ Reranker = (*SimpleReranker)(nil)
