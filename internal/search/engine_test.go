package search

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/devmemory/navigator/internal/document"
	"github.com/devmemory/navigator/internal/store"
)

// vectorStoreStub layers a naive "vector" similarity (substring match count)
// on top of fakeStore so the RRF fusion stage has two distinct rankings to
// combine, without pulling in a real embedding model for unit tests.
type vectorStoreStub struct {
	fakeStore
}

func (v *vectorStoreStub) Query(ctx context.Context, opts store.QueryOptions) ([]store.ScoredDocument, error) {
	var out []store.ScoredDocument
	qWords := strings.Fields(strings.ToLower(opts.Text))
	for _, d := range v.docs {
		if !opts.Where.IsZero() && !opts.Where.Match(flatMeta(d)) {
			continue
		}
		score := 0.0
		lower := strings.ToLower(d.Text)
		for _, w := range qWords {
			if strings.Contains(lower, w) {
				score++
			}
		}
		if score == 0 {
			continue
		}
		out = append(out, store.ScoredDocument{Document: d, Score: score})
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Score > out[i].Score {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if opts.TopK > 0 && len(out) > opts.TopK {
		out = out[:opts.TopK]
	}
	return out, nil
}

type noopBranches struct{}

func (noopBranches) DetectBranch(repo string) string { return "main" }

func TestSearchEmptyQueryFails(t *testing.T) {
	s := &vectorStoreStub{}
	e := NewEngine(s, NewLexicalIndex(s), NewSimpleReranker(), noopBranches{})
	_, err := e.Search(context.Background(), Params{Query: ""})
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchEmptyCollectionReturnsMessage(t *testing.T) {
	s := &vectorStoreStub{}
	e := NewEngine(s, NewLexicalIndex(s), NewSimpleReranker(), noopBranches{})
	resp, err := e.Search(context.Background(), Params{Query: "anything"})
	require.NoError(t, err)
	require.Empty(t, resp.Results)
	require.Contains(t, resp.Message, "No results found")
}

func TestSearchHybridBeatsLexicalAlone(t *testing.T) {
	s := &vectorStoreStub{fakeStore: fakeStore{docs: []document.Document{
		newDoc("a:1", "Python programming is fun and powerful for building systems", document.TypeNote),
		newDoc("a:2", "Python is a snake species found in jungles", document.TypeNote),
	}}}
	e := NewEngine(s, NewLexicalIndex(s), NewSimpleReranker(), noopBranches{})
	min := 0.0
	resp, err := e.Search(context.Background(), Params{Query: "Python programming language", MinScore: &min})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	require.Equal(t, "a:1", resp.Results[0].ID)
}

func TestSearchRecencyBoostsNewerNote(t *testing.T) {
	older := newDoc("note:old", "deploy pipeline rewritten for reliability", document.TypeNote)
	older.Common.CreatedAt = time.Now().AddDate(0, 0, -60)
	newer := newDoc("note:new", "deploy pipeline rewritten for reliability", document.TypeNote)
	newer.Common.CreatedAt = time.Now()

	s := &vectorStoreStub{fakeStore: fakeStore{docs: []document.Document{older, newer}}}
	e := NewEngine(s, NewLexicalIndex(s), NewSimpleReranker(), noopBranches{})
	min := 0.0
	resp, err := e.Search(context.Background(), Params{Query: "deploy pipeline reliability", MinScore: &min, RecencyHalfLife: 30})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	require.Equal(t, "note:new", resp.Results[0].ID)
}

func TestSearchBranchFilteringExcludesOtherBranch(t *testing.T) {
	fm := newDoc("file_metadata:1", "handler for feature branch work", document.TypeFileMetadata)
	fm.Common.Branch = "feature-x"
	s := &vectorStoreStub{fakeStore: fakeStore{docs: []document.Document{fm}}}
	e := NewEngine(s, NewLexicalIndex(s), NewSimpleReranker(), noopBranches{})
	min := 0.0
	resp, err := e.Search(context.Background(), Params{Query: "feature branch work", Branch: "main", MinScore: &min})
	require.NoError(t, err)
	require.Empty(t, resp.Results)
}

func TestSearchUnknownBranchDisablesFiltering(t *testing.T) {
	fm := newDoc("file_metadata:1", "handler for feature branch work", document.TypeFileMetadata)
	fm.Common.Branch = document.UnknownBranch
	s := &vectorStoreStub{fakeStore: fakeStore{docs: []document.Document{fm}}}
	e := NewEngine(s, NewLexicalIndex(s), NewSimpleReranker(), noopBranches{})
	min := 0.0
	resp, err := e.Search(context.Background(), Params{Query: "feature branch work", Branch: document.UnknownBranch, MinScore: &min})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
}
