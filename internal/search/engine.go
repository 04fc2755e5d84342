// Package search implements the hybrid retrieval pipeline: a BM25 lexical
// index fused with vector similarity via Reciprocal Rank Fusion, reranked,
// then shaped by type multiplier, recency boost, initiative affinity, and a
// final threshold filter (spec §4.3).
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/devmemory/navigator/internal/document"
	"github.com/devmemory/navigator/internal/store"
)

// ErrEmptyQuery is returned when Search is called with an empty query
// string (spec §4.4).
var ErrEmptyQuery = errors.New("search: query must not be empty")

// rrfK is Reciprocal Rank Fusion's rank-damping constant (spec §4.3 step 4,
// glossary).
const rrfK = 60

// Preset names a curated type filter (spec §4.3 step 2).
type Preset string

const (
	PresetUnderstanding Preset = "understanding"
	PresetNavigation    Preset = "navigation"
	PresetStructure     Preset = "structure"
	PresetTrace         Preset = "trace"
	PresetMemory        Preset = "memory"
)

var presetTypes = map[Preset][]document.Type{
	PresetUnderstanding: {document.TypeInsight, document.TypeNote, document.TypeIdiom},
	PresetNavigation:    {document.TypeFileMetadata, document.TypeDependency, document.TypeSkeleton},
	PresetStructure:     {document.TypeSkeleton, document.TypeTechStack},
	PresetTrace:         {document.TypeEntryPoint, document.TypeDependency},
	PresetMemory:        {document.TypeNote, document.TypeSessionSummary, document.TypeInsight, document.TypeInitiative},
}

// branchFilteredTypes and crossBranchTypes partition document.AllTypes per
// spec §4.3 step 2, derived once from the document package's authoritative
// table so this file never duplicates the membership decision.
func branchFilteredTypeStrings() []string {
	var out []string
	for _, t := range document.AllTypes {
		if document.IsBranchFiltered(t) {
			out = append(out, string(t))
		}
	}
	return out
}

// Params configures a single Search call, mixing per-call overrides with
// engine-wide defaults (spec §4.4: "min_score per-call overrides config").
type Params struct {
	Query             string
	Repository        string
	Branch            string
	MinScore          *float64
	Types             []document.Type
	Preset            Preset
	Initiative        string
	IncludeCompleted  bool
	TopKRetrieve      int
	TopKRerank        int
	RecencyHalfLife   int // days
}

// Result is one ranked, scored search hit.
type Result struct {
	ID           string
	Document     document.Document
	RRFScore     float64
	VectorRank   int // 0 = not present in the vector list
	BM25Rank     int // 0 = not present in the lexical list
	RerankScore  float64
	BoostedScore float64
}

// Text is the document's stored body, for callers that want it without
// reaching into Document.
func (r Result) Text() string { return r.Document.Text }

// Attachments are payload, not ranked: the skeleton/tech_stack/initiative
// context attached after filtering (spec §4.3 step 10).
type Attachments struct {
	Skeleton   *document.Document
	TechStack  *document.Document
	Initiative *document.Document
}

// Response is the full Search output.
type Response struct {
	Results     []Result
	Attachments Attachments
	Message     string
}

// BranchDetector resolves the current branch for a repository path, used
// when Params.Branch is not given. Grounded on the same detection the
// ingestion pipeline performs (internal/ingest), kept as a narrow interface
// here so the engine never depends on ingest's filesystem-walking surface.
type BranchDetector interface {
	DetectBranch(repository string) string
}

// Engine composes the store, lexical index, and reranker into the ten-step
// pipeline of spec §4.3.
type Engine struct {
	Store    store.Store
	Lexical  *LexicalIndex
	Reranker Reranker
	Branches BranchDetector

	DefaultMinScore        float64
	DefaultTopKRetrieve    int
	DefaultTopKRerank      int
	DefaultRecencyHalfLife int
	MinRecencyBoost        float64
}

// NewEngine builds an Engine with spec-default clamped parameters.
func NewEngine(s store.Store, lexical *LexicalIndex, reranker Reranker, branches BranchDetector) *Engine {
	return &Engine{
		Store:                  s,
		Lexical:                lexical,
		Reranker:               reranker,
		Branches:               branches,
		DefaultMinScore:        0.5,
		DefaultTopKRetrieve:    50,
		DefaultTopKRerank:      20,
		DefaultRecencyHalfLife: 30,
		MinRecencyBoost:        0.5,
	}
}

// Search runs the full ten-step hybrid retrieval pipeline.
func (e *Engine) Search(ctx context.Context, p Params) (Response, error) {
	if p.Query == "" {
		return Response{}, ErrEmptyQuery
	}

	topKRetrieve := clamp(orDefault(p.TopKRetrieve, e.DefaultTopKRetrieve), 10, 200)
	topKRerank := clamp(orDefault(p.TopKRerank, e.DefaultTopKRerank), 1, 50)
	minScore := e.DefaultMinScore
	if p.MinScore != nil {
		minScore = clampF(*p.MinScore, 0, 1)
	}
	halfLife := clamp(orDefault(p.RecencyHalfLife, e.DefaultRecencyHalfLife), 1, 365)

	// Step 1: resolve branch context.
	branch := p.Branch
	if branch == "" && e.Branches != nil {
		branch = e.Branches.DetectBranch(p.Repository)
	}
	if branch == "" {
		branch = document.UnknownBranch
	}
	branches := []string{branch}
	if branch != "main" && branch != "master" && branch != document.UnknownBranch {
		branches = append(branches, "main")
	}

	// Step 2: build the where-filter.
	where := e.buildWhere(p, branches)

	// Step 3: candidate retrieval, vector and lexical in parallel semantics
	// (sequential here; both are cheap relative to the LLM/reranker calls).
	vecResults, err := e.Store.Query(ctx, store.QueryOptions{Text: p.Query, TopK: topKRetrieve, Where: where})
	if err != nil {
		return Response{}, fmt.Errorf("vector query: %w", err)
	}
	lexResults, err := e.Lexical.Search(ctx, p.Query, topKRetrieve, where, false)
	if err != nil {
		return Response{}, fmt.Errorf("lexical search: %w", err)
	}

	if len(vecResults) == 0 && len(lexResults) == 0 {
		count, err := e.Store.Count(ctx, store.Where{})
		if err == nil && count == 0 {
			return Response{Message: "No results found: the collection is empty."}, nil
		}
		return Response{Message: "No results found for this query."}, nil
	}

	// Step 4: Reciprocal Rank Fusion.
	fused := fuse(vecResults, lexResults)

	// Step 2 (cont'd): exclude memory documents tagged with a completed
	// initiative, unless include_completed (spec §4.3 step 2). The where
	// clause built above can't express this (completion lives on the
	// initiative document, not denormalized onto the memory doc's flat
	// metadata), so it's applied here as a post-filter over the fused
	// candidates, the same extra-store.Get approach attachContext uses.
	if !p.IncludeCompleted {
		completed, err := e.completedInitiativeIDs(ctx, repoSet(fused))
		if err != nil {
			return Response{}, fmt.Errorf("loading completed initiatives: %w", err)
		}
		if len(completed) > 0 {
			kept := fused[:0]
			for _, f := range fused {
				if id := initiativeIDOf(f.Document); id != "" && completed[id] {
					continue
				}
				kept = append(kept, f)
			}
			fused = kept
		}
	}

	// Step 5: rerank the top RRF candidates.
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].RRFScore != fused[j].RRFScore {
			return fused[i].RRFScore > fused[j].RRFScore
		}
		return fused[i].ID < fused[j].ID
	})
	if len(fused) > topKRerank {
		fused = fused[:topKRerank]
	}

	candidates := make([]RerankCandidate, len(fused))
	for i, f := range fused {
		candidates[i] = RerankCandidate{ID: f.ID, Text: f.Document.Text, Score: f.RRFScore}
	}
	reranked, err := e.Reranker.Rerank(ctx, p.Query, candidates)
	if err != nil {
		return Response{}, fmt.Errorf("rerank: %w", err)
	}
	rerankByID := make(map[string]float64, len(reranked))
	for _, r := range reranked {
		rerankByID[r.ID] = r.Score
	}
	for i := range fused {
		fused[i].RerankScore = rerankByID[fused[i].ID]
	}

	// Step 6: type multiplier.
	for i := range fused {
		fused[i].BoostedScore = fused[i].RerankScore * document.TypeMultipliers[fused[i].Document.Common.Type]
	}

	// Step 7: recency boost (note/session_summary only).
	now := time.Now()
	for i := range fused {
		d := fused[i].Document
		if !document.IsRecencyEligible(d.Common.Type) {
			continue
		}
		ageDays := now.Sub(d.Common.CreatedAt).Hours() / 24
		boost := math.Pow(0.5, ageDays/float64(halfLife))
		if boost < e.MinRecencyBoost {
			boost = e.MinRecencyBoost
		}
		fused[i].BoostedScore *= boost
	}

	// Step 8: initiative affinity.
	if p.Initiative != "" {
		const affinityMultiplier = 1.1
		for i := range fused {
			if initiativeIDOf(fused[i].Document) == p.Initiative {
				fused[i].BoostedScore *= affinityMultiplier
			}
		}
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].BoostedScore != fused[j].BoostedScore {
			return fused[i].BoostedScore > fused[j].BoostedScore
		}
		return fused[i].ID < fused[j].ID
	})

	// Step 9: threshold filter.
	final := make([]Result, 0, len(fused))
	for _, f := range fused {
		if f.BoostedScore < minScore {
			continue
		}
		final = append(final, f)
	}

	resp := Response{Results: final}
	if len(final) == 0 {
		resp.Message = "No results found above the score threshold."
		return resp, nil
	}

	// Step 10: attach context from the top result's repository.
	repo := p.Repository
	if repo == "" && len(final) > 0 {
		repo = final[0].Document.Common.Repository
	}
	if repo != "" {
		resp.Attachments = e.attachContext(ctx, repo, branch, p.Initiative)
	}
	return resp, nil
}

func (e *Engine) buildWhere(p Params, branches []string) store.Where {
	filteredTypes := branchFilteredTypeStrings()
	// Branch = unknown disables branch filtering (spec §8 boundary): a
	// single unresolved branch means we can't tell what "this branch" is,
	// so navigation/usage documents match regardless of their branch label.
	var filteredClause store.Where
	if len(branches) == 1 && branches[0] == document.UnknownBranch {
		filteredClause = store.In("type", filteredTypes)
	} else {
		filteredClause = store.And(
			store.In("type", filteredTypes),
			store.In("branch", branches),
		)
	}
	crossBranchTypes := crossBranchTypeStrings()
	crossClause := store.In("type", crossBranchTypes)
	typeScope := store.Or(filteredClause, crossClause)

	clauses := []store.Where{typeScope}
	if p.Repository != "" {
		clauses = append(clauses, store.Eq("repository", p.Repository))
	}

	types := p.Types
	if p.Preset != "" {
		types = presetTypes[p.Preset]
	}
	if len(types) > 0 {
		strs := make([]string, len(types))
		for i, t := range types {
			strs[i] = string(t)
		}
		clauses = append(clauses, store.In("type", strs))
	}
	if p.Initiative != "" {
		clauses = append(clauses, store.Eq("initiative_id", p.Initiative))
	}
	return store.And(clauses...)
}

func crossBranchTypeStrings() []string {
	var out []string
	for _, t := range document.AllTypes {
		if !document.IsBranchFiltered(t) {
			out = append(out, string(t))
		}
	}
	return out
}

// fuse combines the vector and lexical candidate lists via Reciprocal Rank
// Fusion (spec §4.3 step 4, glossary): each document's score is the sum of
// 1/(k+rank) across every list it appears in, 1-indexed.
func fuse(vec []store.ScoredDocument, lex []LexicalResult) []Result {
	byID := map[string]*Result{}
	order := []string{}

	get := func(id string, d document.Document) *Result {
		if r, ok := byID[id]; ok {
			return r
		}
		r := &Result{ID: id, Document: d}
		byID[id] = r
		order = append(order, id)
		return r
	}

	for i, v := range vec {
		r := get(v.Document.ID, v.Document)
		rank := i + 1
		r.VectorRank = rank
		r.RRFScore += 1.0 / float64(rrfK+rank)
	}
	for i, l := range lex {
		r := get(l.Document.ID, l.Document)
		rank := i + 1
		r.BM25Rank = rank
		r.RRFScore += 1.0 / float64(rrfK+rank)
	}

	out := make([]Result, len(order))
	for i, id := range order {
		out[i] = *byID[id]
	}
	return out
}

// repoSet lists the distinct repositories present among fused candidates,
// so completedInitiativeIDs only has to fetch initiatives for repos that
// actually matter to this result set.
func repoSet(fused []Result) []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range fused {
		repo := f.Document.Common.Repository
		if repo == "" || seen[repo] {
			continue
		}
		seen[repo] = true
		out = append(out, repo)
	}
	return out
}

// completedInitiativeIDs returns the IDs of every completed initiative
// across repos, for the include_completed filter (spec §4.3 step 2).
func (e *Engine) completedInitiativeIDs(ctx context.Context, repos []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, repo := range repos {
		docs, err := e.Store.Get(ctx, store.GetOptions{Where: store.And(
			store.Eq("type", string(document.TypeInitiative)),
			store.Eq("repository", repo),
		)})
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			if d.Metadata.Initiative != nil && !d.Metadata.Initiative.CompletedAt.IsZero() {
				out[d.ID] = true
			}
		}
	}
	return out, nil
}

func initiativeIDOf(d document.Document) string {
	switch d.Common.Type {
	case document.TypeNote:
		if d.Metadata.Note != nil {
			return d.Metadata.Note.InitiativeID
		}
	case document.TypeSessionSummary:
		if d.Metadata.SessionSummary != nil {
			return d.Metadata.SessionSummary.InitiativeID
		}
	case document.TypeInsight:
		if d.Metadata.Insight != nil {
			return d.Metadata.Insight.InitiativeID
		}
	}
	return ""
}

// attachContext fetches the branch-matching skeleton (falling back to any
// skeleton for the repo), the repo's tech_stack, and the focused initiative.
// Failures here are non-fatal: attachments are best-effort payload, not part
// of the ranked results.
func (e *Engine) attachContext(ctx context.Context, repo, branch, initiativeID string) Attachments {
	var att Attachments

	skeletons, err := e.Store.Get(ctx, store.GetOptions{Where: store.And(
		store.Eq("type", string(document.TypeSkeleton)),
		store.Eq("repository", repo),
		store.Eq("branch", branch),
	)})
	if err != nil || len(skeletons) == 0 {
		any, _ := e.Store.Get(ctx, store.GetOptions{Where: store.And(
			store.Eq("type", string(document.TypeSkeleton)),
			store.Eq("repository", repo),
		)})
		if len(any) > 0 {
			att.Skeleton = &any[0]
		}
	} else {
		att.Skeleton = &skeletons[0]
	}

	techStacks, err := e.Store.Get(ctx, store.GetOptions{Where: store.And(
		store.Eq("type", string(document.TypeTechStack)),
		store.Eq("repository", repo),
	)})
	if err == nil && len(techStacks) > 0 {
		att.TechStack = &techStacks[0]
	}

	initiatives, err := e.Store.Get(ctx, store.GetOptions{Where: store.And(
		store.Eq("type", string(document.TypeInitiative)),
		store.Eq("repository", repo),
	)})
	if err == nil {
		for i := range initiatives {
			if initiatives[i].Metadata.Initiative != nil && initiatives[i].Metadata.Initiative.Focused {
				att.Initiative = &initiatives[i]
				break
			}
		}
	}
	_ = initiativeID
	return att
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
