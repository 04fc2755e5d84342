// Package orient composes the session-start payload and the recent-work
// recall view (spec "Orientation & recall", §6 `orient_session` /
// `recall_recent_work`). Neither operation ranks anything; both are thin
// reads over internal/store, internal/initiative, and internal/memory's
// staleness probe, grounded on internal/search.Engine.attachContext's
// "skeleton, tech_stack, focused initiative" composition, generalized into
// a standalone payload assembler so search.Engine doesn't need an
// orient-specific code path.
package orient

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/devmemory/navigator/internal/document"
	"github.com/devmemory/navigator/internal/initiative"
	"github.com/devmemory/navigator/internal/memory"
	"github.com/devmemory/navigator/internal/store"
)

// BranchDetector resolves the current branch for a project path (shared
// with internal/search.Engine's identical narrow interface).
type BranchDetector interface {
	DetectBranch(repository string) string
}

// Service composes orientation and recall reads.
type Service struct {
	Store       *store.Instrumented
	Initiatives *initiative.Service
	Branches    BranchDetector
}

// NewService builds an orient Service.
func NewService(s *store.Instrumented, init *initiative.Service, branches BranchDetector) *Service {
	return &Service{Store: s, Initiatives: init, Branches: branches}
}

// StaleInsight names an insight found stale during orientation (spec §4.7:
// "computed on demand at orient/search time").
type StaleInsight struct {
	ID    string
	Files []string
}

// OrientResult is orient_session's payload (spec §6).
type OrientResult struct {
	Repository       string
	Branch           string
	Indexed          bool
	Skeleton         *document.Document
	TechStack        *document.Document
	FocusedInitiative *document.Document
	StaleInsights    []StaleInsight
}

// OrientSession composes the session-start payload for projectPath (spec
// §6 `orient_session`).
func (s *Service) OrientSession(ctx context.Context, projectPath string) (OrientResult, error) {
	repo := filepath.Base(filepath.Clean(projectPath))
	branch := document.UnknownBranch
	if s.Branches != nil {
		if b := s.Branches.DetectBranch(projectPath); b != "" {
			branch = b
		}
	}

	res := OrientResult{Repository: repo, Branch: branch}

	skeletons, err := s.Store.Get(ctx, store.GetOptions{Where: store.And(
		store.Eq("type", string(document.TypeSkeleton)),
		store.Eq("repository", repo),
		store.Eq("branch", branch),
	)})
	if err != nil {
		return res, err
	}
	if len(skeletons) == 0 {
		any, err := s.Store.Get(ctx, store.GetOptions{Where: store.And(
			store.Eq("type", string(document.TypeSkeleton)),
			store.Eq("repository", repo),
		)})
		if err != nil {
			return res, err
		}
		if len(any) > 0 {
			res.Skeleton = &any[0]
		}
	} else {
		res.Skeleton = &skeletons[0]
	}
	res.Indexed = res.Skeleton != nil

	techStacks, err := s.Store.Get(ctx, store.GetOptions{Where: store.And(
		store.Eq("type", string(document.TypeTechStack)),
		store.Eq("repository", repo),
	)})
	if err != nil {
		return res, err
	}
	if len(techStacks) > 0 {
		res.TechStack = &techStacks[0]
	}

	if s.Initiatives != nil {
		focused, err := s.Initiatives.Focused(ctx, repo)
		if err != nil {
			return res, err
		}
		res.FocusedInitiative = focused
	}

	insights, err := s.Store.Get(ctx, store.GetOptions{Where: store.And(
		store.Eq("type", string(document.TypeInsight)),
		store.Eq("repository", repo),
		store.Eq("status", string(document.StatusActive)),
	)})
	if err != nil {
		return res, err
	}
	for _, d := range insights {
		if d.Metadata.Insight == nil {
			continue
		}
		if memory.Stale(projectPath, d.Metadata.Insight) {
			res.StaleInsights = append(res.StaleInsights, StaleInsight{ID: d.ID, Files: d.Metadata.Insight.Files})
		}
	}
	return res, nil
}

// RecallInput is recall_recent_work's typed input (spec §6).
type RecallInput struct {
	Repository  string
	Days        int
	Limit       int
	IncludeCode bool
}

// DayGroup buckets documents by the calendar day they were created.
type DayGroup struct {
	Date      string
	Documents []document.Document
}

// Recall returns a time-grouped list of recent memory documents (and, if
// IncludeCode, navigation documents too) for a repository (spec §6
// `recall_recent_work`).
func (s *Service) Recall(ctx context.Context, in RecallInput) ([]DayGroup, error) {
	days := in.Days
	if days <= 0 {
		days = 7
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 20
	}

	types := []string{
		string(document.TypeNote), string(document.TypeSessionSummary), string(document.TypeInsight),
	}
	if in.IncludeCode {
		types = append(types, string(document.TypeFileMetadata), string(document.TypeDependency))
	}

	docs, err := s.Store.Get(ctx, store.GetOptions{Where: store.And(
		store.In("type", types),
		store.Eq("repository", in.Repository),
	)})
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	filtered := docs[:0]
	for _, d := range docs {
		if d.Common.CreatedAt.After(cutoff) {
			filtered = append(filtered, d)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Common.CreatedAt.After(filtered[j].Common.CreatedAt) })
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	groups := map[string]*DayGroup{}
	var order []string
	for _, d := range filtered {
		key := d.Common.CreatedAt.Format("2006-01-02")
		g, ok := groups[key]
		if !ok {
			g = &DayGroup{Date: key}
			groups[key] = g
			order = append(order, key)
		}
		g.Documents = append(g.Documents, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(order)))
	out := make([]DayGroup, len(order))
	for i, key := range order {
		out[i] = *groups[key]
	}
	return out, nil
}
