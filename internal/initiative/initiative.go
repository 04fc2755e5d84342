// Package initiative implements the multi-session workstream manager (spec
// §4.12): create/focus/complete/list/summarize, with focus as a per-repo
// atomic swap (spec §3 invariant 5). Grounded on the teacher's pattern of a
// narrow service struct wrapping the store directly
// (internal/repository/service.go).
package initiative

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/devmemory/navigator/internal/document"
	"github.com/devmemory/navigator/internal/signals"
	"github.com/devmemory/navigator/internal/store"
)

// Service manages initiative documents for a store.
type Service struct {
	Store *store.Instrumented

	mu       sync.Mutex // serializes focus swaps per process
	focusMus map[string]*sync.Mutex
}

// NewService wires an initiative Service.
func NewService(s *store.Instrumented) *Service {
	return &Service{Store: s, focusMus: map[string]*sync.Mutex{}}
}

func (s *Service) repoMutex(repo string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.focusMus[repo]
	if !ok {
		m = &sync.Mutex{}
		s.focusMus[repo] = m
	}
	return m
}

// CreateInput is create_initiative's typed input.
type CreateInput struct {
	Repository string
	Branch     string
	Name       string
	Goal       string
	Focus      bool
}

// Create persists a new initiative, optionally focusing it immediately.
func (s *Service) Create(ctx context.Context, in CreateInput) (document.Document, error) {
	if in.Name == "" {
		return document.Document{}, fmt.Errorf("%w: initiative name is required", document.ErrInvalidDocument)
	}
	branch := in.Branch
	if branch == "" {
		branch = document.UnknownBranch
	}
	now := time.Now()
	doc := document.Document{
		ID:   document.NewID(document.TypeInitiative, in.Repository+":"+in.Name),
		Text: in.Name + ": " + in.Goal,
		Common: document.Common{
			Type: document.TypeInitiative, Repository: in.Repository, Branch: branch,
			Status: document.StatusActive, CreatedAt: now, UpdatedAt: now, IndexedAt: now,
		},
		Metadata: document.Metadata{Initiative: &document.Initiative{Name: in.Name, Goal: in.Goal}},
	}
	if err := s.Store.Upsert(ctx, []document.Document{doc}); err != nil {
		return document.Document{}, err
	}
	if in.Focus {
		if err := s.Focus(ctx, in.Repository, doc.ID); err != nil {
			return doc, err
		}
	}
	return doc, nil
}

// SetInput is set_initiative's typed input: the legacy find-or-create +
// focus call that create_initiative/focus_initiative replace (spec §6).
type SetInput struct {
	Repository string
	Branch     string
	Name       string
	Status     string
}

// Set finds the repo's non-completed initiative named in.Name, updates its
// goal to in.Status if given, and focuses it; if no such initiative exists
// it creates one (goal = in.Status) and focuses it. Kept as a thin
// find-or-create wrapper over Create/Focus rather than a parallel
// write path, since it predates create_initiative/focus_initiative and
// both need the same focus-swap invariant (spec §3 invariant 5).
func (s *Service) Set(ctx context.Context, in SetInput) (document.Document, error) {
	if in.Name == "" {
		return document.Document{}, fmt.Errorf("%w: initiative name is required", document.ErrInvalidDocument)
	}

	existing, err := s.list(ctx, in.Repository)
	if err != nil {
		return document.Document{}, err
	}
	for _, d := range existing {
		if d.Metadata.Initiative == nil || d.Metadata.Initiative.Name != in.Name {
			continue
		}
		if !d.Metadata.Initiative.CompletedAt.IsZero() {
			continue
		}
		if in.Status != "" {
			d.Metadata.Initiative.Goal = in.Status
			d.Common.UpdatedAt = time.Now()
			if err := s.Store.Upsert(ctx, []document.Document{d}); err != nil {
				return document.Document{}, err
			}
		}
		if err := s.Focus(ctx, in.Repository, d.ID); err != nil {
			return document.Document{}, err
		}
		return d, nil
	}

	return s.Create(ctx, CreateInput{
		Repository: in.Repository, Branch: in.Branch, Name: in.Name, Goal: in.Status, Focus: true,
	})
}

// Focus atomically makes initiativeID the sole focused initiative for repo:
// every other currently-focused initiative in the repo is unfocused in the
// same call (spec §3 invariant 5). Guarded by a per-repo mutex so concurrent
// Focus calls for the same repo serialize.
func (s *Service) Focus(ctx context.Context, repo, initiativeID string) error {
	mu := s.repoMutex(repo)
	mu.Lock()
	defer mu.Unlock()

	all, err := s.list(ctx, repo)
	if err != nil {
		return err
	}
	var target *document.Document
	var toUpsert []document.Document
	for i := range all {
		d := all[i]
		if d.Metadata.Initiative == nil {
			continue
		}
		wasFocused := d.Metadata.Initiative.Focused
		if d.ID == initiativeID {
			target = &d
			if !wasFocused {
				d.Metadata.Initiative.Focused = true
				d.Common.UpdatedAt = time.Now()
				toUpsert = append(toUpsert, d)
			}
			continue
		}
		if wasFocused {
			d.Metadata.Initiative.Focused = false
			d.Common.UpdatedAt = time.Now()
			toUpsert = append(toUpsert, d)
		}
	}
	if target == nil {
		return fmt.Errorf("%w: initiative %q not found in %q", store.ErrNotFound, initiativeID, repo)
	}
	if len(toUpsert) == 0 {
		return nil
	}
	return s.Store.Upsert(ctx, toUpsert)
}

// Focused returns the currently focused initiative for repo, if any.
func (s *Service) Focused(ctx context.Context, repo string) (*document.Document, error) {
	all, err := s.list(ctx, repo)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Metadata.Initiative != nil && all[i].Metadata.Initiative.Focused {
			return &all[i], nil
		}
	}
	return nil, nil
}

// CompleteInput is complete_initiative's typed input.
type CompleteInput struct {
	Repository string
	ID         string
	Summary    string
}

// Complete marks an initiative completed (soft: status change, no
// deletion). A completed initiative is implicitly unfocused.
func (s *Service) Complete(ctx context.Context, in CompleteInput) (document.Document, error) {
	docs, err := s.Store.Get(ctx, store.GetOptions{IDs: []string{in.ID}})
	if err != nil {
		return document.Document{}, err
	}
	if len(docs) == 0 || docs[0].Metadata.Initiative == nil {
		return document.Document{}, fmt.Errorf("%w: initiative %q not found", store.ErrNotFound, in.ID)
	}
	doc := docs[0]
	now := time.Now()
	doc.Metadata.Initiative.CompletedAt = now
	doc.Metadata.Initiative.CompletionSummary = in.Summary
	doc.Metadata.Initiative.Focused = false
	doc.Common.UpdatedAt = now
	if err := s.Store.Upsert(ctx, []document.Document{doc}); err != nil {
		return document.Document{}, err
	}
	return doc, nil
}

// List returns all initiatives for a repository, sorted by creation time,
// most recent first.
func (s *Service) List(ctx context.Context, repo string, includeCompleted bool) ([]document.Document, error) {
	all, err := s.list(ctx, repo)
	if err != nil {
		return nil, err
	}
	var out []document.Document
	for _, d := range all {
		if d.Metadata.Initiative == nil {
			continue
		}
		if !includeCompleted && !d.Metadata.Initiative.CompletedAt.IsZero() {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Common.CreatedAt.After(out[j].Common.CreatedAt) })
	return out, nil
}

func (s *Service) list(ctx context.Context, repo string) ([]document.Document, error) {
	return s.Store.Get(ctx, store.GetOptions{Where: store.And(
		store.Eq("type", string(document.TypeInitiative)),
		store.Eq("repository", repo),
	)})
}

// Summarize produces a narrative summary of an initiative's recorded
// progress: its goal, focus state, and any completion summary. Memory
// document aggregation (notes/session_summaries tagged with this
// initiative) is left to the caller (internal/orient composes it further).
func (s *Service) Summarize(ctx context.Context, id string) (string, error) {
	docs, err := s.Store.Get(ctx, store.GetOptions{IDs: []string{id}})
	if err != nil {
		return "", err
	}
	if len(docs) == 0 || docs[0].Metadata.Initiative == nil {
		return "", fmt.Errorf("%w: initiative %q not found", store.ErrNotFound, id)
	}
	init := docs[0].Metadata.Initiative
	summary := fmt.Sprintf("%s: %s", init.Name, init.Goal)
	if !init.CompletedAt.IsZero() {
		summary += fmt.Sprintf(" (completed: %s)", init.CompletionSummary)
	} else if init.Focused {
		summary += " (currently focused)"
	}
	return summary, nil
}

// DetectCompletion reports whether text signals this initiative is
// finished, for callers (save_note/save_session_summary handlers) that want
// to prompt the user to run complete_initiative.
func DetectCompletion(text string) bool {
	return signals.DetectCompletionSignal(text)
}
