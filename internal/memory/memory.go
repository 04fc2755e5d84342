// Package memory implements the note/insight/session-summary/tech-stack
// write paths (spec §4.7) on top of internal/store. Every body write goes
// through internal/secrets.Scrubber first, mirroring the teacher's
// scrub-before-persist pattern in internal/repository/service.go.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/devmemory/navigator/internal/document"
	"github.com/devmemory/navigator/internal/secrets"
	"github.com/devmemory/navigator/internal/signals"
	"github.com/devmemory/navigator/internal/store"
)

// Service is the memory write/read façade shared by the MCP and HTTP
// transports.
type Service struct {
	Store    *store.Instrumented
	Scrubber secrets.Scrubber
}

// NewService wires a Service against an instrumented store, defaulting the
// scrubber to the standard rule table.
func NewService(s *store.Instrumented) *Service {
	return &Service{Store: s, Scrubber: secrets.MustNew(secrets.DefaultConfig())}
}

func (s *Service) scrub(text string) string {
	return s.Scrubber.Scrub(text).Scrubbed
}

// SaveNoteInput is save_note's typed input.
type SaveNoteInput struct {
	Repository string
	Branch     string
	Content    string
	Tags       []string
	Initiative string // initiative ID or name to tag this note with
}

// SaveResult is the common shape returned from save_note/save_insight/
// save_session_summary (spec §6).
type SaveResult struct {
	ID               string
	InitiativeTagged string
	CompletionSignal bool
}

// SaveNote persists a free-form decision/doc memory document.
func (s *Service) SaveNote(ctx context.Context, in SaveNoteInput) (SaveResult, error) {
	if in.Content == "" {
		return SaveResult{}, fmt.Errorf("%w: note content is required", document.ErrInvalidDocument)
	}
	branch := in.Branch
	if branch == "" {
		branch = document.UnknownBranch
	}
	now := time.Now()
	id := document.NewID(document.TypeNote, in.Repository+":"+in.Content+":"+now.String())
	doc := document.Document{
		ID:   id,
		Text: s.scrub(in.Content),
		Common: document.Common{
			Type: document.TypeNote, Repository: in.Repository, Branch: branch,
			Status: document.StatusActive, CreatedAt: now, UpdatedAt: now, IndexedAt: now,
		},
		Metadata: document.Metadata{Note: &document.Note{
			Tags: in.Tags, InitiativeID: in.Initiative,
		}},
	}
	if err := document.Validate(doc); err != nil {
		return SaveResult{}, err
	}
	if err := s.Store.Upsert(ctx, []document.Document{doc}); err != nil {
		return SaveResult{}, err
	}
	return SaveResult{ID: id, InitiativeTagged: in.Initiative, CompletionSignal: signals.DetectCompletionSignal(in.Content)}, nil
}

// SetTechStackInput is set_tech_stack's typed input.
type SetTechStackInput struct {
	Repository  string
	Branch      string
	Languages   []string
	Frameworks  []string
	Tooling     []string
	Description string
}

// SetTechStack upserts the singleton tech_stack document for a repository.
func (s *Service) SetTechStack(ctx context.Context, in SetTechStackInput) (string, error) {
	branch := in.Branch
	if branch == "" {
		branch = document.UnknownBranch
	}
	now := time.Now()
	id := document.TechStackID(in.Repository)
	doc := document.Document{
		ID:   id,
		Text: s.scrub(in.Description),
		Common: document.Common{
			Type: document.TypeTechStack, Repository: in.Repository, Branch: branch,
			Status: document.StatusActive, CreatedAt: now, UpdatedAt: now, IndexedAt: now,
		},
		Metadata: document.Metadata{TechStack: &document.TechStack{
			Languages: in.Languages, Frameworks: in.Frameworks, Tooling: in.Tooling, Description: in.Description,
		}},
	}
	if err := s.Store.Upsert(ctx, []document.Document{doc}); err != nil {
		return "", err
	}
	return id, nil
}

// GetTechStack fetches the singleton tech_stack document for a repository,
// returning (nil, nil) if none has been set.
func (s *Service) GetTechStack(ctx context.Context, repository string) (*document.Document, error) {
	docs, err := s.Store.Get(ctx, store.GetOptions{Where: store.And(
		store.Eq("type", string(document.TypeTechStack)),
		store.Eq("repository", repository),
	)})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}
