package memory

import (
	"context"
	"time"

	"github.com/devmemory/navigator/internal/document"
	"github.com/devmemory/navigator/internal/signals"
)

// SaveSessionSummaryInput is save_session_summary's typed input.
type SaveSessionSummaryInput struct {
	Repository string
	Branch     string
	Content    string
	Files      []string
	SessionID  string
	Initiative string
}

// SaveSessionSummary persists an end-of-session narrative, tagged with the
// repo's currently focused initiative if one was supplied by the caller
// (internal/capture's worker resolves that before calling in).
func (s *Service) SaveSessionSummary(ctx context.Context, in SaveSessionSummaryInput) (SaveResult, error) {
	branch := in.Branch
	if branch == "" {
		branch = document.UnknownBranch
	}
	now := time.Now()
	id := document.NewID(document.TypeSessionSummary, in.Repository+":"+in.SessionID+":"+now.String())
	doc := document.Document{
		ID:   id,
		Text: s.scrub(in.Content),
		Common: document.Common{
			Type: document.TypeSessionSummary, Repository: in.Repository, Branch: branch,
			Status: document.StatusActive, CreatedAt: now, UpdatedAt: now, IndexedAt: now,
		},
		Metadata: document.Metadata{SessionSummary: &document.SessionSummary{
			Files: in.Files, SessionID: in.SessionID, InitiativeID: in.Initiative,
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
