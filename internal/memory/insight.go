package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/devmemory/navigator/internal/document"
	"github.com/devmemory/navigator/internal/ingest"
	"github.com/devmemory/navigator/internal/store"
)

// SaveInsightInput is save_insight's typed input.
type SaveInsightInput struct {
	Repository string
	Branch     string
	Root       string // filesystem root used to hash Files
	Content    string
	Files      []string
	Initiative string
}

// SaveInsight persists an analysis anchored to a set of files, hashing each
// file's current content (spec §4.7 "On save: compute content hash of every
// linked file now").
func (s *Service) SaveInsight(ctx context.Context, in SaveInsightInput) (SaveResult, error) {
	if len(in.Files) == 0 {
		return SaveResult{}, fmt.Errorf("%w: insight requires a non-empty files list", document.ErrInvalidDocument)
	}
	hashes := hashFiles(in.Root, in.Files)
	branch := in.Branch
	if branch == "" {
		branch = document.UnknownBranch
	}
	now := time.Now()
	id := document.NewID(document.TypeInsight, in.Repository+":"+in.Content+":"+now.String())
	doc := document.Document{
		ID:   id,
		Text: s.scrub(in.Content),
		Common: document.Common{
			Type: document.TypeInsight, Repository: in.Repository, Branch: branch,
			Status: document.StatusActive, CreatedAt: now, UpdatedAt: now, IndexedAt: now,
		},
		Metadata: document.Metadata{Insight: &document.Insight{
			Files: in.Files, FileHashes: hashes,
			LastValidationResult: document.ValidationStillValid,
			VerifiedAt:            now,
			InitiativeID:          in.Initiative,
		}},
	}
	if err := document.Validate(doc); err != nil {
		return SaveResult{}, err
	}
	if err := s.Store.Upsert(ctx, []document.Document{doc}); err != nil {
		return SaveResult{}, err
	}
	return SaveResult{ID: id, InitiativeTagged: in.Initiative}, nil
}

// hashFiles hashes each file under root, skipping ones that fail to read
// (e.g. already deleted) — the resulting partial hash set is still useful
// for staleness detection.
func hashFiles(root string, files []string) map[string]string {
	out := make(map[string]string, len(files))
	for _, f := range files {
		path := f
		if root != "" {
			path = filepath.Join(root, f)
		}
		h, err := ingest.ContentHash(path)
		if err != nil {
			continue
		}
		out[f] = h
	}
	return out
}

// ValidateInsightInput is validate_insight's typed input.
type ValidateInsightInput struct {
	InsightID          string
	Result             document.ValidationResult
	Notes              string
	Deprecate          bool
	ReplacementContent string // if set with Deprecate, saved as the replacement insight
	ReplacementFiles   []string
	Root               string
	Commit             string
}

// ValidationRecord is the result of validate_insight.
type ValidationRecord struct {
	InsightID     string
	Result        document.ValidationResult
	Deprecated    bool
	ReplacementID string
}

// ValidateInsight implements the validation state machine from spec §4.7.
func (s *Service) ValidateInsight(ctx context.Context, in ValidateInsightInput) (ValidationRecord, error) {
	docs, err := s.Store.Get(ctx, store.GetOptions{IDs: []string{in.InsightID}})
	if err != nil {
		return ValidationRecord{}, err
	}
	if len(docs) == 0 {
		return ValidationRecord{}, fmt.Errorf("%w: insight %q not found", store.ErrNotFound, in.InsightID)
	}
	doc := docs[0]
	if doc.Metadata.Insight == nil {
		return ValidationRecord{}, fmt.Errorf("%w: %q is not an insight", document.ErrInvalidDocument, in.InsightID)
	}
	insight := doc.Metadata.Insight
	now := time.Now()

	rec := ValidationRecord{InsightID: in.InsightID, Result: in.Result}

	switch in.Result {
	case document.ValidationStillValid:
		insight.FileHashes = hashFiles(in.Root, insight.Files)
		insight.ValidatedCommit = in.Commit
		insight.VerifiedAt = now
		insight.LastValidationResult = document.ValidationStillValid

	case document.ValidationPartiallyValid:
		insight.LastValidationResult = document.ValidationPartiallyValid
		insight.ValidationNotes = in.Notes

	case document.ValidationNoLongerValid:
		insight.LastValidationResult = document.ValidationNoLongerValid
		insight.ValidationNotes = in.Notes
		if in.Deprecate {
			insight.DeprecatedAt = now
			insight.DeprecationReason = in.Notes
			doc.Common.Status = document.StatusDeprecated
			rec.Deprecated = true

			if in.ReplacementContent != "" {
				replacement, rerr := s.SaveInsight(ctx, SaveInsightInput{
					Repository: doc.Common.Repository, Branch: doc.Common.Branch,
					Root: in.Root, Content: in.ReplacementContent,
					Files: orDefaultFiles(in.ReplacementFiles, insight.Files),
					Initiative: insight.InitiativeID,
				})
				if rerr != nil {
					return ValidationRecord{}, fmt.Errorf("saving replacement insight: %w", rerr)
				}
				insight.SupersededBy = replacement.ID
				rec.ReplacementID = replacement.ID
			}
		}

	default:
		return ValidationRecord{}, fmt.Errorf("%w: unknown validation result %q", document.ErrInvalidDocument, in.Result)
	}

	doc.Common.UpdatedAt = now
	doc.Metadata.Insight = insight
	if err := s.Store.Upsert(ctx, []document.Document{doc}); err != nil {
		return ValidationRecord{}, err
	}
	return rec, nil
}

func orDefaultFiles(files, fallback []string) []string {
	if len(files) > 0 {
		return files
	}
	return fallback
}

// Stale reports whether an insight's stored file_hashes disagree with the
// files' current on-disk content (spec §4.7 "Staleness detection").
func Stale(root string, insight *document.Insight) bool {
	current := hashFiles(root, insight.Files)
	for f, h := range insight.FileHashes {
		if current[f] != h {
			return true
		}
	}
	return false
}
