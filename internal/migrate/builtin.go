package migrate

import (
	"context"

	"github.com/devmemory/navigator/internal/document"
	"github.com/devmemory/navigator/internal/store"
)

// Builtin returns the compile-time ordered migration list consulted on
// daemon start (spec §4.9). A fresh store created by this implementation
// never has version-1 legacy data, so Builtin's only real migration is v2;
// v1 exists as the documented baseline version history starts from (spec
// §9 open question: "a spec-compliant implementation starts at v2 and needs
// the migration only if importing legacy data").
func Builtin(s *store.Instrumented) []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "baseline schema: eleven-type document taxonomy",
			Run:         func(ctx context.Context) error { return nil },
		},
		{
			Version:     2,
			Description: "migrate legacy commit documents to session_summary",
			Run:         func(ctx context.Context) error { return migrateCommitToSessionSummary(ctx, s) },
		},
	}
}

// migrateCommitToSessionSummary rewrites any document whose type metadata
// is the latent legacy "commit" kind into a session_summary, preserving its
// text body and timestamps. Idempotent: a store with no "commit" documents
// (because it never imported legacy data) is a no-op, and re-running after
// a successful migration finds nothing left to rewrite.
func migrateCommitToSessionSummary(ctx context.Context, s *store.Instrumented) error {
	const legacyCommitType = "commit"
	docs, err := s.Get(ctx, store.GetOptions{Where: store.Eq("type", legacyCommitType)})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	rewritten := make([]document.Document, len(docs))
	for i, d := range docs {
		d.Common.Type = document.TypeSessionSummary
		if d.Metadata.SessionSummary == nil {
			d.Metadata.SessionSummary = &document.SessionSummary{}
		}
		rewritten[i] = d
	}
	return s.Upsert(ctx, rewritten)
}
