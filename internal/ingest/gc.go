package ingest

import (
	"context"
	"os"
	"path/filepath"

	"github.com/devmemory/navigator/internal/document"
	"github.com/devmemory/navigator/internal/store"
)

// gcTypes are the document types owned exclusively by this pipeline and
// therefore eligible for orphan collection (spec §3 invariant 7, §4.5
// step 7).
var gcTypes = []document.Type{
	document.TypeFileMetadata, document.TypeDependency,
	document.TypeEntryPoint, document.TypeDataContract,
}

// garbageCollect deletes every file_metadata/dependency/entry_point/
// data_contract document for (repo, branch) whose file_path no longer
// exists on disk under root (spec §3 invariant 7). Checked against the
// filesystem directly, not the current walk's survivor set, so a file that
// still exists but is newly excluded by an ignore rule is left alone —
// only deletion makes a navigation document an orphan.
func (p *Pipeline) garbageCollect(ctx context.Context, repo, branch, root string) (int, error) {
	deleted := 0
	for _, t := range gcTypes {
		docs, err := p.Store.Get(ctx, store.GetOptions{Where: store.And(
			store.Eq("type", string(t)),
			store.Eq("repository", repo),
			store.Eq("branch", branch),
		)})
		if err != nil {
			return deleted, err
		}
		var orphanIDs []string
		for _, d := range docs {
			path := filePathOf(d)
			if path == "" {
				continue
			}
			if _, err := os.Stat(filepath.Join(root, path)); err == nil {
				continue
			}
			orphanIDs = append(orphanIDs, d.ID)
		}
		if len(orphanIDs) > 0 {
			if err := p.Store.Delete(ctx, store.DeleteOptions{IDs: orphanIDs}); err != nil {
				return deleted, err
			}
			deleted += len(orphanIDs)
		}
	}
	return deleted, nil
}

func filePathOf(d document.Document) string {
	switch d.Common.Type {
	case document.TypeFileMetadata:
		if d.Metadata.FileMetadata != nil {
			return d.Metadata.FileMetadata.FilePath
		}
	case document.TypeDependency:
		if d.Metadata.Dependency != nil {
			return d.Metadata.Dependency.FilePath
		}
	case document.TypeEntryPoint:
		if d.Metadata.EntryPoint != nil {
			return d.Metadata.EntryPoint.FilePath
		}
	case document.TypeDataContract:
		if d.Metadata.DataContract != nil {
			return d.Metadata.DataContract.FilePath
		}
	}
	return ""
}
