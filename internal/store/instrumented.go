package store

import (
	"context"
	"sync/atomic"

	"github.com/devmemory/navigator/internal/document"
)

// Instrumented wraps a Store and flips a dirty flag on every write, so the
// lexical BM25 index (internal/search/bm25) knows when it must rebuild
// before the next search (spec §4.2). All engine code writes through this
// wrapper rather than the raw backend.
type Instrumented struct {
	Store
	dirty atomic.Bool
}

// NewInstrumented wraps inner, starting dirty so the first search builds
// the lexical index.
func NewInstrumented(inner Store) *Instrumented {
	i := &Instrumented{Store: inner}
	i.dirty.Store(true)
	return i
}

func (i *Instrumented) Upsert(ctx context.Context, docs []document.Document) error {
	if err := i.Store.Upsert(ctx, docs); err != nil {
		return err
	}
	i.dirty.Store(true)
	return nil
}

func (i *Instrumented) Delete(ctx context.Context, opts DeleteOptions) error {
	if err := i.Store.Delete(ctx, opts); err != nil {
		return err
	}
	i.dirty.Store(true)
	return nil
}

// Dirty reports whether a write has happened since the last ConsumeDirty.
func (i *Instrumented) Dirty() bool {
	return i.dirty.Load()
}

// ConsumeDirty atomically reads and clears the dirty flag, returning what it
// was. The lexical index calls this once per rebuild so two concurrent
// rebuild attempts don't both believe they need one (spec §4.2's mutex-guarded
// dirty transition).
func (i *Instrumented) ConsumeDirty() bool {
	return i.dirty.Swap(false)
}

// MarkDirty forces the next search to rebuild the lexical index, used by
// callers (save-memory, complete-initiative) that write through a path other
// than Upsert/Delete.
func (i *Instrumented) MarkDirty() {
	i.dirty.Store(true)
}
