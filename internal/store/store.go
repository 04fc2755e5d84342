// Package store adapts the document taxonomy onto an embedded vector
// database. It is the single place that knows how a document.Document maps
// to stored text + filterable metadata; everything above this layer only
// ever sees document.Document and Where.
package store

import (
	"context"
	"errors"

	"github.com/devmemory/navigator/internal/document"
)

// Sentinel errors, classified further by internal/toolenvelope at the
// transport boundary.
var (
	ErrNotFound      = errors.New("store: document not found")
	ErrEmbedFailed   = errors.New("store: embedding failed")
	ErrUnavailable   = errors.New("store: backend unavailable")
	ErrInvalidFilter = errors.New("store: invalid filter")
)

// ScoredDocument is a document returned from Query, carrying its
// vector-distance similarity.
type ScoredDocument struct {
	Document document.Document
	Score    float64
}

// GetOptions selects documents by ID or by filter; at least one must be set.
type GetOptions struct {
	IDs   []string
	Where Where
	Limit int // 0 = unbounded
}

// DeleteOptions selects documents to delete by ID or by filter.
type DeleteOptions struct {
	IDs   []string
	Where Where
}

// QueryOptions drives a similarity search.
type QueryOptions struct {
	Text  string
	TopK  int
	Where Where
}

// Embedder produces vector embeddings for document bodies and queries.
// Implementations wrap a local model (fastembed) or a remote provider
// (via langchaingo's embeddings package).
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the narrow capability the rest of the engine depends on: upsert,
// get, delete, and query, all filtered by the Where predicate DSL (spec
// §4.1). All operations are idempotent by document ID.
type Store interface {
	Upsert(ctx context.Context, docs []document.Document) error
	Get(ctx context.Context, opts GetOptions) ([]document.Document, error)
	Delete(ctx context.Context, opts DeleteOptions) error
	Query(ctx context.Context, opts QueryOptions) ([]ScoredDocument, error)
	Count(ctx context.Context, where Where) (int, error)
	Close() error
}
