package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/devmemory/navigator/internal/document"
)

// ChromemConfig configures the embedded chromem-go backend.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	Path string
	// Compress enables gzip compression of the on-disk gob files.
	Compress bool
	// Collection is the single flat collection name (spec §3: "the store is
	// a single flat collection; typing and scoping live entirely in metadata").
	Collection string
}

func (c *ChromemConfig) applyDefaults() {
	if c.Path == "" {
		c.Path = "~/.config/navigator/store"
	}
	if c.Collection == "" {
		c.Collection = "navigator"
	}
}

// ChromemStore implements Store over an embedded chromem-go database.
// Grounded on the teacher's ChromemStore, generalized from a per-tenant
// collection hierarchy to the spec's single flat collection.
type ChromemStore struct {
	db       *chromem.DB
	embedder Embedder
	config   ChromemConfig
	logger   *zap.Logger

	mu         sync.Mutex // serializes collection creation
	collection *chromem.Collection
}

// NewChromemStore opens (or creates) a persistent chromem-go database at
// config.Path.
func NewChromemStore(config ChromemConfig, embedder Embedder, logger *zap.Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidFilter)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config.applyDefaults()

	expanded, err := expandPath(config.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding store path: %w", err)
	}
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w", expanded, err)
	}

	db, err := chromem.NewPersistentDB(expanded, config.Compress)
	if err != nil {
		return nil, fmt.Errorf("opening chromem db: %w", err)
	}
	config.Path = expanded

	s := &ChromemStore{db: db, embedder: embedder, config: config, logger: logger}
	if _, err := s.getOrCreateCollection(); err != nil {
		return nil, err
	}
	return s, nil
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

func (s *ChromemStore) getOrCreateCollection() (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collection != nil {
		return s.collection, nil
	}
	col, err := s.db.GetOrCreateCollection(s.config.Collection, nil, s.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", s.config.Collection, err)
	}
	s.collection = col
	return col, nil
}

// Upsert embeds and stores docs. One embedding call batches all documents
// that don't already carry an embedding.
func (s *ChromemStore) Upsert(ctx context.Context, docs []document.Document) error {
	if len(docs) == 0 {
		return nil
	}
	for i := range docs {
		if err := document.Validate(docs[i]); err != nil {
			return err
		}
		if docs[i].Common.Branch == "" {
			docs[i].Common.Branch = document.UnknownBranch
		}
	}

	col, err := s.getOrCreateCollection()
	if err != nil {
		return err
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	embeddings, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmbedFailed, err)
	}

	chromemDocs := make([]chromem.Document, len(docs))
	for i, d := range docs {
		text, meta, err := Flatten(d)
		if err != nil {
			return err
		}
		chromemDocs[i] = chromem.Document{
			ID:        d.ID,
			Content:   text,
			Metadata:  meta,
			Embedding: embeddings[i],
		}
	}

	if err := col.AddDocuments(ctx, chromemDocs, 1); err != nil {
		return fmt.Errorf("upserting documents: %w", err)
	}
	return nil
}

// Get fetches documents by ID or by Where filter. chromem-go is always an
// exact (non-HNSW) index, so "fetch everything" is implemented as a query
// for the full collection count and then filtered/matched in Go.
func (s *ChromemStore) Get(ctx context.Context, opts GetOptions) ([]document.Document, error) {
	col, err := s.getOrCreateCollection()
	if err != nil {
		return nil, err
	}
	count := col.Count()
	if count == 0 {
		return nil, nil
	}

	results, err := col.Query(ctx, seedQueryText, count, PushdownEq(opts.Where), nil)
	if err != nil {
		return nil, fmt.Errorf("fetching documents: %w", err)
	}

	var idSet map[string]bool
	if len(opts.IDs) > 0 {
		idSet = make(map[string]bool, len(opts.IDs))
		for _, id := range opts.IDs {
			idSet[id] = true
		}
	}

	docs := make([]document.Document, 0, len(results))
	for _, r := range results {
		if idSet != nil && !idSet[r.ID] {
			continue
		}
		if !opts.Where.Match(r.Metadata) {
			continue
		}
		d, err := Unflatten(r.ID, r.Content, r.Metadata)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
		if opts.Limit > 0 && len(docs) >= opts.Limit {
			break
		}
	}
	return docs, nil
}

// Delete removes documents by ID or by Where filter.
func (s *ChromemStore) Delete(ctx context.Context, opts DeleteOptions) error {
	col, err := s.getOrCreateCollection()
	if err != nil {
		return err
	}

	ids := opts.IDs
	if !opts.Where.IsZero() {
		docs, err := s.Get(ctx, GetOptions{Where: opts.Where})
		if err != nil {
			return err
		}
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}
	return nil
}

// Query performs a similarity search, pushing down what filter it can to
// chromem-go's native equality matcher and applying the remainder of the
// Where tree (the $in/$or parts it can't express) in Go over the candidates.
func (s *ChromemStore) Query(ctx context.Context, opts QueryOptions) ([]ScoredDocument, error) {
	col, err := s.getOrCreateCollection()
	if err != nil {
		return nil, err
	}
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if opts.TopK <= 0 {
		opts.TopK = 10
	}

	// Over-fetch against the pushed-down (partial) filter since the full
	// Where may reject some of what chromem returns.
	fetchK := count
	results, err := col.Query(ctx, opts.Text, fetchK, PushdownEq(opts.Where), nil)
	if err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}

	out := make([]ScoredDocument, 0, opts.TopK)
	for _, r := range results {
		if !opts.Where.Match(r.Metadata) {
			continue
		}
		d, err := Unflatten(r.ID, r.Content, r.Metadata)
		if err != nil {
			return nil, err
		}
		out = append(out, ScoredDocument{Document: d, Score: float64(r.Similarity)})
		if len(out) >= opts.TopK {
			break
		}
	}
	return out, nil
}

// Count returns the number of documents matching where (an empty Where
// counts the whole collection).
func (s *ChromemStore) Count(ctx context.Context, where Where) (int, error) {
	col, err := s.getOrCreateCollection()
	if err != nil {
		return 0, err
	}
	if where.IsZero() {
		return col.Count(), nil
	}
	docs, err := s.Get(ctx, GetOptions{Where: where})
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// Close releases resources. chromem-go persists synchronously on write, so
// there is nothing to flush.
func (s *ChromemStore) Close() error {
	return nil
}

// seedQueryText is an arbitrary, stable query used only to trigger chromem's
// exact-search scan of the whole collection (its similarity ranking is
// discarded by callers that want "every document", not "the nearest ones").
const seedQueryText = "."

var _ Store = (*ChromemStore)(nil)
