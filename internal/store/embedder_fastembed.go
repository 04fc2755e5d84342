package store

import (
	"context"
	"fmt"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

// FastEmbedConfig configures the default local embedder.
type FastEmbedConfig struct {
	// Model is a friendly model name, e.g. "BAAI/bge-small-en-v1.5".
	Model string
	// CacheDir is where fastembed downloads and memory-maps model weights.
	CacheDir string
	// MaxLength truncates input tokens per text.
	MaxLength int
}

var fastEmbedModelMapping = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5": fastembed.BGESmallENV15,
	"BAAI/bge-base-en-v1.5":  fastembed.BGEBaseENV15,
}

var fastEmbedDimensions = map[fastembed.EmbeddingModel]int{
	fastembed.BGESmallENV15: 384,
	fastembed.BGEBaseENV15:  768,
}

// FastEmbedEmbedder runs embeddings locally via fastembed-go. It is the
// default Embedder: no network dependency, model weights cached on disk.
// Adapted from the teacher's FastEmbedProvider, implementing store.Embedder
// directly instead of a separate cross-package interface.
type FastEmbedEmbedder struct {
	model     *fastembed.FlagEmbedding
	modelName string
	dimension int
	mu        sync.RWMutex
}

// NewFastEmbedEmbedder loads (downloading if necessary) the configured model.
func NewFastEmbedEmbedder(cfg FastEmbedConfig) (*FastEmbedEmbedder, error) {
	if cfg.Model == "" {
		cfg.Model = "BAAI/bge-small-en-v1.5"
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = "./local_cache"
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 512
	}

	modelID, ok := fastEmbedModelMapping[cfg.Model]
	if !ok {
		return nil, fmt.Errorf("store: unknown fastembed model %q", cfg.Model)
	}

	showProgress := false
	model, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                modelID,
		CacheDir:             cfg.CacheDir,
		MaxLength:            cfg.MaxLength,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("loading fastembed model %s: %w", cfg.Model, err)
	}

	return &FastEmbedEmbedder{
		model:     model,
		modelName: cfg.Model,
		dimension: fastEmbedDimensions[modelID],
	}, nil
}

// EmbedDocuments embeds document bodies, using BGE's "passage:" prefix
// convention for asymmetric retrieval.
func (e *FastEmbedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	vectors, err := e.model.PassageEmbed(texts, 256)
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string with BGE's "query:" prefix.
func (e *FastEmbedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("store: empty query text")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	vector, err := e.model.QueryEmbed(text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vector, nil
}

// Dimension reports the embedding width of the loaded model.
func (e *FastEmbedEmbedder) Dimension() int { return e.dimension }

// Close releases the underlying model.
func (e *FastEmbedEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.model.Destroy()
	return nil
}

var _ Embedder = (*FastEmbedEmbedder)(nil)
