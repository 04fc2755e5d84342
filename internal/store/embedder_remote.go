package store

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// RemoteEmbedderConfig selects and configures a langchaingo-backed remote
// Embedder, used when a local fastembed model isn't desired (spec §4.1:
// "embeddings optional; if omitted, the store computes them" — this is the
// pluggable remote path alongside FastEmbedEmbedder's local default).
// Adapted from the teacher's pkg/embeddings.Service, which wraps the same
// OpenAI-compatible client to reach both OpenAI and OpenAI-compatible local
// servers (TEI, Ollama, OpenRouter) via BaseURL.
type RemoteEmbedderConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

// RemoteEmbedder embeds documents and queries via a langchaingo Embedder
// backed by an OpenAI-compatible HTTP API.
type RemoteEmbedder struct {
	embedder embeddings.Embedder
}

// NewRemoteEmbedder builds a RemoteEmbedder from cfg.
func NewRemoteEmbedder(cfg RemoteEmbedderConfig) (*RemoteEmbedder, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("store: remote embedder requires a base URL")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("store: remote embedder requires a model")
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "placeholder" // TEI and other local servers ignore this
	}
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("store: building remote embedder client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("store: building remote embedder: %w", err)
	}
	return &RemoteEmbedder{embedder: embedder}, nil
}

// EmbedDocuments implements Embedder.
func (r *RemoteEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := r.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedFailed, err)
	}
	return vectors, nil
}

// EmbedQuery implements Embedder.
func (r *RemoteEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := r.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedFailed, err)
	}
	return vec, nil
}

var _ Embedder = (*RemoteEmbedder)(nil)
