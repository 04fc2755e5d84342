// Package llm is the narrow external capability boundary for text
// generation (spec §4.8 session-capture summarization). Grounded on the
// teacher's pkg/embeddings.Service, which wraps langchaingo's OpenAI-
// compatible client the same way to reach both OpenAI and
// OpenAI-compatible local servers (TEI, Ollama, OpenRouter).
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptyPrompt is returned by Generate/Summarize for blank input.
var ErrEmptyPrompt = errors.New("llm: prompt must not be empty")

// ErrProviderDisabled is returned by the "none" provider (spec.md:246 lists
// `none` as a valid llm_provider value). Callers that summarize on a
// best-effort basis (internal/capture's worker) treat this as "skip, don't
// fail" rather than a hard error.
var ErrProviderDisabled = errors.New("llm: provider disabled")

// Provider is the capability internal/capture's worker depends on: turn
// arbitrary text into a short narrative summary.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Summarize(ctx context.Context, text string) (string, error)
}

// Config selects and configures a Provider (spec §6 `configure` exposes
// `llm_provider`, closed enum validated by internal/runtimeconfig:
// anthropic, claude-cli, ollama, openrouter, none).
type Config struct {
	// Provider is one of "anthropic", "claude-cli", "ollama", "openrouter",
	// "none". Any other value falls back to the openai-compatible client,
	// which also covers local TEI/vLLM servers via BaseURL.
	Provider string
	Model    string
	APIKey   string
	BaseURL  string

	// ClaudeCLIPath overrides the "claude" binary looked up on PATH for
	// Provider == "claude-cli". Empty uses "claude".
	ClaudeCLIPath string
}

func (c Config) applyDefaults() Config {
	if c.Model == "" {
		switch c.Provider {
		case "anthropic":
			c.Model = "claude-3-5-haiku-20241022"
		case "ollama":
			c.Model = "llama3.1"
		case "claude-cli", "none":
			// no model string to default: claude-cli takes whatever the
			// local CLI is configured for, none builds no client at all.
		default:
			c.Model = "gpt-4o-mini"
		}
	}
	return c
}

// New builds a Provider from Config, selecting a langchaingo backend by
// Config.Provider. "none" builds a no-op Provider that reports
// ErrProviderDisabled rather than erroring: capture is meant to be turned
// off, not broken. "claude-cli" shells out to a local claude binary instead
// of calling a hosted API (spec.md:246; original_source's ClaudeCLIProvider
// is a distinct, locally-executing provider, not an alias for anthropic).
func New(cfg Config) (Provider, error) {
	cfg = cfg.applyDefaults()

	if cfg.Provider == "none" {
		return noopProvider{}, nil
	}
	if cfg.Provider == "claude-cli" {
		return newClaudeCLIProvider(cfg), nil
	}

	var model llms.Model
	var err error
	switch cfg.Provider {
	case "anthropic":
		opts := []anthropic.Option{anthropic.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, anthropic.WithToken(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		model, err = anthropic.New(opts...)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
	default: // openai-compatible: openrouter, openai, local TEI/vLLM
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "placeholder"
		}
		opts := []openai.Option{openai.WithModel(cfg.Model), openai.WithToken(apiKey)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("building %s llm client: %w", cfg.Provider, err)
	}
	return &adapter{model: model}, nil
}

// noopProvider backs Config.Provider == "none": capture stays wired (jobs
// still enqueue and dequeue) but nothing is ever sent to an LLM.
type noopProvider struct{}

func (noopProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return "", ErrProviderDisabled
}

func (noopProvider) Summarize(ctx context.Context, text string) (string, error) {
	return "", ErrProviderDisabled
}

var _ Provider = noopProvider{}

// adapter wraps any langchaingo llms.Model behind Provider.
type adapter struct {
	model llms.Model
}

// Generate sends prompt verbatim and returns the model's completion text.
func (a *adapter) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	return llms.GenerateFromSinglePrompt(ctx, a.model, prompt)
}

// Summarize wraps text in a short summarization instruction. Kept separate
// from Generate so capture/worker.go's call sites read as intent, not
// prompt-engineering detail.
func (a *adapter) Summarize(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", ErrEmptyPrompt
	}
	prompt := "Summarize the following development session in 3-6 sentences, " +
		"focusing on what changed, why, and what remains open:\n\n" + text
	return a.Generate(ctx, prompt)
}

var _ Provider = (*adapter)(nil)
