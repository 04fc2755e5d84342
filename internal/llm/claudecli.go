package llm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// claudeCLIProvider shells out to a local `claude` binary instead of calling
// a hosted API. Grounded on spec.md:246's closed llm_provider enum and
// original_source/tests/test_llm_providers.py, which exercises a distinct
// ClaudeCLIProvider class rather than treating claude-cli as an alias for
// anthropic; the original's registry implementation did not survive the
// distillation filter (only its tests did), so the subprocess plumbing here
// is a fresh, idiomatic-Go rendition of "run the CLI and capture stdout",
// not a translation.
type claudeCLIProvider struct {
	bin   string
	model string
}

func newClaudeCLIProvider(cfg Config) *claudeCLIProvider {
	bin := cfg.ClaudeCLIPath
	if bin == "" {
		bin = "claude"
	}
	return &claudeCLIProvider{bin: bin, model: cfg.Model}
}

// Generate runs `claude -p <prompt>` (non-interactive "print" mode) and
// returns its trimmed stdout.
func (p *claudeCLIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	args := []string{"-p"}
	if p.model != "" {
		args = append(args, "--model", p.model)
	}
	cmd := exec.CommandContext(ctx, p.bin, args...)
	cmd.Stdin = strings.NewReader(prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("claude-cli: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Summarize delegates to Generate with a summarization instruction, the
// same split adapter.Summarize uses for the hosted backends.
func (p *claudeCLIProvider) Summarize(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", ErrEmptyPrompt
	}
	prompt := "Summarize the following development session in 3-6 sentences, " +
		"focusing on what changed, why, and what remains open:\n\n" + text
	return p.Generate(ctx, prompt)
}

var _ Provider = (*claudeCLIProvider)(nil)
