package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	a := &adapter{model: nil}
	_, err := a.Generate(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestSummarizeRejectsEmptyText(t *testing.T) {
	a := &adapter{model: nil}
	_, err := a.Summarize(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestConfigDefaultsModelByProvider(t *testing.T) {
	cfg := Config{Provider: "anthropic"}.applyDefaults()
	require.NotEmpty(t, cfg.Model)
}
