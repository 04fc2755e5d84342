package mcp

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devmemory/navigator/internal/tools"
)

func TestNewServer(t *testing.T) {
	logger := zap.NewNop()
	dispatcher := tools.New(tools.Deps{Logger: logger})

	t.Run("successful creation", func(t *testing.T) {
		cfg := &Config{Name: "test-server", Version: "1.0.0", Logger: logger}

		server, err := NewServer(cfg, dispatcher)
		require.NoError(t, err)
		require.NotNil(t, server)
		require.NotNil(t, server.mcp)
		require.Equal(t, "test-server", cfg.Name)
	})

	t.Run("nil config uses defaults", func(t *testing.T) {
		server, err := NewServer(nil, dispatcher)
		require.NoError(t, err)
		require.NotNil(t, server)
	})

	t.Run("missing dispatcher", func(t *testing.T) {
		_, err := NewServer(DefaultConfig(), nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "dispatcher is required")
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)
	require.Equal(t, "navigator", cfg.Name)
	require.Equal(t, "1.0.0", cfg.Version)
	require.NotNil(t, cfg.Logger)
}
