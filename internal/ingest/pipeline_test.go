package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devmemory/navigator/internal/document"
	"github.com/devmemory/navigator/internal/search"
	"github.com/devmemory/navigator/internal/store"
)

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 0, 0}
	}
	return out, nil
}

func (fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 0, 0}, nil
}

func newMemStore(t *testing.T) *store.Instrumented {
	t.Helper()
	cfg := store.ChromemConfig{Path: t.TempDir()}
	raw, err := store.NewChromemStore(cfg, fakeEmbedder{}, zap.NewNop())
	require.NoError(t, err)
	return store.NewInstrumented(raw)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestPipelineIngestThenSearch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {\n\tprintln(\"hello navigator\")\n}\n")

	s := newMemStore(t)
	lex := search.NewLexicalIndex(s)
	p := NewPipeline(s, lex, t.TempDir(), zap.NewNop())

	ctx := context.Background()
	stats, err := p.Run(ctx, Options{Path: root, Repository: "demo"})
	require.NoError(t, err)
	require.Greater(t, stats.FilesProcessed, 0)

	docs, err := s.Get(ctx, store.GetOptions{Where: store.Eq("repository", "demo")})
	require.NoError(t, err)
	require.NotEmpty(t, docs)
}

func TestPipelineSecondRunNoChangesIsNoop(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc A() {}\n")

	s := newMemStore(t)
	lex := search.NewLexicalIndex(s)
	p := NewPipeline(s, lex, t.TempDir(), zap.NewNop())
	ctx := context.Background()

	_, err := p.Run(ctx, Options{Path: root, Repository: "demo"})
	require.NoError(t, err)

	stats, err := p.Run(ctx, Options{Path: root, Repository: "demo"})
	require.NoError(t, err)
	require.Equal(t, 0, stats.FilesProcessed)
	require.Equal(t, 0, stats.FilesDeleted)
}

func TestPipelineOrphanGC(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "gone.go", "package gone\n\nfunc Gone() {}\n")

	s := newMemStore(t)
	lex := search.NewLexicalIndex(s)
	p := NewPipeline(s, lex, t.TempDir(), zap.NewNop())
	ctx := context.Background()

	_, err := p.Run(ctx, Options{Path: root, Repository: "demo"})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "gone.go")))

	stats, err := p.Run(ctx, Options{Path: root, Repository: "demo"})
	require.NoError(t, err)
	require.Greater(t, stats.FilesDeleted, 0)

	docs, err := s.Get(ctx, store.GetOptions{Where: store.And(
		store.Eq("repository", "demo"),
		store.Eq("type", string(document.TypeFileMetadata)),
	)})
	require.NoError(t, err)
	for _, d := range docs {
		if d.Metadata.FileMetadata != nil {
			require.NotEqual(t, "gone.go", d.Metadata.FileMetadata.FilePath)
		}
	}
}

func TestIgnoreRulesExcludeDotGit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main\n")
	writeFile(t, root, "keep.go", "package keep\n")

	rules := NewIgnoreRules(root, nil, true)
	walked, err := Walk(root, rules)
	require.NoError(t, err)
	for _, w := range walked {
		require.NotContains(t, w.RelPath, ".git/")
	}
}

func TestChunkFilePacksWithOverlap(t *testing.T) {
	big := ""
	for i := 0; i < 200; i++ {
		big += "line number content here to pad things out\n"
	}
	chunks := ChunkFile(big, "go")
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		require.Equal(t, i, c.Index)
	}
}
