package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devmemory/navigator/internal/document"
	"github.com/devmemory/navigator/internal/store"
)

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	return out, nil
}
func (fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return []float32{0}, nil
}

func newService(t *testing.T) *Service {
	t.Helper()
	raw, err := store.NewChromemStore(store.ChromemConfig{Path: t.TempDir()}, fakeEmbedder{}, zap.NewNop())
	require.NoError(t, err)
	return NewService(store.NewInstrumented(raw))
}

func TestSaveNoteDetectsCompletionSignal(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	res, err := s.SaveNote(ctx, SaveNoteInput{Repository: "demo", Content: "Migrated the auth module, this is done."})
	require.NoError(t, err)
	require.True(t, res.CompletionSignal)
	require.NotEmpty(t, res.ID)
}

func TestSaveNoteRequiresContent(t *testing.T) {
	s := newService(t)
	_, err := s.SaveNote(context.Background(), SaveNoteInput{Repository: "demo"})
	require.Error(t, err)
}

func TestSaveInsightHashesFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("print(1)"), 0o644))

	s := newService(t)
	ctx := context.Background()
	res, err := s.SaveInsight(ctx, SaveInsightInput{
		Repository: "demo", Root: root, Content: "uses a global cache", Files: []string{"a.py"},
	})
	require.NoError(t, err)

	docs, err := s.Store.Get(ctx, store.GetOptions{IDs: []string{res.ID}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.NotEmpty(t, docs[0].Metadata.Insight.FileHashes["a.py"])
}

func TestValidateInsightNoLongerValidWithReplacement(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("print(1)"), 0o644))

	s := newService(t)
	ctx := context.Background()
	saved, err := s.SaveInsight(ctx, SaveInsightInput{Repository: "demo", Root: root, Content: "old approach", Files: []string{"a.py"}})
	require.NoError(t, err)

	rec, err := s.ValidateInsight(ctx, ValidateInsightInput{
		InsightID: saved.ID, Result: document.ValidationNoLongerValid, Deprecate: true,
		Notes: "rewritten", ReplacementContent: "new approach", ReplacementFiles: []string{"a.py"}, Root: root,
	})
	require.NoError(t, err)
	require.True(t, rec.Deprecated)
	require.NotEmpty(t, rec.ReplacementID)

	docs, err := s.Store.Get(ctx, store.GetOptions{IDs: []string{saved.ID}})
	require.NoError(t, err)
	require.Equal(t, document.StatusDeprecated, docs[0].Common.Status)
	require.Equal(t, rec.ReplacementID, docs[0].Metadata.Insight.SupersededBy)
}

func TestStaleDetectsFileChange(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.py")
	require.NoError(t, os.WriteFile(path, []byte("print(1)"), 0o644))

	s := newService(t)
	ctx := context.Background()
	saved, err := s.SaveInsight(ctx, SaveInsightInput{Repository: "demo", Root: root, Content: "x", Files: []string{"a.py"}})
	require.NoError(t, err)

	docs, err := s.Store.Get(ctx, store.GetOptions{IDs: []string{saved.ID}})
	require.NoError(t, err)
	require.False(t, Stale(root, docs[0].Metadata.Insight))

	require.NoError(t, os.WriteFile(path, []byte("print(2)"), 0o644))
	require.True(t, Stale(root, docs[0].Metadata.Insight))
}

func TestSetAndGetTechStack(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	_, err := s.SetTechStack(ctx, SetTechStackInput{Repository: "demo", Languages: []string{"go"}})
	require.NoError(t, err)

	doc, err := s.GetTechStack(ctx, "demo")
	require.NoError(t, err)
	require.NotNil(t, doc)
	require.Equal(t, []string{"go"}, doc.Metadata.TechStack.Languages)
}
