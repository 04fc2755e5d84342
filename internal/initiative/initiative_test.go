package initiative

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devmemory/navigator/internal/store"
)

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
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

func TestFocusSwapIsAtomicPerRepo(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	a, err := s.Create(ctx, CreateInput{Repository: "demo", Name: "rewrite-auth", Focus: true})
	require.NoError(t, err)
	b, err := s.Create(ctx, CreateInput{Repository: "demo", Name: "add-caching"})
	require.NoError(t, err)

	require.NoError(t, s.Focus(ctx, "demo", b.ID))

	focused, err := s.Focused(ctx, "demo")
	require.NoError(t, err)
	require.NotNil(t, focused)
	require.Equal(t, b.ID, focused.ID)

	docs, err := s.Store.Get(ctx, store.GetOptions{IDs: []string{a.ID}})
	require.NoError(t, err)
	require.False(t, docs[0].Metadata.Initiative.Focused)
}

func TestCompleteUnfocuses(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	a, err := s.Create(ctx, CreateInput{Repository: "demo", Name: "ship-it", Focus: true})
	require.NoError(t, err)

	_, err = s.Complete(ctx, CompleteInput{Repository: "demo", ID: a.ID, Summary: "done"})
	require.NoError(t, err)

	focused, err := s.Focused(ctx, "demo")
	require.NoError(t, err)
	require.Nil(t, focused)

	listed, err := s.List(ctx, "demo", false)
	require.NoError(t, err)
	require.Empty(t, listed)

	listedAll, err := s.List(ctx, "demo", true)
	require.NoError(t, err)
	require.Len(t, listedAll, 1)
}

func TestDetectCompletionSignal(t *testing.T) {
	require.True(t, DetectCompletion("Shipped the migration today."))
	require.False(t, DetectCompletion("Still working on it."))
}
