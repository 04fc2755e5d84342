package toolenvelope

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devmemory/navigator/internal/document"
	"github.com/devmemory/navigator/internal/store"
)

func TestClassifyMapsSentinels(t *testing.T) {
	require.Equal(t, InvalidArgument, Classify(document.ErrInvalidDocument))
	require.Equal(t, NotFound, Classify(store.ErrNotFound))
	require.Equal(t, Unavailable, Classify(store.ErrUnavailable))
	require.Equal(t, Internal, Classify(errTest))
}

func TestClassifyPassesThroughExplicitKind(t *testing.T) {
	err := New(Conflict, "already superseded", nil)
	require.Equal(t, Conflict, Classify(err))
}

func TestOkAndErrEnvelopes(t *testing.T) {
	env, err := Ok(map[string]string{"id": "abc"})
	require.NoError(t, err)
	require.Equal(t, "ok", env.Status)

	e2 := Err(store.ErrNotFound)
	require.Equal(t, "error", e2.Status)
	require.Equal(t, NotFound, e2.Kind)
}

var errTest = &customErr{}

type customErr struct{}

func (*customErr) Error() string { return "boom" }
