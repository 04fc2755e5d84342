package qstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devmemory/navigator/internal/store"
)

func TestPointIDDeterministic(t *testing.T) {
	a := pointID("note:abc123")
	b := pointID("note:abc123")
	require.Equal(t, a.GetUuid(), b.GetUuid())

	c := pointID("note:abc124")
	require.NotEqual(t, a.GetUuid(), c.GetUuid())
}

func TestPayloadMetaRoundTrip(t *testing.T) {
	meta := map[string]string{
		"type":       "note",
		"repository": "devmemory/navigator",
		"branch":     "main",
	}

	payload := payloadFromMeta(meta)
	require.Len(t, payload, len(meta))

	back := metaFromPayload(payload)
	require.Equal(t, meta, back)
}

func TestFilterFromPushdown(t *testing.T) {
	require.Nil(t, filterFromPushdown(nil))

	where := store.And(store.Eq("repository", "devmemory/navigator"), store.Eq("branch", "main"))
	filter := filterFromPushdown(store.PushdownEq(where))
	require.NotNil(t, filter)
	require.Len(t, filter.Must, 2)

	keys := map[string]string{}
	for _, cond := range filter.Must {
		field := cond.GetField()
		require.NotNil(t, field)
		keys[field.Key] = field.GetMatch().GetKeyword()
	}
	require.Equal(t, map[string]string{
		"repository": "devmemory/navigator",
		"branch":     "main",
	}, keys)
}

func TestIsTransientError(t *testing.T) {
	require.False(t, isTransientError(nil))
}
