package checkpoint_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hedaas-code/neoagent/internal/taskgraph/checkpoint"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemoryStore()

	_, found, err := store.Load(ctx, "thread-a")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Save(ctx, "thread-a", []byte(`{"thread_id":"thread-a"}`)))

	raw, found, err := store.Load(ctx, "thread-a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, `{"thread_id":"thread-a"}`, string(raw))

	require.NoError(t, store.Delete(ctx, "thread-a"))
	_, found, err = store.Load(ctx, "thread-a")
	require.NoError(t, err)
	require.False(t, found)
}

func TestBoltStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checkpoints.db")

	store, err := checkpoint.OpenBoltStore(path)
	require.NoError(t, err)
	defer store.Close()

	_, found, err := store.Load(ctx, "thread-b")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Save(ctx, "thread-b", []byte(`{"thread_id":"thread-b"}`)))

	raw, found, err := store.Load(ctx, "thread-b")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, `{"thread_id":"thread-b"}`, string(raw))

	require.NoError(t, store.Delete(ctx, "thread-b"))
	_, found, err = store.Load(ctx, "thread-b")
	require.NoError(t, err)
	require.False(t, found)
}
