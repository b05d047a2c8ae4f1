package memory_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hedaas-code/neoagent/internal/memory"
	"github.com/hedaas-code/neoagent/internal/store"
	"github.com/hedaas-code/neoagent/internal/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "neoagent_test.db")
	db, err := sqlite.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestAddMessageArchivesOldestRoundsPastBound(t *testing.T) {
	db := newTestStore(t)
	mem := memory.New(db, nil, nil, "conv-1", memory.Config{MaxShortTermRounds: 3, KnowledgeExtractInterval: 100})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, mem.AddMessage(ctx, store.RoleUser, "hi"))
		require.NoError(t, mem.AddMessage(ctx, store.RoleAssistant, "hello"))
	}

	count, err := db.CountUserMessages(ctx, "conv-1")
	require.NoError(t, err)
	require.LessOrEqual(t, count, 3)

	summaries, err := db.ListSummaries(ctx, "conv-1", 10)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, 3, summaries[0].Rounds)
	require.GreaterOrEqual(t, summaries[0].MessageCount, 3)
}

func TestContextForChatEmitsRecentSummaries(t *testing.T) {
	db := newTestStore(t)
	mem := memory.New(db, nil, nil, "conv-1", memory.Config{MaxShortTermRounds: 2, KnowledgeExtractInterval: 100})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, mem.AddMessage(ctx, store.RoleUser, "hi"))
		require.NoError(t, mem.AddMessage(ctx, store.RoleAssistant, "hello"))
	}

	block, err := mem.ContextForChat(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, block)
}

func TestContextForChatEmptyWithNoSummaries(t *testing.T) {
	db := newTestStore(t)
	mem := memory.New(db, nil, nil, "conv-1", memory.Config{})
	block, err := mem.ContextForChat(context.Background())
	require.NoError(t, err)
	require.Empty(t, block)
}
