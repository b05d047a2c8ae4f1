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

func TestShouldLearnExpressionsAtInterval(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "neoagent_test.db")
	db, err := sqlite.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mem := memory.New(db, nil, nil, "conv-1", memory.Config{})
	ctx := context.Background()

	should, err := mem.ShouldLearnExpressions(ctx, 9, 10)
	require.NoError(t, err)
	require.False(t, should)

	should, err = mem.ShouldLearnExpressions(ctx, 10, 10)
	require.NoError(t, err)
	require.True(t, should)
}

func TestExpressionPromptBlockEmptyWithoutStyles(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "neoagent_test.db")
	db, err := sqlite.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mem := memory.New(db, nil, nil, "conv-1", memory.Config{})
	block, err := mem.ExpressionPromptBlock(context.Background(), store.ExpressionAgent, 5)
	require.NoError(t, err)
	require.Empty(t, block)
}
