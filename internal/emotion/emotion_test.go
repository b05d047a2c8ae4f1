package emotion_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hedaas-code/neoagent/internal/emotion"
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

func TestShouldAnalyzeFirstRunAtFirstRounds(t *testing.T) {
	db := newTestStore(t)
	a := emotion.New(db, nil, "conv-1", emotion.Config{FirstRounds: 5, IntervalRounds: 15})
	ctx := context.Background()

	should, err := a.ShouldAnalyze(ctx, 4)
	require.NoError(t, err)
	require.False(t, should)

	should, err = a.ShouldAnalyze(ctx, 5)
	require.NoError(t, err)
	require.True(t, should)
}

func TestShouldAnalyzeSubsequentRunsEveryInterval(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, db.SetMetadata(ctx, "last_emotion_rounds", "5"))

	a := emotion.New(db, nil, "conv-1", emotion.Config{FirstRounds: 5, IntervalRounds: 15})

	should, err := a.ShouldAnalyze(ctx, 19)
	require.NoError(t, err)
	require.False(t, should)

	should, err = a.ShouldAnalyze(ctx, 20)
	require.NoError(t, err)
	require.True(t, should)
}

func TestTonePromptBlockEmptyWithoutSnapshot(t *testing.T) {
	db := newTestStore(t)
	a := emotion.New(db, nil, "conv-1", emotion.Config{})
	block, err := a.TonePromptBlock(context.Background())
	require.NoError(t, err)
	require.Empty(t, block)
}
