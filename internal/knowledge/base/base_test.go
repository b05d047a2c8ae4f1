package base_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hedaas-code/neoagent/internal/kernel/errs"
	"github.com/hedaas-code/neoagent/internal/knowledge/base"
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

func TestAddFactRefusesDuplicateName(t *testing.T) {
	db := newTestStore(t)
	kb := base.New(db)
	ctx := context.Background()

	require.NoError(t, kb.AddFact(ctx, "HeDaas", "HeDaas是一个高校", "identity", "origin"))
	err := kb.AddFact(ctx, "HeDaas", "HeDaas是一家公司", "identity", "origin")
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrImmutable))
}

func TestGetFallsBackToCaseInsensitive(t *testing.T) {
	db := newTestStore(t)
	kb := base.New(db)
	ctx := context.Background()

	require.NoError(t, kb.AddFact(ctx, "HeDaas", "HeDaas是一个高校", "identity", "origin"))

	fact, err := kb.Get(ctx, "hedaas")
	require.NoError(t, err)
	require.Equal(t, "HeDaas是一个高校", fact.Content)
}

func TestConflictsWithDetectsDivergence(t *testing.T) {
	db := newTestStore(t)
	kb := base.New(db)
	ctx := context.Background()

	require.NoError(t, kb.AddFact(ctx, "HeDaas", "HeDaas是一个高校", "identity", "origin"))

	conflict, err := kb.ConflictsWith(ctx, "HeDaas", "HeDaas是一家公司")
	require.NoError(t, err)
	require.True(t, conflict)

	noConflict, err := kb.ConflictsWith(ctx, "HeDaas", "HeDaas是一个高校")
	require.NoError(t, err)
	require.False(t, noConflict)
}

func TestConflictsWithMissingFactIsFalse(t *testing.T) {
	db := newTestStore(t)
	kb := base.New(db)

	conflict, err := kb.ConflictsWith(context.Background(), "Nobody", "anything")
	require.NoError(t, err)
	require.False(t, conflict)
}

func TestRenderPromptBlockGroupsByFixedCategoryOrder(t *testing.T) {
	kb := base.New(nil)
	facts := []*store.BaseFact{
		{EntityName: "小明", Content: "喜欢看书", Category: "preference"},
		{EntityName: "HeDaas", Content: "HeDaas是一个高校", Category: "identity"},
		{EntityName: "misc-thing", Content: "whatever", Category: "zzz-custom"},
	}

	block := kb.RenderPromptBlock(facts)
	identityIdx := indexOf(block, "## Identity")
	prefIdx := indexOf(block, "## Preference")
	customIdx := indexOf(block, "## Zzz-custom")

	require.GreaterOrEqual(t, identityIdx, 0)
	require.GreaterOrEqual(t, prefIdx, 0)
	require.GreaterOrEqual(t, customIdx, 0)
	require.Less(t, identityIdx, prefIdx)
	require.Less(t, prefIdx, customIdx)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
