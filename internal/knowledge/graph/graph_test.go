package graph_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hedaas-code/neoagent/internal/kernel/errs"
	"github.com/hedaas-code/neoagent/internal/knowledge/base"
	"github.com/hedaas-code/neoagent/internal/knowledge/graph"
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

func TestSetDefinitionOverridenByConflictingBaseFact(t *testing.T) {
	db := newTestStore(t)
	kb := base.New(db)
	g := graph.New(db, kb, nil)
	ctx := context.Background()

	require.NoError(t, kb.AddFact(ctx, "HeDaas", "HeDaas是一个高校", "identity", "origin"))

	err := g.SetDefinition(ctx, "HeDaas", "HeDaas是一家公司", "assertion", "chat", 0.9)
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrConflict))

	entity, err := db.GetEntityByName(ctx, "HeDaas")
	require.NoError(t, err)
	def, err := db.GetDefinition(ctx, entity.UUID)
	require.NoError(t, err)
	require.Equal(t, "HeDaas是一个高校", def.Content)
	require.True(t, def.IsBaseKnowledge)
}

func TestSetDefinitionOverwritesNonBaseDefinition(t *testing.T) {
	db := newTestStore(t)
	kb := base.New(db)
	g := graph.New(db, kb, nil)
	ctx := context.Background()

	require.NoError(t, g.SetDefinition(ctx, "小明", "小明是学生", "assertion", "chat", 0.8))
	require.NoError(t, g.SetDefinition(ctx, "小明", "小明是老师", "assertion", "chat", 0.9))

	entity, err := db.GetEntityByName(ctx, "小明")
	require.NoError(t, err)
	def, err := db.GetDefinition(ctx, entity.UUID)
	require.NoError(t, err)
	require.Equal(t, "小明是老师", def.Content)
}

func TestAddRelatedInfoIncrementsOnDuplicate(t *testing.T) {
	db := newTestStore(t)
	kb := base.New(db)
	g := graph.New(db, kb, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := g.AddRelatedInfo(ctx, "小明", "喜欢看书", "hobby", "chat", 0.8, store.StatusSuspected)
		require.NoError(t, err)
	}

	entity, err := db.GetEntityByName(ctx, "小明")
	require.NoError(t, err)
	infos, err := db.ListRelatedInfo(ctx, entity.UUID, 10)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, 3, infos[0].MentionCount)
}

func TestBandClassifiesConfidence(t *testing.T) {
	require.Equal(t, graph.BandHigh, graph.Band(0.95))
	require.Equal(t, graph.BandMedium, graph.Band(0.75))
	require.Equal(t, graph.BandLow, graph.Band(0.5))
}
