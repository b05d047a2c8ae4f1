package environment_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hedaas-code/neoagent/internal/environment"
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

func TestSwitchEnforcesSingleActiveInvariant(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	model := environment.New(db, nil)

	a := &store.Environment{UUID: "env-a", Name: "Tavern", IsActive: true}
	b := &store.Environment{UUID: "env-b", Name: "Market"}
	require.NoError(t, db.CreateEnvironment(ctx, a))
	require.NoError(t, db.CreateEnvironment(ctx, b))

	require.NoError(t, model.Switch(ctx, "env-b"))

	active, err := model.ActiveEnvironment(ctx)
	require.NoError(t, err)
	require.Equal(t, "env-b", active.UUID)
}

func TestDetectSwitchIntentNeutralWithoutRouter(t *testing.T) {
	db := newTestStore(t)
	model := environment.New(db, nil)

	intent, err := model.DetectSwitchIntent(context.Background(), "let's go to the market")
	require.NoError(t, err)
	require.False(t, intent.CanSwitch)
}

func TestHasPerceptionIntent(t *testing.T) {
	require.True(t, environment.HasPerceptionIntent("what do you see around here?"))
	require.False(t, environment.HasPerceptionIntent("what time is it"))
}

func TestVisionContextLowPrecisionNarratesDomain(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	model := environment.New(db, nil)

	env := &store.Environment{UUID: "env-a", Name: "Tavern", OverallDescription: "a cosy tavern", IsActive: true}
	require.NoError(t, db.CreateEnvironment(ctx, env))
	dom := &store.Domain{UUID: "dom-a", Name: "Eastern Quarter", Description: "the old trade district"}
	require.NoError(t, db.CreateDomain(ctx, dom))
	require.NoError(t, db.LinkEnvironmentDomain(ctx, "env-a", "dom-a"))

	vc, err := model.VisionContext(ctx, false)
	require.NoError(t, err)
	require.Equal(t, "Eastern Quarter", vc.Environment)
	require.Equal(t, "the old trade district", vc.Narration)
}

func TestVisionContextLowPrecisionFallsBackWithoutDomain(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	model := environment.New(db, nil)

	env := &store.Environment{UUID: "env-a", Name: "Tavern", OverallDescription: "a cosy tavern", IsActive: true}
	require.NoError(t, db.CreateEnvironment(ctx, env))

	vc, err := model.VisionContext(ctx, false)
	require.NoError(t, err)
	require.Equal(t, "Tavern", vc.Environment)
	require.Equal(t, "a cosy tavern", vc.Narration)
}

func TestVisionContextHighPrecisionNarratesEnvironmentDetail(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	model := environment.New(db, nil)

	env := &store.Environment{
		UUID: "env-a", Name: "Tavern", OverallDescription: "a cosy tavern",
		Atmosphere: "warm and loud", Lighting: "firelight", IsActive: true,
	}
	require.NoError(t, db.CreateEnvironment(ctx, env))
	dom := &store.Domain{UUID: "dom-a", Name: "Eastern Quarter", Description: "the old trade district"}
	require.NoError(t, db.CreateDomain(ctx, dom))
	require.NoError(t, db.LinkEnvironmentDomain(ctx, "env-a", "dom-a"))

	vc, err := model.VisionContext(ctx, true)
	require.NoError(t, err)
	require.Equal(t, "Tavern", vc.Environment)
	require.Contains(t, vc.Narration, "warm and loud")
	require.Contains(t, vc.Narration, "firelight")
}

func TestVisionContextEmptyWithoutActiveEnvironment(t *testing.T) {
	db := newTestStore(t)
	model := environment.New(db, nil)

	vc, err := model.VisionContext(context.Background(), true)
	require.NoError(t, err)
	require.Empty(t, vc.Environment)
}
