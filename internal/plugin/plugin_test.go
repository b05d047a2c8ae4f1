package plugin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hedaas-code/neoagent/internal/plugin"
)

type fakePlugin struct {
	id, name, desc string
	keywords       []string
	enabled        bool
	result         plugin.Result
}

func (f *fakePlugin) ToolID() string      { return f.id }
func (f *fakePlugin) Name() string        { return f.name }
func (f *fakePlugin) Description() string { return f.desc }
func (f *fakePlugin) Keywords() []string  { return f.keywords }
func (f *fakePlugin) Enabled() bool       { return f.enabled }
func (f *fakePlugin) Invoke(ctx context.Context, pctx plugin.Context) (plugin.Result, error) {
	return f.result, nil
}

func TestGatherContextFallsBackToKeywordMatchWithoutRouter(t *testing.T) {
	reg := plugin.NewRegistry()
	reg.Register(&fakePlugin{id: "systime", name: "System Time", keywords: []string{"time"}, enabled: true,
		result: plugin.Result{Context: "it is 3pm"}})
	reg.Register(&fakePlugin{id: "weather", name: "Weather", keywords: []string{"weather"}, enabled: true,
		result: plugin.Result{Context: "sunny"}})

	inv := plugin.New(reg, nil)
	ctx, err := inv.GatherContext(context.Background(), "what time is it?")
	require.NoError(t, err)
	require.Contains(t, ctx, "System Time")
	require.Contains(t, ctx, "it is 3pm")
	require.NotContains(t, ctx, "Weather")
}

func TestGatherContextEmptyWithNoEnabledPlugins(t *testing.T) {
	reg := plugin.NewRegistry()
	reg.Register(&fakePlugin{id: "systime", enabled: false})

	inv := plugin.New(reg, nil)
	ctx, err := inv.GatherContext(context.Background(), "hello")
	require.NoError(t, err)
	require.Empty(t, ctx)
}

func TestGatherContextNoMatchReturnsEmpty(t *testing.T) {
	reg := plugin.NewRegistry()
	reg.Register(&fakePlugin{id: "weather", keywords: []string{"weather"}, enabled: true})

	inv := plugin.New(reg, nil)
	ctx, err := inv.GatherContext(context.Background(), "tell me a joke")
	require.NoError(t, err)
	require.Empty(t, ctx)
}

func TestRegistryEnabledPreservesOrderAndFiltersDisabled(t *testing.T) {
	reg := plugin.NewRegistry()
	reg.Register(&fakePlugin{id: "a", enabled: true})
	reg.Register(&fakePlugin{id: "b", enabled: false})
	reg.Register(&fakePlugin{id: "c", enabled: true})

	enabled := reg.Enabled()
	require.Len(t, enabled, 2)
	require.Equal(t, "a", enabled[0].ToolID())
	require.Equal(t, "c", enabled[1].ToolID())
}
