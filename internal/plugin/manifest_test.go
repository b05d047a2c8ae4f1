package plugin_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hedaas-code/neoagent/internal/plugin"
)

func TestLoadManifestMissingFileYieldsEmpty(t *testing.T) {
	m, err := plugin.LoadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Empty(t, m.Skills)
}

func TestLoadManifestParsesSkillsAndPlugins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugins.yaml")
	content := `
plugins:
  systime:
    enabled: true
skills:
  - name: brewing-tea
    keywords: ["tea", "brew"]
    how_to: "Steep for three minutes."
    enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := plugin.LoadManifest(path)
	require.NoError(t, err)
	require.True(t, m.Plugins["systime"].Enabled)
	require.Len(t, m.Skills, 1)

	matches := m.MatchingSkills("how do I brew a nice cup of tea?")
	require.Len(t, matches, 1)
	require.Equal(t, "brewing-tea", matches[0].Name)

	require.Empty(t, m.MatchingSkills("what's the weather"))
}
