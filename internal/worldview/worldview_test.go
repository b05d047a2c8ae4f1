package worldview_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hedaas-code/neoagent/internal/worldview"
)

func TestParseModulesSplitsOnHeadings(t *testing.T) {
	content := "## 基本信息\nA quiet kingdom.\n\n### 角色：Queen\nRules with wisdom.\n"
	modules := worldview.ParseModules(content, "doc.md")
	require.Len(t, modules, 2)
	require.Equal(t, worldview.CategoryGeneral, modules[0].Category)
	require.Equal(t, worldview.CategoryCharacters, modules[1].Category)
}

func TestParseModulesNoHeadingsYieldsSingleGeneralModule(t *testing.T) {
	modules := worldview.ParseModules("Just plain prose about the setting.", "doc.md")
	require.Len(t, modules, 1)
	require.Equal(t, worldview.CategoryGeneral, modules[0].Category)
}

func TestLoadMissingDirYieldsEmptyWorldview(t *testing.T) {
	wv, err := worldview.Load(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	require.Empty(t, wv.CharacterProfile())
	require.Empty(t, wv.WorldSetting())
}

func TestLoadParsesCharacterAndWorldModules(t *testing.T) {
	dir := t.TempDir()
	doc := "## 世界背景\nA floating city.\n\n## 角色：Aria\nThe narrator.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "setting.md"), []byte(doc), 0o644))

	wv, err := worldview.Load(dir)
	require.NoError(t, err)
	require.Contains(t, wv.CharacterProfile(), "Aria")
	require.Contains(t, wv.WorldSetting(), "floating city")
}
