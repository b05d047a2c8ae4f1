package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, root, category, name, content string) {
	t.Helper()
	dir := filepath.Join(root, category)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".md"), []byte(content), 0o644))
}

func TestRenderSubstitutesKnownSlots(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "persona", "default", "Hello {user_name}, today is {weekday}.")

	lib, err := NewLibrary(root)
	require.NoError(t, err)
	defer lib.Close()

	out, err := lib.Render("persona", "default", map[string]string{"user_name": "Ada", "weekday": "Monday"})
	require.NoError(t, err)
	require.Equal(t, "Hello Ada, today is Monday.", out)
}

func TestRenderMissingSlotsRenderEmpty(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "persona", "default", "Hello {user_name}, mood: {mood}.")

	lib, err := NewLibrary(root)
	require.NoError(t, err)
	defer lib.Close()

	out, err := lib.Render("persona", "default", map[string]string{"user_name": "Ada"})
	require.NoError(t, err)
	require.Equal(t, "Hello Ada, mood: .", out)
}

func TestRenderMissingTemplateIsNotFound(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(root, 0o755))

	lib, err := NewLibrary(root)
	require.NoError(t, err)
	defer lib.Close()

	_, err = lib.Render("persona", "missing", nil)
	require.Error(t, err)
}

func TestInvalidateForcesReload(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "persona", "default", "version one")

	lib, err := NewLibrary(root)
	require.NoError(t, err)
	defer lib.Close()

	out, err := lib.Render("persona", "default", nil)
	require.NoError(t, err)
	require.Equal(t, "version one", out)

	writeTemplate(t, root, "persona", "default", "version two")
	lib.Invalidate("persona", "default")

	out, err = lib.Render("persona", "default", nil)
	require.NoError(t, err)
	require.Equal(t, "version two", out)
}
