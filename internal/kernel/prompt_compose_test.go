package kernel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hedaas-code/neoagent/internal/emotion"
	"github.com/hedaas-code/neoagent/internal/environment"
	"github.com/hedaas-code/neoagent/internal/knowledge/base"
	"github.com/hedaas-code/neoagent/internal/knowledge/graph"
	"github.com/hedaas-code/neoagent/internal/memory"
	"github.com/hedaas-code/neoagent/internal/prompt"
	"github.com/hedaas-code/neoagent/internal/store/sqlite"
	"github.com/hedaas-code/neoagent/internal/worldview"
)

func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "neoagent_test.db")
	db, err := sqlite.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestKernel(t *testing.T, promptDir string) *Kernel {
	t.Helper()
	db := newTestStore(t)
	kb := base.New(db)
	g := graph.New(db, kb, nil)
	mem := memory.New(db, nil, g, "conv-1", memory.Config{})
	emo := emotion.New(db, nil, "conv-1", emotion.Config{})
	env := environment.New(db, nil)

	lib, err := prompt.NewLibrary(promptDir)
	require.NoError(t, err)
	t.Cleanup(lib.Close)

	wv, err := worldview.Load(filepath.Join(promptDir, "missing-worldview"))
	require.NoError(t, err)

	return New(Dependencies{
		Store:         db,
		CharacterName: "Echoryn",
		Knowledge:     kb,
		Graph:         g,
		Memory:        mem,
		Emotion:       emo,
		Env:           env,
		Prompts:       lib,
		World:         wv,
	})
}

func TestComposeSystemMessagesRendersTemplateSlots(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(filepath.Join(dir, "system"), "chat_system.md",
		"name={character_name}\nworld={world_setting}\nknowledge={relevant_knowledge}"))

	k := newTestKernel(t, dir)
	ctx := context.Background()

	msgs, err := k.composeSystemMessages(ctx, &graph.RetrieveResult{}, "", "", "", "", "")
	require.NoError(t, err)
	require.NotEmpty(t, msgs)
	require.Contains(t, msgs[0].Content, "name=Echoryn")
}

func TestComposeSystemMessagesFallsBackWithoutTemplate(t *testing.T) {
	dir := t.TempDir()
	k := newTestKernel(t, dir)
	ctx := context.Background()

	msgs, err := k.composeSystemMessages(ctx, &graph.RetrieveResult{}, "", "", "", "", "")
	require.NoError(t, err)
	require.NotEmpty(t, msgs)
	require.Contains(t, msgs[0].Content, "character_name")
	require.Contains(t, msgs[0].Content, "Echoryn")
}

func TestComposeSystemMessagesAppendsOptionalBlocks(t *testing.T) {
	dir := t.TempDir()
	k := newTestKernel(t, dir)
	ctx := context.Background()

	msgs, err := k.composeSystemMessages(ctx, &graph.RetrieveResult{}, "saw a cup", "free today", "agreed to lunch", "current time: noon", "moved to kitchen")
	require.NoError(t, err)

	var joined string
	for _, m := range msgs {
		joined += m.Content + "\n"
	}
	require.Contains(t, joined, "saw a cup")
	require.Contains(t, joined, "free today")
	require.Contains(t, joined, "agreed to lunch")
	require.Contains(t, joined, "current time: noon")
	require.Contains(t, joined, "moved to kitchen")
}

func writeFile(dir, name, content string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
}
