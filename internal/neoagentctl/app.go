package neoagentctl

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hedaas-code/neoagent/internal/config"
)

// NewDefaultCommand creates the `neoagentctl` command with default I/O
// streams.
func NewDefaultCommand() *cobra.Command {
	return NewCommand(os.Stdin, os.Stdout, os.Stderr)
}

// NewCommand builds the neoagentctl root command over the given streams.
func NewCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "neoagentctl",
		Short: "neoagentctl drives the persistent conversational agent kernel",
		Long: `neoagentctl assembles the Store, ChatModel router, and every other
component package into a running agent kernel, then exposes its
Chat and HandleEvent surface from the command line. The GUI, plugin
loader, and LLM transport itself are external collaborators; this
binary is a reference host supplying the I/O.`,
		SilenceUsage: true,
	}

	root.AddCommand(newChatCommand(in, out, errOut))
	root.AddCommand(newEventCommand(out, errOut))

	return root
}

// loadConfig reads configuration, applying any command-scoped overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func buildApp(ctx context.Context) (*App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return Build(ctx, cfg)
}

// turnContext applies the configured per-turn deadline, under which the
// whole pipeline (LLM, store, and plugin calls) must complete.
func (a *App) turnContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.Config.TurnDeadline <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.Config.TurnDeadline)
}
