package neoagentctl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// newChatCommand builds the `chat [message]` subcommand: a message
// argument runs a single-shot turn, no argument opens an interactive
// REPL. Kernel.Chat returns a complete reply, so there is no delta
// callback to forward; the reply is rendered once it returns.
func newChatCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the agent",
		Long: `Send a single message and print the reply, or, with no arguments,
open an interactive line-based chat session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if cerr := app.Close(); cerr != nil {
					log.WithError(cerr).Warn("closing app resources failed")
				}
			}()

			if len(args) > 0 {
				return runOnce(cmd.Context(), app, strings.Join(args, " "), out)
			}
			return runREPL(cmd.Context(), app, in, out)
		},
	}
	return cmd
}

func runOnce(ctx context.Context, app *App, message string, out io.Writer) error {
	turnCtx, cancel := app.turnContext(ctx)
	defer cancel()

	reply, err := app.Kernel.Chat(turnCtx, message)
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	fmt.Fprintln(out, renderMarkdown(reply))
	return nil
}

// runREPL is a plain line-based loop: no alt-screen, no streaming
// (Kernel.Chat is request/response, not delta-driven). The final reply
// is rendered as markdown.
func runREPL(ctx context.Context, app *App, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "%s ready. Type a message and press Enter; Ctrl+D to quit.\n\n", app.Config.Character.Name)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out, "\ngoodbye")
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			fmt.Fprintln(out, "goodbye")
			return nil
		}

		turnCtx, cancel := app.turnContext(ctx)
		reply, err := app.Kernel.Chat(turnCtx, line)
		cancel()
		if err != nil {
			fmt.Fprintf(out, "error: %v\n\n", err)
			continue
		}
		fmt.Fprintln(out, renderMarkdown(reply))
		fmt.Fprintln(out)
	}
}

// renderMarkdown renders reply text for terminal display, falling back
// to the raw text whenever the renderer can't be built (non-terminal
// stdout, unsupported color profile).
func renderMarkdown(content string) string {
	width := termWidth()
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithColorProfile(termenv.ANSI256),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
