package neoagentctl

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// newEventCommand builds the `event <event-id>` subcommand, the CLI
// surface over Kernel.HandleEvent. Callers create Events in the store
// externally; this binary only dispatches an already-created one.
func newEventCommand(out, errOut io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event <event-id>",
		Short: "Dispatch a previously created Event through HandleEvent",
		Long: `Invokes AgentKernel.HandleEvent for an Event row already present in
the store. A notification event resolves with a single explanation
call; a task event runs the task graph engine. If the result requires
delivery confirmation (the "simple" orchestration path), that flag is
printed instead of the event being marked completed automatically.`,
		Args: cobra.ExactArgs(1),
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

			turnCtx, cancel := app.turnContext(cmd.Context())
			defer cancel()

			result, err := app.Kernel.HandleEvent(turnCtx, args[0])
			if err != nil {
				return fmt.Errorf("handle event: %w", err)
			}

			fmt.Fprintln(out, result.Reply)
			if result.RequiresDeliveryConfirmation {
				fmt.Fprintln(out, "\n(result awaits host delivery confirmation; event left in-progress)")
			}
			return nil
		},
	}
	return cmd
}
