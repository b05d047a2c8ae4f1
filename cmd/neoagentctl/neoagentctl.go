// Command neoagentctl assembles the agent kernel from configuration and
// exposes its Chat/HandleEvent surface from the command line.
package main

import (
	"os"

	"github.com/hedaas-code/neoagent/internal/neoagentctl"
)

func main() {
	cmd := neoagentctl.NewDefaultCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
