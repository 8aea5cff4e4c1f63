package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display fidgetstar version and build information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "fidgetstar v%s\n", version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Starlark shape scripting, built with %s\n", runtime.Version())
		},
	}
}
