package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrlokans/posdz/internal/entrypoint"
)

// NewServeCommand creates the serve command.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}
}

func runServe(opts *RootOptions) error {
	return entrypoint.Run(opts.loadConfig(), opts.version)
}
