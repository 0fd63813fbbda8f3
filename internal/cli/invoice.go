package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/posdz/internal/entrypoint"
)

// NewInvoiceCommand groups the invoice counter commands.
func NewInvoiceCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Inspect or drive the daily invoice counter",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "next",
		Short: "Issue the next invoice number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(app *entrypoint.App) error {
				number, err := app.Sequencer.Next(cmd.Context())
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), map[string]string{"invoiceNumber": number}, number)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the counter without consuming a number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(app *entrypoint.App) error {
				counter, err := app.Sequencer.Current(cmd.Context())
				if err != nil {
					return err
				}
				next, err := app.Sequencer.Peek(cmd.Context())
				if err != nil {
					return err
				}
				result := map[string]any{"number": counter.Number, "lastReset": counter.LastReset, "next": next}
				return opts.print(cmd.OutOrStdout(), result,
					fmt.Sprintf("next %s (counter %d, last reset %s)", next, counter.Number, counter.LastReset))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restart today's numbering at #001",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(app *entrypoint.App) error {
				err := app.Sequencer.Reset(cmd.Context())
				app.Oplog.LogCounterReset(Username, err)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), map[string]string{"status": "reset"}, "invoice counter reset")
			})
		},
	})

	return cmd
}
