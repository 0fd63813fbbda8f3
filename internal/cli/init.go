package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/posdz/internal/entrypoint"
)

// NewInitCommand creates the init command. Opening the store creates the
// schema and seeds the ADMIN account and default settings; running it again
// only fills in what is missing.
func NewInitCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create and seed the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(app *entrypoint.App) error {
				users, err := app.DB.Users().Count(cmd.Context())
				if err != nil {
					return err
				}
				settings, err := app.DB.Settings().Count(cmd.Context())
				if err != nil {
					return err
				}

				result := map[string]any{
					"path":     app.Config.Database.Path,
					"users":    users,
					"settings": settings,
				}
				return opts.print(cmd.OutOrStdout(), result,
					fmt.Sprintf("database ready at %s (%d users, %d settings)", app.Config.Database.Path, users, settings))
			})
		},
	}
}
