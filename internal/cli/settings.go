package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mrlokans/posdz/internal/entities"
	"github.com/mrlokans/posdz/internal/entrypoint"
	"github.com/mrlokans/posdz/internal/settingsstore"
)

// NewSettingsCommand groups the settings commands.
func NewSettingsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and write shop settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every known setting and where its value comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(app *entrypoint.App) error {
				infos, err := app.Settings.Describe(cmd.Context())
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return opts.print(cmd.OutOrStdout(), infos, "")
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
				for _, info := range infos {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Key, info.Value, info.Source)
				}
				return tw.Flush()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			return opts.withApp(cmd.Context(), func(app *entrypoint.App) error {
				value, found, err := app.SettingsRepo.GetSetting(cmd.Context(), key)
				if err != nil {
					return err
				}
				source := "database"
				if !found {
					def, known := entities.DefaultSettingValue(key)
					if !known {
						return fmt.Errorf("setting %q not found", key)
					}
					value, source = def, "default"
				}
				return opts.print(cmd.OutOrStdout(),
					settingsstore.SettingInfo{Key: key, Value: value, Source: source}, value)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if strings.TrimSpace(key) == "" {
				return fmt.Errorf("setting key must not be empty")
			}
			return opts.withApp(cmd.Context(), func(app *entrypoint.App) error {
				if err := app.SettingsRepo.SetSetting(cmd.Context(), key, value); err != nil {
					return err
				}
				app.Oplog.LogSettings(Username, []string{key})
				return opts.print(cmd.OutOrStdout(),
					settingsstore.SettingInfo{Key: key, Value: value, Source: "database"},
					fmt.Sprintf("%s = %s", key, value))
			})
		},
	})

	return cmd
}
