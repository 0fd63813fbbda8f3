package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mrlokans/posdz/internal/entrypoint"
)

// NewBackupCommand groups the backup commands.
func NewBackupCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or restore backup files",
	}

	var dir string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write a backup file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.loadConfig()
			if dir != "" {
				cfg.Backup.Dir = dir
			}
			app, err := entrypoint.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			path, res, err := app.Backup.Run(cmd.Context(), Username)
			if err != nil {
				return err
			}
			result := map[string]any{"file": path, "result": res}
			return opts.print(cmd.OutOrStdout(), result,
				fmt.Sprintf("wrote %s (%d records)", path, res.Total))
		},
	}
	export.Flags().StringVar(&dir, "dir", "", "backup directory (default $BACKUP_DIR)")
	cmd.AddCommand(export)

	cmd.AddCommand(&cobra.Command{
		Use:   "restore <file>",
		Short: "Write every record of a backup file back into the store",
		Long: `Restore puts every record of the file. Records with the same key are
replaced; records missing from the file are left alone. Restore stops at the
first record that cannot be written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			return opts.withApp(cmd.Context(), func(app *entrypoint.App) error {
				res, err := app.Backup.RestoreFile(cmd.Context(), path, Username)
				if err != nil {
					if res != nil {
						return fmt.Errorf("restored %d records before failing: %w", res.Total, err)
					}
					return err
				}
				return opts.print(cmd.OutOrStdout(), res,
					fmt.Sprintf("restored %d records from %s", res.Total, filepath.Base(path)))
			})
		},
	})

	return cmd
}
