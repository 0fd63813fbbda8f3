package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/mrlokans/posdz/internal/config"
	"github.com/mrlokans/posdz/internal/entrypoint"
)

// Username stamped on log entries written from the command line.
const Username = "cli"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DBPath string
	Format string // "json" | "text"

	version string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command. Without a subcommand it serves
// the HTTP bridge.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{version: version}

	cmd := &cobra.Command{
		Use:     "posdz",
		Short:   "posdz - point of sale store",
		Long:    "Local storage and HTTP bridge for a retail point of sale: catalog, checkout, invoice numbers, debts and backups.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "database file (default $DATABASE_PATH or "+config.DefaultDatabasePath+")")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewInvoiceCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig reads the environment and applies the --db override.
func (o *RootOptions) loadConfig() *config.Config {
	cfg := config.NewConfig()
	if o.DBPath != "" {
		cfg.Database.Path = o.DBPath
	}
	return cfg
}

// withApp opens the store for one command and closes it afterwards.
func (o *RootOptions) withApp(ctx context.Context, fn func(app *entrypoint.App) error) error {
	app, err := entrypoint.Open(ctx, o.loadConfig())
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

// print writes v as JSON in json mode and text otherwise.
func (o *RootOptions) print(w io.Writer, v any, text string) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
