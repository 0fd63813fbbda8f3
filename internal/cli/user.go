package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/posdz/internal/entities"
	"github.com/mrlokans/posdz/internal/entrypoint"
)

// NewUserCommand groups the account commands.
func NewUserCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage operator accounts",
	}

	var password, role string
	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an operator account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return fmt.Errorf("--password is required")
			}
			return opts.withApp(cmd.Context(), func(app *entrypoint.App) error {
				user, err := app.Auth.CreateUser(cmd.Context(), args[0], password, entities.UserRole(role))
				if err != nil {
					return err
				}
				app.Oplog.LogAsync(entities.LogEntry{
					Action:      entities.LogActionUser,
					Description: "Created user " + user.Username,
					Username:    Username,
					EntityType:  "user",
					EntityID:    &user.ID,
					Status:      entities.LogStatusSuccess,
				})
				result := map[string]any{"id": user.ID, "username": user.Username, "role": user.Role}
				return opts.print(cmd.OutOrStdout(), result,
					fmt.Sprintf("created %s (%s)", user.Username, user.Role))
			})
		},
	}
	add.Flags().StringVar(&password, "password", "", "account password")
	add.Flags().StringVar(&role, "role", string(entities.UserRoleCashier), "admin or cashier")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List operator accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(app *entrypoint.App) error {
				users, err := app.Auth.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				type row struct {
					ID       uint              `json:"id"`
					Username string            `json:"username"`
					Role     entities.UserRole `json:"role"`
				}
				rows := make([]row, len(users))
				text := ""
				for i, u := range users {
					rows[i] = row{ID: u.ID, Username: u.Username, Role: u.Role}
					if i > 0 {
						text += "\n"
					}
					text += fmt.Sprintf("%d\t%s\t%s", u.ID, u.Username, u.Role)
				}
				return opts.print(cmd.OutOrStdout(), rows, text)
			})
		},
	})

	return cmd
}
