package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/commentbox/internal/user"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage the user directory (server side)",
		Long:  "Add, list and remove users directly in the server's database.",
	}

	cmd.AddCommand(newUsersAddCmd(), newUsersListCmd(), newUsersRemoveCmd())
	return cmd
}

func newUsersAddCmd() *cobra.Command {
	var name, photo string

	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Add a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(database)

			u, err := user.NewRepository(database).Add(cmd.Context(), user.User{
				Email:       args[0],
				DisplayName: name,
				PhotoURL:    photo,
			})
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), u)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s added (%s).\n", u.Label(), u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&photo, "photo", "", "photo URL")

	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(database)

			users, err := user.NewRepository(database).List(cmd.Context())
			if err != nil {
				return err
			}

			if isJSON() {
				if users == nil {
					users = []user.User{}
				}
				return printJSON(cmd.OutOrStdout(), users)
			}
			return printUserTable(cmd.OutOrStdout(), users)
		},
	}
}

func newUsersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a user and their API keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(database)

			if err := user.NewRepository(database).Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s removed.\n", args[0])
			return nil
		},
	}
}
