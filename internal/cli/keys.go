package cli

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/commentbox/internal/auth"
	"github.com/evcraddock/commentbox/internal/user"
)

func newKeysCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys (server side)",
		Long:  "Create, list and revoke a user's API keys directly in the server's database.",
	}

	cmd.PersistentFlags().StringVar(&owner, "user", "", "owning user's email or ID (required)")
	_ = cmd.MarkPersistentFlagRequired("user")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create an API key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withKeyStore(cmd, owner, func(store *auth.APIKeyStore, u *user.User) error {
					raw, key, err := store.Create(cmd.Context(), args[0], u.ID)
					if err != nil {
						return err
					}
					if isJSON() {
						return printJSON(cmd.OutOrStdout(), map[string]interface{}{"id": key.ID, "name": key.Name, "key": raw})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "API key %q created for %s. It is shown only once:\n\n  %s\n", key.Name, u.Label(), raw)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List API keys",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withKeyStore(cmd, owner, func(store *auth.APIKeyStore, u *user.User) error {
					keys, err := store.List(cmd.Context(), u.ID)
					if err != nil {
						return err
					}
					if isJSON() {
						if keys == nil {
							keys = []auth.APIKey{}
						}
						return printJSON(cmd.OutOrStdout(), keys)
					}
					return printKeyTable(cmd.OutOrStdout(), keys, time.Now())
				})
			},
		},
		&cobra.Command{
			Use:   "revoke <id>",
			Short: "Revoke an API key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid key ID: %s", args[0])
				}
				return withKeyStore(cmd, owner, func(store *auth.APIKeyStore, u *user.User) error {
					if err := store.Delete(cmd.Context(), id, u.ID); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "API key %d revoked.\n", id)
					return nil
				})
			},
		},
	)

	return cmd
}

func withKeyStore(cmd *cobra.Command, owner string, fn func(*auth.APIKeyStore, *user.User) error) error {
	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	u, err := findUser(cmd.Context(), database, owner)
	if err != nil {
		return err
	}
	return fn(auth.NewAPIKeyStore(database), u)
}

// findUser resolves owner as an email when it contains "@", else as an ID.
func findUser(ctx context.Context, database *sql.DB, owner string) (*user.User, error) {
	users := user.NewRepository(database)
	if strings.Contains(owner, "@") {
		return users.GetByEmail(ctx, owner)
	}
	return users.Get(ctx, owner)
}
