// Package cli defines the cobra command tree for commentbox.
package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/commentbox/internal/client"
	"github.com/evcraddock/commentbox/internal/db"
)

var (
	flagFormat string
	flagDB     string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cb",
		Short:         "Nested comments with mentions, reactions and replies",
		Long:          "A comment box you can run from the terminal. Serve the API, post comments with @mentions and attachments, react, and reply in threads.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path for server commands (default: $CB_DB or ~/.config/cb/commentbox.db)")

	root.AddCommand(
		newFeedCmd(),
		newPostCmd(),
		newReactCmd(),
		newReplyCmd(),
		newRepliesCmd(),
		newMentionsCmd(),
		newServeCmd(),
		newUsersCmd(),
		newKeysCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// openDB opens the SQLite database using the --db flag, $CB_DB or the
// default path. Used by the server-side commands.
func openDB() (*sql.DB, error) {
	path := flagDB
	if path == "" {
		path = os.Getenv("CB_DB")
	}
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return db.Open(path)
}

// newAPIClient creates an HTTP client for the commentbox API.
func newAPIClient(opts ...client.Option) *client.Client {
	return client.New(getServerURL(), getAPIKey(), opts...)
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
