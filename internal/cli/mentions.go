package cli

import (
	"github.com/spf13/cobra"
)

func newMentionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mentions <query>",
		Short: "Find users to mention",
		Long:  "List the users whose display name contains the query, ignoring case. Users without a name match on their email.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMentions(cmd, args[0])
		},
	}
}

func runMentions(cmd *cobra.Command, query string) error {
	ctx := cmd.Context()
	w, err := openWidget(ctx)
	if err != nil {
		return err
	}
	if _, err := w.Directory.Load(ctx); err != nil {
		return err
	}

	users := w.Directory.Query(query)
	if isJSON() {
		return printJSON(cmd.OutOrStdout(), users)
	}
	return printUserTable(cmd.OutOrStdout(), users)
}
