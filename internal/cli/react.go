package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/commentbox/internal/reaction"
)

func newReactCmd() *cobra.Command {
	kinds := make([]string, len(reaction.Kinds))
	for i, k := range reaction.Kinds {
		kinds[i] = string(k)
	}

	return &cobra.Command{
		Use:       "react <comment-id> <" + strings.Join(kinds, "|") + ">",
		Short:     "React to a comment",
		Long:      "Add one reaction to a comment and print its updated counters.",
		Args:      cobra.ExactArgs(2),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReact(cmd, args[0], args[1])
		},
	}
}

func runReact(cmd *cobra.Command, commentID, kind string) error {
	k, err := reaction.ParseKind(strings.ToLower(kind))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	w, err := openWidget(ctx)
	if err != nil {
		return err
	}

	set, err := w.React(ctx, commentID, k)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), set)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", commentID, formatReactions(set))
	return nil
}
