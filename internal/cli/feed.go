package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newFeedCmd() *cobra.Command {
	var pages int
	var withReplies bool

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the newest comments",
		Long:  "Load the comment feed, newest first. Use --pages to keep paging back through older comments.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(cmd, pages, withReplies)
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	cmd.Flags().BoolVar(&withReplies, "replies", false, "also load each comment's replies")

	return cmd
}

func runFeed(cmd *cobra.Command, pages int, withReplies bool) error {
	if pages < 1 {
		return fmt.Errorf("--pages must be at least 1, got %d", pages)
	}

	ctx := cmd.Context()
	w, err := openWidget(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	if _, err := w.Open(ctx, now); err != nil {
		return err
	}
	for i := 1; i < pages && w.Feed.HasMore(); i++ {
		if _, err := w.LoadMore(ctx, now); err != nil {
			return err
		}
	}

	if withReplies {
		for _, c := range w.Feed.Comments() {
			if _, err := w.Replies(ctx, c.ID); err != nil {
				return err
			}
		}
	}

	out := cmd.OutOrStdout()
	comments := w.Feed.Comments()
	if isJSON() {
		return printJSON(out, comments)
	}

	printCommentList(out, comments, now)
	if w.Feed.HasMore() {
		fmt.Fprintf(out, "Showing %d comments. Use --pages %d for more.\n", len(comments), pages+1)
	}
	return nil
}
