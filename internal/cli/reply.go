package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/commentbox/internal/compose"
)

func newReplyCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "reply <comment-id> <text>",
		Short: "Reply to a comment",
		Long:  "Add a reply to a comment's thread. Words like @anna become mentions when they match exactly one user.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReply(cmd, args[0], strings.Join(args[1:], " "), file)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "attach a file")

	return cmd
}

func runReply(cmd *cobra.Command, commentID, text, file string) error {
	ctx := cmd.Context()
	w, err := openWidget(ctx)
	if err != nil {
		return err
	}
	if _, err := w.Directory.Load(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: mentions unavailable: %v\n", err)
	}

	draft := w.Composer(compose.KindReply)
	typeDraft(draft, text)
	sub, err := draft.Submit()
	if err != nil {
		return err
	}

	f, closeFile, err := openAttachment(file)
	if err != nil {
		return err
	}
	defer closeFile()

	r, err := w.Reply(ctx, commentID, sub, f)
	if err != nil {
		return reportPartial(cmd, err)
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), r)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reply %s added.\n", r.ID)
	if len(r.Mentions) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "  mentions: %s\n", strings.Join(r.Mentions, ", "))
	}
	return nil
}

func newRepliesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replies <comment-id>",
		Short: "Show a comment's replies",
		Long:  "List every reply to a comment, oldest first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplies(cmd, args[0])
		},
	}
}

func runReplies(cmd *cobra.Command, commentID string) error {
	ctx := cmd.Context()
	w, err := openWidget(ctx)
	if err != nil {
		return err
	}

	replies, err := w.Replies(ctx, commentID)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), replies)
	}
	printReplies(cmd.OutOrStdout(), replies, time.Now())
	return nil
}
