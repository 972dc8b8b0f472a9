package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/commentbox/internal/apperr"
	"github.com/evcraddock/commentbox/internal/compose"
)

func newPostCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "post <text>",
		Short: "Post a comment",
		Long:  "Post a comment to the feed. Words like @anna become mentions when they match exactly one user.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPost(cmd, strings.Join(args, " "), file)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "attach a file")

	return cmd
}

func runPost(cmd *cobra.Command, text, file string) error {
	ctx := cmd.Context()
	w, err := openWidget(ctx)
	if err != nil {
		return err
	}
	if _, err := w.Directory.Load(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: mentions unavailable: %v\n", err)
	}

	draft := w.Composer(compose.KindComment)
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

	c, err := w.PostComment(ctx, sub, f)
	if err != nil {
		return reportPartial(cmd, err)
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), c)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Comment %s posted.\n", c.ID)
	printComment(cmd.OutOrStdout(), c, time.Now())
	return nil
}

// reportPartial adds the orphaned upload to the error message so the user
// can clean it up or retry with it.
func reportPartial(cmd *cobra.Command, err error) error {
	var pw *apperr.PartialWriteError
	if errors.As(err, &pw) {
		fmt.Fprintf(cmd.ErrOrStderr(), "attachment was uploaded to %s\n", pw.URL)
	}
	return err
}
