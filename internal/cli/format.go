package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/evcraddock/commentbox/internal/auth"
	"github.com/evcraddock/commentbox/internal/comment"
	"github.com/evcraddock/commentbox/internal/markup"
	"github.com/evcraddock/commentbox/internal/reaction"
	"github.com/evcraddock/commentbox/internal/reply"
	"github.com/evcraddock/commentbox/internal/user"
)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printComment prints one comment with its reactions and any loaded replies.
func printComment(w io.Writer, c comment.Comment, now time.Time) {
	author := c.Username
	if author == "" {
		author = "anonymous"
	}
	fmt.Fprintf(w, "[%s] %s (%s)\n", c.ID, author, formatAge(c.CreatedAt, now))
	fmt.Fprintf(w, "  %s\n", markup.PlainText(c.Text))
	if c.FileURL != "" {
		fmt.Fprintf(w, "  📎 %s\n", c.FileURL)
	}
	if r := formatReactions(c.Reactions); r != "" {
		fmt.Fprintf(w, "  %s\n", r)
	}
	for _, r := range c.Replies {
		fmt.Fprintf(w, "    ↳ %s: %s\n", r.Author, r.Body)
	}
}

// printCommentList prints comments in text format.
func printCommentList(w io.Writer, comments []comment.Comment, now time.Time) {
	if len(comments) == 0 {
		fmt.Fprintln(w, "No comments.")
		return
	}

	for _, c := range comments {
		printComment(w, c, now)
		fmt.Fprintln(w)
	}
}

// printReplies prints a reply thread in text format.
func printReplies(w io.Writer, replies []reply.Reply, now time.Time) {
	if len(replies) == 0 {
		fmt.Fprintln(w, "No replies.")
		return
	}

	for _, r := range replies {
		fmt.Fprintf(w, "[%s] %s (%s)\n  %s\n", r.ID, r.Author, formatAge(r.CreatedAt, now), r.Body)
		if r.FileURL != "" {
			fmt.Fprintf(w, "  📎 %s\n", r.FileURL)
		}
	}
}

// printUserTable prints users as a formatted table.
func printUserTable(w io.Writer, users []user.User) error {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tNAME\tEMAIL"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(tw, "--\t----\t-----"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}
	for _, u := range users {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", u.ID, truncate(u.Label(), 30), u.Email); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Fprintf(w, "\nTotal: %s users\n", humanize.Comma(int64(len(users))))
	return nil
}

// printKeyTable prints API keys as a formatted table.
func printKeyTable(w io.Writer, keys []auth.APIKey, now time.Time) error {
	if len(keys) == 0 {
		fmt.Fprintln(w, "No API keys.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tNAME\tPREFIX\tLAST USED"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, k := range keys {
		used := "never"
		if k.LastUsedAt != nil {
			used = formatAge(*k.LastUsedAt, now)
		}
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s…\t%s\n", k.ID, k.Name, k.KeyPrefix, used); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return tw.Flush()
}

// formatReactions renders the non-zero counters, e.g. "👍 3  ❤️ 1".
func formatReactions(s reaction.Set) string {
	var parts []string
	for _, k := range reaction.Kinds {
		if n := s.Get(k); n > 0 {
			parts = append(parts, fmt.Sprintf("%s %s", k.Emoji(), humanize.Comma(n)))
		}
	}
	return strings.Join(parts, "  ")
}

// formatAge renders t relative to now, e.g. "3 minutes ago".
func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
