package cli

import (
	"context"
	"errors"
	"fmt"
	"html"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/evcraddock/commentbox/internal/auth"
	"github.com/evcraddock/commentbox/internal/compose"
	"github.com/evcraddock/commentbox/internal/upload"
	"github.com/evcraddock/commentbox/internal/user"
	"github.com/evcraddock/commentbox/internal/widget"
)

var errNotLoggedIn = errors.New("not logged in (run 'cb login' or set CB_API_KEY)")

// openWidget builds a widget against the configured server and signs in with
// the stored API key.
func openWidget(ctx context.Context) (*widget.Widget, error) {
	if getAPIKey() == "" {
		return nil, errNotLoggedIn
	}

	c := newAPIClient()
	session := auth.NewSession(c.Me)
	if _, err := session.SignIn(ctx); err != nil {
		return nil, err
	}

	return widget.New(widget.Deps{
		Store:    c,
		Uploader: c,
		Identity: session,
		PageSize: getPageSize(),
	}), nil
}

// typeDraft feeds text into s word by word, as if typed, and resolves each
// "@name" word through the session's suggestions. A word resolves when exactly
// one user matches or one user's label matches it exactly; otherwise it
// stays literal text.
//
// A selected mention keeps the space SelectSuggestion adds after it, so the
// draft never ends in a live trigger for a name that was already chosen.
func typeDraft(s *compose.Session, text string) string {
	var content string
	for _, word := range strings.Fields(text) {
		if content != "" && !strings.HasSuffix(content, " ") {
			content += " "
		}
		content += html.EscapeString(word)

		sugg := s.OnEdit(content)
		if !sugg.Visible || !strings.HasPrefix(word, "@") {
			continue
		}
		if u, ok := pickSuggestion(sugg.Users, word[1:]); ok {
			content = s.SelectSuggestion(u)
		}
	}
	return content
}

func pickSuggestion(users []user.User, query string) (user.User, bool) {
	if len(users) == 1 {
		return users[0], true
	}
	for _, u := range users {
		if strings.EqualFold(u.Label(), query) {
			return u, true
		}
	}
	return user.User{}, false
}

// openAttachment opens path for upload. The returned close func is never nil.
func openAttachment(path string) (*upload.File, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, func() {}, fmt.Errorf("opening attachment: %w", err)
	}
	closeFn := func() {
		if cerr := f.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "warning: closing attachment: %v\n", cerr)
		}
	}

	return &upload.File{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Body:        f,
	}, closeFn, nil
}
