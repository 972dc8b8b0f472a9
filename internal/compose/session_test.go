package compose

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evcraddock/commentbox/internal/apperr"
	"github.com/evcraddock/commentbox/internal/auth"
	"github.com/evcraddock/commentbox/internal/memstore"
	"github.com/evcraddock/commentbox/internal/mention"
	"github.com/evcraddock/commentbox/internal/user"
)

var (
	anna   = user.User{ID: "u1", DisplayName: "Anna"}
	banana = user.User{ID: "u2", DisplayName: "Banana"}
	bob    = user.User{ID: "u3", DisplayName: "Bob"}
)

func loadedDirectory(t *testing.T) *mention.Directory {
	t.Helper()
	store := memstore.New()
	store.SeedUsers(anna, banana, bob)
	dir := mention.NewDirectory(store)
	_, err := dir.Load(context.Background())
	require.NoError(t, err)
	return dir
}

func TestOnEditSuggestions(t *testing.T) {
	s := NewSession(KindComment, loadedDirectory(t), auth.SignedIn(bob))

	got := s.OnEdit("hello @an")
	assert.True(t, got.Visible)
	require.Len(t, got.Users, 2)
	assert.Equal(t, "Anna", got.Users[0].DisplayName)
	assert.Equal(t, "Banana", got.Users[1].DisplayName)
	assert.True(t, s.Triggered())

	got = s.OnEdit("hello @zz")
	assert.False(t, got.Visible)
	assert.True(t, s.Triggered(), "trigger matched but nobody did")

	got = s.OnEdit("hello there")
	assert.False(t, got.Visible)
	assert.False(t, s.Triggered())
}

func TestOnEditMatchesPlainText(t *testing.T) {
	s := NewSession(KindComment, loadedDirectory(t), auth.SignedIn(bob))

	got := s.OnEdit("<div>hi <b>@Bo</b></div>")
	assert.True(t, got.Visible)
	require.Len(t, got.Users, 1)
	assert.Equal(t, bob.ID, got.Users[0].ID)
}

func TestOnEditWithoutDirectory(t *testing.T) {
	s := NewSession(KindComment, nil, auth.SignedIn(bob))

	got := s.OnEdit("@an")
	assert.False(t, got.Visible)
	assert.True(t, s.Triggered())
}

func TestSelectSuggestionComment(t *testing.T) {
	s := NewSession(KindComment, loadedDirectory(t), auth.SignedIn(bob))

	s.OnEdit("hi @An")
	content := s.SelectSuggestion(anna)
	assert.Equal(t, "hi "+mention.CommentToken(anna)+" ", content)
	assert.False(t, s.Triggered())

	sub, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, []string{"Anna"}, sub.Mentions)
	assert.Equal(t, "hi @Anna ", sub.PlainText)
	assert.Empty(t, s.Content())
}

func TestSelectSuggestionReply(t *testing.T) {
	s := NewSession(KindReply, loadedDirectory(t), auth.SignedIn(bob))

	s.OnEdit("@Ba")
	s.SelectSuggestion(banana)
	s.OnEdit(s.Content() + "and @An")
	s.SelectSuggestion(anna)

	sub, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u1"}, sub.Mentions)
	assert.Equal(t, KindReply, sub.Kind)
}

func TestSubmitLengthBoundary(t *testing.T) {
	s := NewSession(KindComment, nil, auth.SignedIn(bob))

	s.OnEdit(strings.Repeat("a", MaxLength+1))
	_, err := s.Submit()
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.NotEmpty(t, s.Content(), "rejected draft is kept")

	s.OnEdit(strings.Repeat("a", MaxLength))
	sub, err := s.Submit()
	require.NoError(t, err)
	assert.Len(t, sub.PlainText, MaxLength)
}

func TestSubmitReplyTrimsBody(t *testing.T) {
	s := NewSession(KindReply, nil, auth.SignedIn(bob))

	s.OnEdit("   ")
	_, err := s.Submit()
	assert.ErrorIs(t, err, apperr.ErrValidation, "blank reply")

	// trailing whitespace does not count toward the limit
	s.OnEdit(strings.Repeat("a", MaxLength) + "  ")
	sub, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", MaxLength), sub.PlainText)

	s.OnEdit("  hi there ")
	sub, err = s.Submit()
	require.NoError(t, err)
	assert.Equal(t, "hi there", sub.PlainText)
}

func TestSubmitCountsVisibleCharacters(t *testing.T) {
	s := NewSession(KindComment, nil, auth.SignedIn(bob))

	// markup does not count toward the limit
	s.OnEdit("<b>" + strings.Repeat("ü", MaxLength) + "</b>")
	_, err := s.Submit()
	assert.NoError(t, err)
}

func TestSubmitEmpty(t *testing.T) {
	s := NewSession(KindComment, nil, auth.SignedIn(bob))

	for _, raw := range []string{"", "<div></div>", "<br>"} {
		s.OnEdit(raw)
		_, err := s.Submit()
		assert.ErrorIs(t, err, apperr.ErrValidation, "raw %q", raw)
	}
}

func TestSubmitRequiresIdentity(t *testing.T) {
	s := NewSession(KindComment, nil, auth.NewSession(nil))

	s.OnEdit("hello")
	_, err := s.Submit()
	assert.ErrorIs(t, err, apperr.ErrAuthRequired)
	assert.Equal(t, "hello", s.Content())
}

func TestSubmitSanitizes(t *testing.T) {
	s := NewSession(KindComment, nil, auth.SignedIn(bob))

	s.OnEdit(`hi<img src=x onerror=alert(1)>`)
	sub, err := s.Submit()
	require.NoError(t, err)
	assert.NotContains(t, sub.Content, "img")
}

func TestReset(t *testing.T) {
	s := NewSession(KindComment, loadedDirectory(t), auth.SignedIn(bob))

	s.OnEdit("@an")
	s.Reset()
	assert.Empty(t, s.Content())
	assert.False(t, s.Triggered())
}
