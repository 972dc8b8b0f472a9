package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/evcraddock/commentbox/internal/auth"
	"github.com/evcraddock/commentbox/internal/compose"
	"github.com/evcraddock/commentbox/internal/memstore"
	"github.com/evcraddock/commentbox/internal/mention"
	"github.com/evcraddock/commentbox/internal/user"
)

func draftSession(t *testing.T, kind compose.Kind) *compose.Session {
	t.Helper()
	store := memstore.New()
	store.SeedUsers(
		user.User{ID: "u1", DisplayName: "Anna"},
		user.User{ID: "u2", DisplayName: "Annabel"},
		user.User{ID: "u3", DisplayName: "Dave"},
	)
	dir := mention.NewDirectory(store)
	if _, err := dir.Load(context.Background()); err != nil {
		t.Fatalf("load directory: %v", err)
	}
	return compose.NewSession(kind, dir, auth.SignedIn(user.User{ID: "u1", DisplayName: "Anna"}))
}

func TestTypeDraftTrailingMention(t *testing.T) {
	s := draftSession(t, compose.KindComment)

	content := typeDraft(s, "thanks @dave")
	if !strings.HasSuffix(content, "</span> ") {
		t.Errorf("content = %q, want the mention token followed by a space", content)
	}
	if s.Triggered() {
		t.Error("selected mention left a live trigger")
	}
	if s.Content() != content {
		t.Errorf("session content = %q, want %q", s.Content(), content)
	}

	sub, err := s.Submit()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(sub.Mentions) != 1 || sub.Mentions[0] != "Dave" {
		t.Errorf("mentions = %v, want [Dave]", sub.Mentions)
	}
}

func TestTypeDraftMentionMidSentence(t *testing.T) {
	s := draftSession(t, compose.KindReply)

	typeDraft(s, "ping @anna and @dave today")
	sub, err := s.Submit()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.PlainText != "ping @Anna and @Dave today" {
		t.Errorf("plain text = %q", sub.PlainText)
	}
	if len(sub.Mentions) != 2 || sub.Mentions[0] != "u1" || sub.Mentions[1] != "u3" {
		t.Errorf("mentions = %v, want [u1 u3]", sub.Mentions)
	}
}

func TestTypeDraftUnresolvedMention(t *testing.T) {
	s := draftSession(t, compose.KindComment)

	content := typeDraft(s, "hi @ann")
	if content != "hi @ann" {
		t.Errorf("content = %q", content)
	}
	if !s.Triggered() {
		t.Error("ambiguous trigger should stay live")
	}
}
