package cli

import (
	"errors"
	"testing"
)

func TestArgValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"post needs text", []string{"post"}},
		{"reply needs id and text", []string{"reply", "c1"}},
		{"replies needs id", []string{"replies"}},
		{"replies takes one id", []string{"replies", "a", "b"}},
		{"react needs two args", []string{"react", "c1"}},
		{"react takes two args", []string{"react", "c1", "like", "extra"}},
		{"mentions needs query", []string{"mentions"}},
		{"feed takes no args", []string{"feed", "extra"}},
		{"serve takes no args", []string{"serve", "extra"}},
		{"users add needs email", []string{"users", "add"}},
		{"keys needs user", []string{"keys", "list"}},
		{"keys revoke needs numeric id", []string{"keys", "revoke", "abc", "--user", "u1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			if _, err := executeCommand(tt.args...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestReactRejectsUnknownKind(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CB_API_KEY", "")

	_, err := executeCommand("react", "c1", "wow")
	if err == nil {
		t.Fatal("expected error for unknown reaction")
	}
	if errors.Is(err, errNotLoggedIn) {
		t.Error("kind should be checked before login")
	}
}

func TestFeedRejectsZeroPages(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if _, err := executeCommand("feed", "--pages", "0"); err == nil {
		t.Fatal("expected error for --pages 0")
	}
}

func TestCommandsRequireLogin(t *testing.T) {
	for _, args := range [][]string{
		{"feed"},
		{"post", "hello"},
		{"react", "c1", "like"},
		{"reply", "c1", "hi"},
		{"replies", "c1"},
		{"mentions", "an"},
	} {
		t.Run(args[0], func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			t.Setenv("CB_API_KEY", "")

			_, err := executeCommand(args...)
			if !errors.Is(err, errNotLoggedIn) {
				t.Errorf("err = %v, want errNotLoggedIn", err)
			}
		})
	}
}
