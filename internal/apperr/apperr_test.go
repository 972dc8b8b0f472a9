package apperr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxonomyMatchesSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"validation", Invalid("body", "must not be empty"), ErrValidation},
		{"auth", AuthRequired("post comment"), ErrAuthRequired},
		{"remote", Remote("list comments", errors.New("connection refused")), ErrRemoteUnavailable},
		{"partial", &PartialWriteError{URL: "http://x/files/a", Err: errors.New("boom")}, ErrPartialWrite},
		{"wrapped validation", fmt.Errorf("posting: %w", Invalid("text", "too long")), ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.want)
		})
	}
}

func TestRemoteKeepsClassifiedErrors(t *testing.T) {
	orig := Invalid("body", "must not be empty")
	assert.Same(t, orig, Remote("append reply", orig))

	notFound := fmt.Errorf("comment abc: %w", ErrNotFound)
	assert.Equal(t, notFound, Remote("get comment", notFound))

	assert.NoError(t, Remote("noop", nil))
}

func TestRemoteTimeout(t *testing.T) {
	err := Remote("load more", fmt.Errorf("fetching: %w", context.DeadlineExceeded))

	var rerr *RemoteUnavailableError
	require.True(t, errors.As(err, &rerr))
	assert.True(t, rerr.Timeout())
	assert.Contains(t, err.Error(), "timed out")
}

func TestPartialWriteUnwrapsCause(t *testing.T) {
	cause := Remote("create reply", errors.New("503"))
	err := &PartialWriteError{URL: "http://x/files/a", Err: cause}

	assert.ErrorIs(t, err, ErrPartialWrite)
	assert.ErrorIs(t, err, ErrRemoteUnavailable)
}

func TestValidate(t *testing.T) {
	type draft struct {
		Body string `validate:"min=1,max=5"`
		Kind string `validate:"omitempty,oneof=a b"`
	}

	tests := []struct {
		name    string
		in      draft
		wantErr string
	}{
		{"ok", draft{Body: "hey"}, ""},
		{"empty", draft{Body: ""}, "body: must not be empty"},
		{"too long", draft{Body: "abcdef"}, "body: must be at most 5 characters"},
		{"runes not bytes", draft{Body: "ééééé"}, ""},
		{"bad kind", draft{Body: "x", Kind: "c"}, "kind: must be one of: a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrValidation)
			assert.True(t, strings.HasPrefix(err.Error(), tt.wantErr), "got %q", err.Error())
		})
	}
}
