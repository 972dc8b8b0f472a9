package mention

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evcraddock/commentbox/internal/apperr"
	"github.com/evcraddock/commentbox/internal/user"
)

func TestTrigger(t *testing.T) {
	tests := []struct {
		name      string
		plain     string
		wantQuery string
		wantOK    bool
	}{
		{"bare at", "hello @", "", true},
		{"partial name", "hello @an", "an", true},
		{"at start", "@Bob", "Bob", true},
		{"trailing space", "hello @an ", "", false},
		{"no at", "hello", "", false},
		{"at in middle", "@an and more", "", false},
		{"digits and underscore", "cc @user_2", "user_2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := Trigger(tt.plain)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantQuery, q)
		})
	}
}

func TestReplaceTrigger(t *testing.T) {
	token := CommentToken(user.User{ID: "u1", DisplayName: "Anna"})

	got, ok := ReplaceTrigger("hi @An", token)
	require.True(t, ok)
	assert.Equal(t, "hi "+token+" ", got)

	got, ok = ReplaceTrigger("<div>hi @An</div>", token)
	require.True(t, ok)
	assert.Equal(t, "<div>hi "+token+" </div>", got)

	got, ok = ReplaceTrigger("no trigger", token)
	assert.False(t, ok)
	assert.Equal(t, "no trigger", got)
}

func TestTokens(t *testing.T) {
	u := user.User{ID: "u42", DisplayName: "Ann"}

	assert.Equal(t,
		`<span contenteditable="false" data-name="Ann" class="mention">@Ann</span>`,
		CommentToken(u))
	assert.Equal(t,
		`<span contenteditable="false" class="mention" data-id="u42" data-name="Ann">@Ann</span>`,
		ReplyToken(u))
}

func TestTokenEscapesAttributes(t *testing.T) {
	u := user.User{ID: "u1", DisplayName: `Ann "The" <B>`}
	tok := CommentToken(u)

	assert.NotContains(t, tok, `"The"`)
	assert.Equal(t, []string{`Ann "The" <B>`}, ExtractNames(tok))
}

func TestExtractNames(t *testing.T) {
	markup := `x <span data-name="Ann">@Ann</span> y <span data-name="Bo">@Bo</span> <span data-name="Ann">@Ann</span> <span class="mention">@Nobody</span>`

	got := ExtractNames(markup)
	if diff := cmp.Diff([]string{"Ann", "Bo", "Ann"}, got); diff != "" {
		t.Errorf("ExtractNames mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractNamesEmpty(t *testing.T) {
	assert.Empty(t, ExtractNames("plain text with @at but no token"))
}

func TestExtractIDs(t *testing.T) {
	a := user.User{ID: "u1", DisplayName: "Ann"}
	b := user.User{ID: "u2", DisplayName: "Bo"}
	markup := "hey " + ReplyToken(a) + " and " + ReplyToken(b) + " again " + ReplyToken(a)

	got := ExtractIDs(markup)
	if diff := cmp.Diff([]string{"u1", "u2", "u1"}, got); diff != "" {
		t.Errorf("ExtractIDs mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractRulesAreSeparate(t *testing.T) {
	// comment tokens carry no data-id
	markup := CommentToken(user.User{ID: "u1", DisplayName: "Ann"})
	assert.Empty(t, ExtractIDs(markup))
	assert.Equal(t, []string{"Ann"}, ExtractNames(markup))
}

type fakeSource struct {
	users []user.User
	err   error
	calls atomic.Int32
	delay time.Duration
}

func (f *fakeSource) ListUsers(ctx context.Context) ([]user.User, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.users, nil
}

func people(names ...string) []user.User {
	out := make([]user.User, len(names))
	for i, n := range names {
		out[i] = user.User{ID: "u" + n, DisplayName: n}
	}
	return out
}

func TestDirectoryQuery(t *testing.T) {
	d := NewDirectory(&fakeSource{users: people("Anna", "Banana", "Bob")})
	_, err := d.Load(context.Background())
	require.NoError(t, err)

	got := d.Query("an")
	require.Len(t, got, 2)
	assert.Equal(t, "Anna", got[0].DisplayName)
	assert.Equal(t, "Banana", got[1].DisplayName)

	assert.Len(t, d.Query("BOB"), 1)
	assert.Empty(t, d.Query("zed"))
	assert.Nil(t, d.Query(""))
}

func TestDirectoryLoadOnce(t *testing.T) {
	src := &fakeSource{users: people("Anna"), delay: 20 * time.Millisecond}
	d := NewDirectory(src)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Load(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, err := d.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), src.calls.Load())
	assert.True(t, d.Loaded())
	assert.Len(t, d.Users(), 1)
}

func TestDirectoryLoadReturnsCopy(t *testing.T) {
	d := NewDirectory(&fakeSource{users: people("Anna", "Bob")})

	first, err := d.Load(context.Background())
	require.NoError(t, err)
	first[0].DisplayName = "Mallory"

	again, err := d.Load(context.Background())
	require.NoError(t, err)
	again[1].DisplayName = "Eve"

	assert.Equal(t, "Anna", d.Users()[0].DisplayName)
	assert.Equal(t, "Bob", d.Users()[1].DisplayName)
	assert.Empty(t, d.Query("mallory"))
}

func TestDirectoryLoadFailure(t *testing.T) {
	d := NewDirectory(&fakeSource{err: errors.New("connection refused")})

	_, err := d.Load(context.Background())
	assert.ErrorIs(t, err, apperr.ErrRemoteUnavailable)
	assert.False(t, d.Loaded())
	assert.Empty(t, d.Users())
	assert.Empty(t, d.Query("an"))
}
