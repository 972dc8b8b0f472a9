package reply

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evcraddock/commentbox/internal/apperr"
	"github.com/evcraddock/commentbox/internal/auth"
	"github.com/evcraddock/commentbox/internal/db"
	"github.com/evcraddock/commentbox/internal/user"
)

var bob = user.User{ID: "u-bob", DisplayName: "Bob"}

type fakeSource struct {
	mu      sync.Mutex
	replies map[string][]Reply
	listErr error
	addErr  error
	writes  int
}

func newFakeSource() *fakeSource {
	return &fakeSource{replies: map[string][]Reply{}}
}

func (f *fakeSource) ListReplies(ctx context.Context, commentID string) ([]Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]Reply(nil), f.replies[commentID]...), nil
}

func (f *fakeSource) CreateReply(ctx context.Context, r Reply) (Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return Reply{}, f.addErr
	}
	f.writes++
	r.ID = "r" + string(rune('0'+f.writes))
	r.CreatedAt = time.Now()
	f.replies[r.CommentID] = append(f.replies[r.CommentID], r)
	return r, nil
}

func TestAppendEmptyBodyRejected(t *testing.T) {
	src := newFakeSource()
	th := NewThreads(src, auth.SignedIn(bob))

	for _, body := range []string{"", "   ", "\n\t"} {
		_, err := th.Append(context.Background(), "c1", Draft{Body: body})
		assert.ErrorIs(t, err, apperr.ErrValidation, "body %q", body)
	}
	assert.Zero(t, src.writes)
	assert.Empty(t, th.Replies("c1"))
}

func TestAppendAppearsAtTail(t *testing.T) {
	src := newFakeSource()
	src.replies["c1"] = []Reply{{ID: "r0", Body: "first", CommentID: "c1"}}
	th := NewThreads(src, auth.SignedIn(bob))

	_, err := th.Fetch(context.Background(), "c1")
	require.NoError(t, err)

	got, err := th.Append(context.Background(), "c1", Draft{Body: "  hi  "})
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Body)
	assert.Equal(t, bob.ID, got.Author)
	assert.Equal(t, "c1", got.CommentID)

	local := th.Replies("c1")
	require.Len(t, local, 2)
	assert.Equal(t, "hi", local[1].Body)

	remote, err := th.Fetch(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, remote, 2)
	assert.Equal(t, "hi", remote[len(remote)-1].Body)
}

func TestAppendLengthBoundary(t *testing.T) {
	src := newFakeSource()
	th := NewThreads(src, auth.SignedIn(bob))

	_, err := th.Append(context.Background(), "c1", Draft{Body: strings.Repeat("é", MaxLength)})
	require.NoError(t, err)

	_, err = th.Append(context.Background(), "c1", Draft{Body: strings.Repeat("é", MaxLength+1)})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 1, src.writes)
}

func TestAppendRequiresIdentity(t *testing.T) {
	src := newFakeSource()
	th := NewThreads(src, auth.NewSession(nil))

	_, err := th.Append(context.Background(), "c1", Draft{Body: "hi"})
	assert.ErrorIs(t, err, apperr.ErrAuthRequired)
	assert.Zero(t, src.writes)
}

func TestAppendRemoteFailureLeavesListUntouched(t *testing.T) {
	src := newFakeSource()
	src.addErr = errors.New("connection reset")
	th := NewThreads(src, auth.SignedIn(bob))

	_, err := th.Append(context.Background(), "c1", Draft{Body: "hi"})
	assert.ErrorIs(t, err, apperr.ErrRemoteUnavailable)
	assert.Empty(t, th.Replies("c1"))
}

func TestThreadsAreIndependent(t *testing.T) {
	th := NewThreads(newFakeSource(), auth.SignedIn(bob))

	_, err := th.Append(context.Background(), "c1", Draft{Body: "one"})
	require.NoError(t, err)
	_, err = th.Append(context.Background(), "c2", Draft{Body: "two"})
	require.NoError(t, err)

	assert.Len(t, th.Replies("c1"), 1)
	assert.Len(t, th.Replies("c2"), 1)
	assert.Empty(t, th.Replies("c3"))
}

func TestFetchFailure(t *testing.T) {
	src := newFakeSource()
	src.listErr = errors.New("timeout")
	th := NewThreads(src, auth.SignedIn(bob))

	_, err := th.Fetch(context.Background(), "c1")
	assert.ErrorIs(t, err, apperr.ErrRemoteUnavailable)
}

func testRepo(t *testing.T) (*Repository, *sql.DB) {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return NewRepository(d), d
}

func insertComment(t *testing.T, d *sql.DB, id string) {
	t.Helper()
	_, err := d.Exec(
		"INSERT INTO comments (id, text, user_id, created_at) VALUES (?, ?, ?, ?)",
		id, "parent", "u1", time.Now().UnixNano(),
	)
	require.NoError(t, err)
}

func TestRepositoryCreateAndList(t *testing.T) {
	repo, d := testRepo(t)
	insertComment(t, d, "c1")
	ctx := context.Background()

	for _, body := range []string{"first", "second", "third"} {
		_, err := repo.CreateReply(ctx, Reply{CommentID: "c1", Body: body, Author: "u1", Mentions: []string{"u2"}})
		require.NoError(t, err)
	}

	got, err := repo.ListReplies(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Body)
	assert.Equal(t, "third", got[2].Body)
	assert.Equal(t, []string{"u2"}, got[0].Mentions)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestRepositoryListEmpty(t *testing.T) {
	repo, _ := testRepo(t)

	got, err := repo.ListReplies(context.Background(), "nope")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRepositoryMissingComment(t *testing.T) {
	repo, _ := testRepo(t)

	_, err := repo.CreateReply(context.Background(), Reply{CommentID: "ghost", Body: "hi", Author: "u1"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRepositoryRejectsEmptyBody(t *testing.T) {
	repo, d := testRepo(t)
	insertComment(t, d, "c1")

	_, err := repo.CreateReply(context.Background(), Reply{CommentID: "c1", Body: "", Author: "u1"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
