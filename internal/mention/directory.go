package mention

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"

	"github.com/evcraddock/commentbox/internal/apperr"
	"github.com/evcraddock/commentbox/internal/user"
)

// UserSource lists every user that can be mentioned.
type UserSource interface {
	ListUsers(ctx context.Context) ([]user.User, error)
}

// Directory is the in-memory user index answering mention suggestions.
// It is loaded once per session and never refreshed.
type Directory struct {
	src   UserSource
	group singleflight.Group

	mu     sync.RWMutex
	users  []user.User
	loaded bool
}

// NewDirectory creates an empty directory backed by src.
func NewDirectory(src UserSource) *Directory {
	return &Directory{src: src}
}

// Load fetches the full user list. Concurrent callers share one fetch and a
// loaded directory is served from memory. On failure the directory stays
// empty; suggestions simply never appear.
func (d *Directory) Load(ctx context.Context) ([]user.User, error) {
	d.mu.RLock()
	if d.loaded {
		users := slices.Clone(d.users)
		d.mu.RUnlock()
		return users, nil
	}
	d.mu.RUnlock()

	v, err, _ := d.group.Do("users", func() (interface{}, error) {
		users, err := d.src.ListUsers(ctx)
		if err != nil {
			return nil, err
		}

		d.mu.Lock()
		d.users = slices.Clone(users)
		d.loaded = true
		d.mu.Unlock()

		slog.Debug("mention directory loaded", "users", len(users))
		return users, nil
	})
	if err != nil {
		slog.Warn("loading mention directory", "error", err)
		return nil, apperr.Remote("load users", err)
	}
	return slices.Clone(v.([]user.User)), nil
}

// Query returns every user whose display name contains p, ignoring case, in
// directory order. An empty p returns nil.
func (d *Directory) Query(p string) []user.User {
	if p == "" {
		return nil
	}

	fold := cases.Fold()
	needle := fold.String(p)

	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []user.User
	for _, u := range d.users {
		if strings.Contains(fold.String(u.Label()), needle) {
			out = append(out, u)
		}
	}
	return out
}

// Users returns the loaded user list.
func (d *Directory) Users() []user.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.users)
}

// Loaded reports whether a load has succeeded.
func (d *Directory) Loaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loaded
}
