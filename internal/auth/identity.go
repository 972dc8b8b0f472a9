package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/evcraddock/commentbox/internal/apperr"
	"github.com/evcraddock/commentbox/internal/user"
)

// Identity answers "who is signed in". Writers require a signed-in user.
type Identity interface {
	Current() (user.User, bool)
	SignIn(ctx context.Context) (user.User, error)
	SignOut(ctx context.Context) error
}

// Resolver looks up the user behind the configured credentials.
type Resolver func(ctx context.Context) (user.User, error)

// Session is an Identity that signs in by resolving credentials once and
// keeps the user until SignOut.
type Session struct {
	resolve Resolver

	mu   sync.RWMutex
	user *user.User
}

// NewSession creates a signed-out session backed by resolve.
func NewSession(resolve Resolver) *Session {
	return &Session{resolve: resolve}
}

// SignedIn returns a session already signed in as u.
func SignedIn(u user.User) *Session {
	s := NewSession(func(context.Context) (user.User, error) { return u, nil })
	s.user = &u
	return s
}

// Current returns the signed-in user, if any.
func (s *Session) Current() (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return user.User{}, false
	}
	return *s.user, true
}

// SignIn resolves the credentials and records the user.
func (s *Session) SignIn(ctx context.Context) (user.User, error) {
	if s.resolve == nil {
		return user.User{}, apperr.AuthRequired("sign in")
	}
	u, err := s.resolve(ctx)
	if err != nil {
		return user.User{}, fmt.Errorf("signing in: %w", err)
	}

	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()

	return u, nil
}

// SignOut forgets the signed-in user.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	return nil
}

// Require returns the signed-in user or an AuthRequiredError for op.
func Require(id Identity, op string) (user.User, error) {
	if id == nil {
		return user.User{}, apperr.AuthRequired(op)
	}
	u, ok := id.Current()
	if !ok {
		return user.User{}, apperr.AuthRequired(op)
	}
	return u, nil
}
