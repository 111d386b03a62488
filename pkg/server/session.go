package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrNoSession is returned when a request carries no authenticated session
var ErrNoSession = errors.New("no session")

// Session identifies the signed-in shopper
type Session struct {
	UserID string
}

// SessionVerifier extracts the session established by the hosted auth flow.
// The service never authenticates credentials itself.
type SessionVerifier interface {
	Verify(r *http.Request) (Session, error)
}

// HeaderVerifier trusts a user id header set by the auth proxy in front of
// the service
type HeaderVerifier struct {
	Header string
}

// Verify reads the user id header
func (v HeaderVerifier) Verify(r *http.Request) (Session, error) {
	header := v.Header
	if header == "" {
		header = "X-User-ID"
	}
	id := strings.TrimSpace(r.Header.Get(header))
	if id == "" {
		return Session{}, ErrNoSession
	}
	return Session{UserID: id}, nil
}

type sessionKey struct{}

// WithSession stores s in ctx
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session stored by RequireSession
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
