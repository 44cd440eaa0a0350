// Package identity resolves the session and user behind a request.
//
// The session is the only authentication signal: a request is authenticated
// exactly when a session is present.
package identity

import (
	"context"
	"net/http"
	"time"
)

// User is the account behind a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Session is an authenticated browser or API session.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Identity is the resolved session and user for one request. Either may be nil.
type Identity struct {
	Session *Session
	User    *User
}

// Authenticated reports whether a session is present.
func (i Identity) Authenticated() bool {
	return i.Session != nil
}

// Provider resolves the identity of an inbound request. Requests without
// credentials resolve to an empty identity and a nil error.
type Provider interface {
	Authenticate(r *http.Request) (Identity, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(r *http.Request) (Identity, error)

func (fn ProviderFunc) Authenticate(r *http.Request) (Identity, error) {
	return fn(r)
}

// Static resolves every request to the same identity.
type Static Identity

func (s Static) Authenticate(*http.Request) (Identity, error) {
	return Identity(s), nil
}

type identityContextKey struct{}

// WithIdentity stores the request identity in context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityContextKey{}, id)
}

// FromContext returns the identity stored in context, or an empty identity.
func FromContext(ctx context.Context) Identity {
	if ctx == nil {
		return Identity{}
	}
	id, _ := ctx.Value(identityContextKey{}).(Identity)
	return id
}
