// Package rpc defines typed procedures, the middleware chain that normalizes
// their failures, and the router that exposes them to transports and to
// server-side callers.
package rpc

import (
	"context"
	"net/http"

	"github.com/louisbranch/formrpc/internal/platform/i18n"
	"github.com/louisbranch/formrpc/internal/platform/identity"
)

// Locals is the per-request data a host collects before invoking procedures.
type Locals struct {
	// Repositories is the opaque storage handle procedures read from.
	Repositories any
	Identity     identity.Identity
	Translator   i18n.Translator
}

// LocalsFromRequest collects locals from a request whose context was prepared
// by the identity and language middleware.
func LocalsFromRequest(r *http.Request, repositories any) Locals {
	ctx := context.Background()
	if r != nil {
		ctx = r.Context()
	}
	return Locals{
		Repositories: repositories,
		Identity:     identity.FromContext(ctx),
		Translator:   i18n.FromContext(ctx),
	}
}

// Context is the immutable per-request procedure context.
type Context struct {
	repositories any
	session      *identity.Session
	user         *identity.User
	translator   i18n.Translator
}

// NewContext builds a procedure context from request locals. The session and
// user are copied so later changes to locals never reach the context.
func NewContext(locals Locals) Context {
	pc := Context{
		repositories: locals.Repositories,
		translator:   locals.Translator,
	}
	if locals.Identity.Session != nil {
		session := *locals.Identity.Session
		pc.session = &session
	}
	if locals.Identity.User != nil {
		user := *locals.Identity.User
		pc.user = &user
	}
	return pc
}

// Repositories returns the storage handle supplied by the host.
func (c Context) Repositories() any {
	return c.repositories
}

// Session returns a copy of the session, or nil for anonymous requests.
func (c Context) Session() *identity.Session {
	if c.session == nil {
		return nil
	}
	session := *c.session
	return &session
}

// User returns a copy of the user, or nil when none was resolved.
func (c Context) User() *identity.User {
	if c.user == nil {
		return nil
	}
	user := *c.user
	return &user
}

// Authenticated reports whether the request carries a session.
func (c Context) Authenticated() bool {
	return c.session != nil
}

// Translator renders messages in the request language.
func (c Context) Translator() i18n.Translator {
	return c.translator
}
