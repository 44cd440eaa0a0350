package rpc

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	apperrors "github.com/louisbranch/formrpc/internal/platform/errors"
)

// ErrProcedureNotFound reports a call to a name the router does not serve.
var ErrProcedureNotFound = errors.New("procedure not found")

var procedureName = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)*$`)

// Router maps procedure names to procedures and owns the middleware chains.
//
// Public procedures run behind the error middleware; authenticated ones add
// the authentication middleware inside it. Registering a procedure never
// changes either chain.
type Router struct {
	procedures map[string]Procedure
	public     []Middleware
	authed     []Middleware
}

// RouterOption configures a router.
type RouterOption func(*routerConfig)

type routerConfig struct {
	reporter *apperrors.Reporter
	inner    []Middleware
}

// WithReporter sets the reporter used by the error middleware.
func WithReporter(reporter *apperrors.Reporter) RouterOption {
	return func(cfg *routerConfig) {
		cfg.reporter = reporter
	}
}

// WithMiddleware appends middleware that runs inside the error and
// authentication middleware for every procedure.
func WithMiddleware(middleware ...Middleware) RouterOption {
	return func(cfg *routerConfig) {
		cfg.inner = append(cfg.inner, middleware...)
	}
}

// NewRouter builds a router. Names are dot-separated lowercase segments such
// as "accounts.create".
func NewRouter(procedures map[string]Procedure, opts ...RouterOption) (*Router, error) {
	var cfg routerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	registered := make(map[string]Procedure, len(procedures))
	for name, proc := range procedures {
		if !procedureName.MatchString(name) {
			return nil, fmt.Errorf("invalid procedure name %q", name)
		}
		if proc == nil {
			return nil, fmt.Errorf("procedure %q is nil", name)
		}
		registered[name] = proc
	}

	errorMW := ErrorMiddleware(cfg.reporter)
	public := append([]Middleware{errorMW}, cfg.inner...)
	authed := append([]Middleware{errorMW, AuthenticationMiddleware()}, cfg.inner...)

	return &Router{procedures: registered, public: public, authed: authed}, nil
}

// Names returns the registered procedure names in sorted order.
func (r *Router) Names() []string {
	names := make([]string, 0, len(r.procedures))
	for name := range r.procedures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the procedure registered under name.
func (r *Router) Lookup(name string) (Procedure, bool) {
	proc, ok := r.procedures[name]
	return proc, ok
}

// Invoke runs the named procedure with a raw JSON input. Failures other than
// ErrProcedureNotFound are always *errors.Error.
func (r *Router) Invoke(ctx context.Context, pc Context, name string, input []byte) (any, error) {
	proc, ok := r.procedures[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProcedureNotFound, name)
	}
	middleware := r.public
	if proc.Authenticated() {
		middleware = r.authed
	}
	call := Invocation{Procedure: name, Input: input}
	run := chain(middleware, pc, call, func(ctx context.Context) (any, error) {
		return proc.invoke(ctx, pc, input)
	})
	return run(ctx)
}

// Client returns a server-side caller bound to pc.
func (r *Router) Client(pc Context) *Client {
	return &Client{router: r, pc: pc}
}
