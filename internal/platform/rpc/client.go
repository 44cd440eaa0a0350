package rpc

import (
	"context"
	"encoding/json"
	"fmt"
)

// Caller invokes procedures by name. Input is encoded as JSON and the result
// is decoded into output, which may be nil when the result is not needed.
type Caller interface {
	Call(ctx context.Context, name string, input any, output any) error
}

// Call invokes name on caller and decodes the result into O.
func Call[O any](ctx context.Context, caller Caller, name string, input any) (O, error) {
	var out O
	if err := caller.Call(ctx, name, input, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Client calls procedures in-process with a fixed context. Payloads take the
// same JSON path they take over the wire.
type Client struct {
	router *Router
	pc     Context
}

// Context returns the procedure context the client is bound to.
func (c *Client) Context() Context {
	return c.pc
}

func (c *Client) Call(ctx context.Context, name string, input any, output any) error {
	raw, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("encode %s input: %w", name, err)
	}
	if input == nil {
		raw = nil
	}
	result, err := c.router.Invoke(ctx, c.pc, name, raw)
	if err != nil {
		return err
	}
	if output == nil {
		return nil
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode %s output: %w", name, err)
	}
	if err := json.Unmarshal(encoded, output); err != nil {
		return fmt.Errorf("decode %s output: %w", name, err)
	}
	return nil
}

type clientContextKey struct{}

// WithClient stores a server-side caller in context.
func WithClient(ctx context.Context, caller Caller) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, clientContextKey{}, caller)
}

// ClientFromContext returns the server-side caller stored in context.
func ClientFromContext(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return nil, false
	}
	caller, ok := ctx.Value(clientContextKey{}).(Caller)
	return caller, ok && caller != nil
}
