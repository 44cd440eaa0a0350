package rpcgrpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	apperrors "github.com/louisbranch/formrpc/internal/platform/errors"
	"github.com/louisbranch/formrpc/internal/platform/i18n"
)

// Client calls procedures served by Server over a gRPC connection.
type Client struct {
	conn     grpc.ClientConnInterface
	language i18n.Language
	token    string
}

// ClientOption configures a client.
type ClientOption func(*Client)

// WithLanguage sends the language preference with every call.
func WithLanguage(lang i18n.Language) ClientOption {
	return func(c *Client) {
		c.language = lang
	}
}

// WithToken sends a bearer session token with every call.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// NewClient wraps conn.
func NewClient(conn grpc.ClientConnInterface, opts ...ClientOption) *Client {
	c := &Client{conn: conn}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call invokes the named procedure. Failures are returned as *errors.Error
// decoded from the call status.
func (c *Client) Call(ctx context.Context, name string, input any, output any) error {
	in := &Frame{}
	if input != nil {
		data, err := json.Marshal(input)
		if err != nil {
			return fmt.Errorf("encode %s input: %w", name, err)
		}
		in.Data = data
	}

	var pairs []string
	if c.language != "" {
		pairs = append(pairs, MetadataAcceptLanguage, c.language.String())
	}
	if c.token != "" {
		pairs = append(pairs, MetadataAuthorization, "Bearer "+c.token)
	}
	if len(pairs) > 0 {
		ctx = metadata.AppendToOutgoingContext(ctx, pairs...)
	}

	out := &Frame{}
	if err := c.conn.Invoke(ctx, MethodPath(name), in, out, grpc.CallContentSubtype(CodecName)); err != nil {
		return apperrors.FromGRPCError(err)
	}
	if output == nil || len(out.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(out.Data, output); err != nil {
		return fmt.Errorf("decode %s output: %w", name, err)
	}
	return nil
}
