package rpchttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/formrpc/internal/platform/errors"
	"github.com/louisbranch/formrpc/internal/platform/httpconst"
	"github.com/louisbranch/formrpc/internal/platform/i18n"
	"github.com/louisbranch/formrpc/internal/platform/response"
)

// Client calls procedures served by Register.
type Client struct {
	baseURL    string
	httpClient *http.Client
	language   i18n.Language
	token      string
}

// ClientOption configures a client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

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

// NewClient returns a client for the procedure route at baseURL, for example
// "https://example.com/rpc".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call posts input to the named procedure and decodes the result into
// output. Failures are returned as *errors.Error.
func (c *Client) Call(ctx context.Context, name string, input any, output any) error {
	body, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("encode %s input: %w", name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ProcedurePath(name), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", name, err)
	}
	req.Header.Set(httpconst.HeaderContentType, httpconst.ContentTypeJSON)
	if c.language != "" {
		req.Header.Set(httpconst.HeaderAcceptLanguage, c.language.String())
	}
	if c.token != "" {
		req.Header.Set(httpconst.HeaderAuthorization, "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", name, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", name, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeFailure(resp.StatusCode, payload)
	}

	var result response.Response[json.RawMessage]
	if err := json.Unmarshal(payload, &result); err != nil {
		return fmt.Errorf("decode %s response: %w", name, err)
	}
	if output == nil || result.Data == nil {
		return nil
	}
	if err := json.Unmarshal(*result.Data, output); err != nil {
		return fmt.Errorf("decode %s output: %w", name, err)
	}
	return nil
}

func decodeFailure(status int, payload []byte) *apperrors.Error {
	var failure Failure
	if err := json.Unmarshal(payload, &failure); err != nil {
		return apperrors.Wrap(codeForStatus(status), http.StatusText(status), err)
	}
	code, ok := apperrors.ParseCode(string(failure.Code))
	if !ok {
		code = codeForStatus(status)
	}
	return apperrors.WithIssues(code, failure.Message, failure.Issues)
}

func codeForStatus(status int) apperrors.Code {
	switch status {
	case http.StatusNotFound:
		return apperrors.CodeNotFound
	case http.StatusConflict:
		return apperrors.CodeConflict
	case http.StatusUnauthorized:
		return apperrors.CodeUnauthorized
	case http.StatusUnprocessableEntity:
		return apperrors.CodeInputValidationError
	case http.StatusBadGateway:
		return apperrors.CodeOutputValidationError
	default:
		return apperrors.CodeInternalServerError
	}
}
