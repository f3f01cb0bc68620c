// Package graphql is a small GraphQL-over-HTTP client with declarative
// field-selection mappers.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"omnitui/internal/httpclient"
)

// Request is the JSON body posted to the endpoint.
type Request struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	// Token, when set, is sent instead of the client's token source.
	Token string `json:"-"`
}

// Response is the decoded envelope. Data keeps each root field raw so
// selections can decode them.
type Response struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors Errors                     `json:"errors,omitempty"`
}

// TokenSource supplies the Authorization header value.
type TokenSource interface {
	Token() (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() (string, error)

func (f TokenFunc) Token() (string, error) { return f() }

// Client posts GraphQL operations to a single endpoint.
type Client struct {
	endpoint string
	http     *httpclient.Client
	tokens   TokenSource
	logger   *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTokenSource sets the credentials used for every request.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger logs each operation name and outcome.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client for endpoint.
func NewClient(endpoint string, hc *httpclient.Client, opts ...Option) *Client {
	if hc == nil {
		hc = httpclient.New(0)
	}
	c := &Client{endpoint: endpoint, http: hc}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL requests are posted to.
func (c *Client) Endpoint() string { return c.endpoint }

// Do posts req and returns the decoded envelope. A response carrying an
// "errors" array is returned as an Errors error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if req.Token != "" {
		headers["Authorization"] = req.Token
	} else if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("load credentials: %w", err)
		}
		if strings.TrimSpace(tok) != "" {
			headers["Authorization"] = tok
		}
	}

	resp, err := c.http.Post(ctx, c.endpoint, bytes.NewReader(body), headers)
	if err != nil {
		c.debugf("graphql %s: transport error: %v", req.OperationName, err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		b, _ := httpclient.ReadBody(resp, 512)
		c.debugf("graphql %s: HTTP %d", req.OperationName, resp.StatusCode)
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Errors) > 0 {
		c.debugf("graphql %s: %v", req.OperationName, out.Errors)
		return &out, out.Errors
	}
	c.debugf("graphql %s: ok", req.OperationName)
	return &out, nil
}

// Root decodes the root field name of resp with sel.
func Root[T any](resp *Response, name string, sel Selection[T]) (T, error) {
	var zero T
	if resp == nil {
		return zero, fmt.Errorf("graphql: nil response")
	}
	raw, ok := resp.Data[name]
	if !ok {
		return zero, &MissingFieldError{Type: "Query", Field: name}
	}
	return sel.Decode(raw)
}

func (c *Client) debugf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
