package mcpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/esagent/toolset"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/esagent", "mcpclient")

// DefaultTimeout bounds a request when the caller's context carries no
// deadline of its own.
const DefaultTimeout = 30 * time.Second

// Doer performs a HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClient is the HTTP implementation of Client.
type HTTPClient struct {
	baseURL   string
	sessionID string
	timeout   time.Duration

	httpClient Doer
	tokens     TokenSource
	devtunnel  bool
}

var _ Client = (*HTTPClient)(nil)

// Option is an option for the MCP client.
type Option func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc Doer) Option {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// WithTokenSource sets the DevTunnel token source.
func WithTokenSource(ts TokenSource) Option {
	return func(c *HTTPClient) {
		c.tokens = ts
	}
}

// WithTimeout sets the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.timeout = d
	}
}

// New returns an MCP client for the given server URL.
func New(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    baseURL,
		sessionID:  uuid.NewString(),
		timeout:    DefaultTimeout,
		httpClient: http.DefaultClient,
		devtunnel:  IsDevTunnel(baseURL),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.devtunnel && c.tokens == nil {
		logger.KV(xlog.WARNING,
			"status", "devtunnel_without_token_source",
			"url", baseURL,
		)
	}
	return c
}

// SessionID returns the X-Session-ID value used by this client.
func (c *HTTPClient) SessionID() string {
	return c.sessionID
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// ListTools implements Client.ListTools.
func (c *HTTPClient) ListTools(ctx context.Context) ([]toolset.Descriptor, error) {
	result, err := c.do(ctx, "tools/list", map[string]any{})
	if err != nil {
		return nil, err
	}

	// The result is either {"tools": [...]} or a bare array.
	var wrapped struct {
		Tools []toolset.Descriptor `json:"tools"`
	}
	if err := json.Unmarshal(result, &wrapped); err == nil && wrapped.Tools != nil {
		return wrapped.Tools, nil
	}
	var list []toolset.Descriptor
	if err := json.Unmarshal(result, &list); err == nil {
		return list, nil
	}
	return nil, errors.WithMessage(ErrProtocol, "tools/list result has no tools")
}

// CallTool implements Client.CallTool.
func (c *HTTPClient) CallTool(ctx context.Context, name string, args map[string]any) (json.RawMessage, error) {
	if args == nil {
		args = map[string]any{}
	}
	return c.do(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})
}

// Close implements Client.Close.
func (c *HTTPClient) Close() error {
	if hc, ok := c.httpClient.(*http.Client); ok {
		hc.CloseIdleConnections()
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload := rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	if err := c.setHeaders(ctx, req); err != nil {
		return nil, err
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"method", method,
		"url", c.baseURL,
	)

	res, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, "request aborted")
		}
		return nil, errors.Mark(errors.Wrap(err, "request failed"), ErrConnection)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to read response"), ErrConnection)
	}
	if res.StatusCode != http.StatusOK {
		return nil, errors.Mark(
			errors.Newf("unexpected status code: %d", res.StatusCode), ErrConnection)
	}

	data := raw
	if isEventStream(res.Header.Get("Content-Type")) || looksLikeEventStream(raw) {
		data, err = parseSSE(raw)
		if err != nil {
			return nil, err
		}
	}

	var rpc rpcResponse
	if err := json.Unmarshal(data, &rpc); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "invalid JSON response"), ErrProtocol)
	}
	if rpc.Error != nil {
		return nil, errors.Mark(
			errors.Newf("code %d: %s", rpc.Error.Code, rpc.Error.Message), ErrServer)
	}
	if len(rpc.Result) == 0 {
		return nil, errors.WithMessage(ErrProtocol, "response has no result")
	}
	return rpc.Result, nil
}

func (c *HTTPClient) setHeaders(ctx context.Context, req *http.Request) error {
	req.Header.Set("Accept", "application/json, text/event-stream")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", c.sessionID)
	req.Header.Set("Cache-Control", "no-cache")

	if c.devtunnel && c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return errors.WithMessage(err, "failed to get tunnel token")
		}
		if token != "" {
			req.Header.Set("X-Tunnel-Authorization", "tunnel "+token)
		}
	}
	return nil
}
