package modelclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/esagent/chatmodel"
	"github.com/effective-security/esagent/toolset"
	"github.com/effective-security/xlog"
	"github.com/openai/openai-go/v3/packages/param"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/esagent", "modelclient")

const (
	// DefaultBaseURL is the OpenAI platform endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultMaxTokens bounds the completion size when not configured.
	DefaultMaxTokens = 16384
)

// ErrEmptyResponse is returned when the backend returns no choices.
var ErrEmptyResponse = errors.New("empty response")

// Doer performs a HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a chat-completions client for OpenAI and Azure deployments.
type Client struct {
	model    string
	provider ProviderType

	token        string
	baseURL      string
	organization string
	apiVersion   string
	httpClient   Doer

	maxTokens   param.Opt[int64]
	temperature param.Opt[float64]
}

var _ Model = (*Client)(nil)

// Option is an option for the model client.
type Option func(*Client)

// WithToken sets the API key or bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithBaseURL sets the endpoint. For Azure this is the resource endpoint,
// e.g. https://myproject.services.ai.azure.com.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithAPIVersion sets the Azure api-version query parameter.
func WithAPIVersion(v string) Option {
	return func(c *Client) { c.apiVersion = v }
}

// WithOrganization sets the OpenAI organization header.
func WithOrganization(org string) Option {
	return func(c *Client) { c.organization = org }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc Doer) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxTokens sets the completion token bound.
func WithMaxTokens(n int64) Option {
	return func(c *Client) { c.maxTokens = param.NewOpt(n) }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = param.NewOpt(t) }
}

// New returns a model client for the given provider and model deployment.
func New(provider ProviderType, model string, opts ...Option) (*Client, error) {
	c := &Client{
		model:      model,
		provider:   provider,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		maxTokens:  param.NewOpt(int64(DefaultMaxTokens)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.model == "" {
		return nil, errors.New("model deployment name is required")
	}
	if IsAzure(provider) && c.apiVersion == "" {
		return nil, errors.New("api version is required for Azure providers")
	}
	return c, nil
}

// GetName implements Model.GetName.
func (c *Client) GetName() string {
	return c.model
}

// GetProviderType implements Model.GetProviderType.
func (c *Client) GetProviderType() ProviderType {
	return c.provider
}

// IsAzure reports whether the provider is an Azure variant.
func IsAzure(provider ProviderType) bool {
	return provider == ProviderAzure || provider == ProviderAzureAD
}

// Generate implements Model.Generate.
func (c *Client) Generate(ctx context.Context, messages []Message, tools []toolset.Descriptor) (*Output, error) {
	req := chatRequest{
		Model:       c.model,
		Messages:    make([]chatMessage, 0, len(messages)),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, toChatMessage(m))
	}
	for _, d := range tools {
		schema := d.InputSchema
		if len(schema) == 0 {
			schema = json.RawMessage(`{"type":"object","properties":{},"required":[]}`)
		}
		req.Tools = append(req.Tools, chatTool{
			Type: "function",
			Function: chatFunctionDef{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  schema,
			},
		})
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = "auto"
	}

	resp, err := c.createChat(ctx, &req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.WithStack(ErrEmptyResponse)
	}

	msg := resp.Choices[0].Message
	out := &Output{
		Content: msg.Content,
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func toChatMessage(m Message) chatMessage {
	cm := chatMessage{
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
		Name:       m.ToolName,
	}
	switch m.Role {
	case chatmodel.RoleSystem:
		cm.Role = "system"
	case chatmodel.RoleAssistant:
		cm.Role = "assistant"
	case chatmodel.RoleTool:
		cm.Role = "tool"
	default:
		cm.Role = "user"
	}
	for _, tc := range m.ToolCalls {
		cm.ToolCalls = append(cm.ToolCalls, chatToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: chatFunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	return cm
}

func (c *Client) createChat(ctx context.Context, payload *chatRequest) (*chatResponse, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal payload")
	}

	u := c.buildURL("/chat/completions", payload.Model)
	logger.ContextKV(ctx, xlog.DEBUG, "url", u, "model", payload.Model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	c.setHeaders(req)

	r, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer func() { _ = r.Body.Close() }()

	if r.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("API returned unexpected status code: %d", r.StatusCode)
		if r.StatusCode == http.StatusNotFound {
			msg += ": url: " + u
		}
		var errResp errorMessage
		if err := json.NewDecoder(r.Body).Decode(&errResp); err != nil {
			return nil, errors.New(msg)
		}
		return nil, errors.Errorf("%s: %s", msg, errResp.Error.Message)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return &resp, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.provider == ProviderOpenAI || IsAzure(c.provider) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else {
		req.Header.Set("api-key", c.token)
	}
	if c.organization != "" {
		req.Header.Set("OpenAI-Organization", c.organization)
	}
}

func (c *Client) buildURL(suffix string, model string) string {
	if IsAzure(c.provider) {
		// azure example url:
		// /openai/deployments/{model}/chat/completions?api-version={api_version}
		return fmt.Sprintf("%s/openai/deployments/%s%s?api-version=%s",
			c.baseURL, model, suffix, c.apiVersion)
	}
	return fmt.Sprintf("%s%s", c.baseURL, suffix)
}
