// Package invoker dispatches tool calls to the MCP server on behalf of the
// conversation loop. Failures during tool execution are data, not
// control-flow errors: the loop reports them back to the model as turns.
package invoker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/esagent/mcpclient"
	"github.com/effective-security/esagent/metricskey"
	"github.com/effective-security/esagent/toolset"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/esagent", "invoker")

// ErrPolicy is returned when a call references a tool absent from the
// filtered registry. It is a contract violation, always fatal to the call,
// and produces zero network calls.
var ErrPolicy = errors.New("tool not permitted by policy")

// Kind tags the outcome of a tool invocation.
type Kind string

const (
	// KindOK marks a successful invocation.
	KindOK Kind = "ok"
	// KindTimeout marks a call that exceeded its time bound.
	KindTimeout Kind = "timeout"
	// KindConnection marks an unreachable tool server.
	KindConnection Kind = "connection_error"
	// KindProtocol marks a malformed server response.
	KindProtocol Kind = "protocol_error"
	// KindServer marks a failure reported by the server itself.
	KindServer Kind = "server_error"
)

// Result is the normalized outcome of one tool invocation.
// The payload shape is server-defined and passed through unmodified.
type Result struct {
	Tool    string          `json:"tool"`
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Success reports whether the invocation succeeded.
func (r Result) Success() bool {
	return r.Kind == KindOK
}

// Content renders the result for a conversation turn.
func (r Result) Content() string {
	if r.Success() {
		return string(r.Payload)
	}
	return "tool call failed: " + r.Message
}

// Invoker dispatches calls for tools present in a filtered registry
// snapshot. It never auto-retries: tool semantics are opaque, a call that
// already reached the server must not be repeated.
type Invoker struct {
	client   mcpclient.Client
	registry *toolset.Registry
	timeout  time.Duration
}

// Option is an option for the Invoker.
type Option func(*Invoker)

// WithTimeout sets the per-call time bound.
func WithTimeout(d time.Duration) Option {
	return func(v *Invoker) {
		v.timeout = d
	}
}

// New returns an Invoker bound to the filtered registry snapshot.
func New(client mcpclient.Client, registry *toolset.Registry, opts ...Option) *Invoker {
	v := &Invoker{
		client:   client,
		registry: registry,
		timeout:  mcpclient.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Allows reports whether the tool is present in the filtered registry.
func (v *Invoker) Allows(name string) bool {
	return v.registry.Has(name)
}

// Names returns the names of the callable tools, in registry order.
func (v *Invoker) Names() []string {
	return v.registry.Names()
}

// Invoke performs one tool call. The only error returned is ErrPolicy;
// every remote failure is reported as a Result.
func (v *Invoker) Invoke(ctx context.Context, name string, args map[string]any) (Result, error) {
	if !v.registry.Has(name) {
		metricskey.StatsToolCallsRejected.IncrCounter(1, name)
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "tool_rejected_by_policy",
			"tool", name,
			"available_tools", v.registry.Names(),
		)
		return Result{}, errors.WithMessagef(ErrPolicy, "tool %q", name)
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	started := time.Now()
	payload, err := v.client.CallTool(ctx, name, args)
	metricskey.PerfToolCall.MeasureSince(started, name)

	if err != nil {
		res := Result{
			Tool:    name,
			Kind:    classify(err),
			Message: err.Error(),
		}
		metricskey.StatsToolCallsFailed.IncrCounter(1, name)
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_call_failed",
			"tool", name,
			"kind", res.Kind,
			"err", err.Error(),
		)
		return res, nil
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, name)
	return Result{
		Tool:    name,
		Kind:    KindOK,
		Payload: payload,
	}, nil
}

// InvokeJSON performs one tool call with model-produced JSON arguments.
// Malformed argument JSON falls back to empty arguments, matching the
// lenient handling the model-facing loop needs.
func (v *Invoker) InvokeJSON(ctx context.Context, name string, argsJSON string) (Result, error) {
	args := map[string]any{}
	if argsJSON != "" {
		if err := ljson.Unmarshal([]byte(argsJSON), &args); err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "invalid_tool_arguments",
				"tool", name,
				"err", err.Error(),
			)
			args = map[string]any{}
		}
	}
	return v.Invoke(ctx, name, args)
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, mcpclient.ErrConnection):
		return KindConnection
	case errors.Is(err, mcpclient.ErrProtocol):
		return KindProtocol
	default:
		return KindServer
	}
}
