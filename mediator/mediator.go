// Package mediator runs the bounded conversation loop: it relays the user
// question to the model, dispatches the tool calls the model requests, and
// feeds results back until the model produces a final answer or the round
// limit is hit.
package mediator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/esagent/chatmodel"
	"github.com/effective-security/esagent/invoker"
	"github.com/effective-security/esagent/metricskey"
	"github.com/effective-security/esagent/modelclient"
	"github.com/effective-security/esagent/toolset"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/esagent", "mediator")

// ErrRoundLimit is returned when the model keeps requesting tools past the
// configured round bound. The transcript up to that point is preserved.
var ErrRoundLimit = errors.New("tool call round limit exceeded")

// Mediator drives one conversation between a model and a tool invoker.
// The loop never retries model or tool calls on its own.
type Mediator struct {
	cfg   *Config
	model modelclient.Model
	inv   *invoker.Invoker
	tools []toolset.Descriptor
}

// New returns a Mediator over the given model, invoker and the filtered
// tool definitions presented to the model.
func New(model modelclient.Model, inv *invoker.Invoker, tools []toolset.Descriptor, opts ...Option) *Mediator {
	return &Mediator{
		cfg:   NewConfig(opts...),
		model: model,
		inv:   inv,
		tools: tools,
	}
}

// Name returns the agent name.
func (m *Mediator) Name() string {
	return m.cfg.Name
}

// Run processes one user question, appending every turn to the transcript.
// It returns the final answer, or an error when the model backend fails or
// the round limit is exceeded. Tool failures do not end the run: they are
// reported back to the model as turns.
func (m *Mediator) Run(ctx context.Context, conv *chatmodel.Conversation, input string) (string, error) {
	if m.cfg.CallbackHandler != nil {
		m.cfg.CallbackHandler.OnRunStart(ctx, m.cfg.Name, input)
	}

	messages := m.replay(conv)
	messages = append(messages, modelclient.UserMessage(input))
	conv.Append(chatmodel.UserTurn(input))

	rounds := 0
	for {
		out, err := m.generate(ctx, messages)
		if err != nil {
			if m.cfg.CallbackHandler != nil {
				m.cfg.CallbackHandler.OnRunError(ctx, m.cfg.Name, err)
			}
			return "", err
		}

		if !out.WantsTools() {
			conv.Append(chatmodel.AssistantTurn(out.Content))
			if m.cfg.CallbackHandler != nil {
				m.cfg.CallbackHandler.OnRunEnd(ctx, m.cfg.Name, out.Content)
			}
			return out.Content, nil
		}

		if rounds >= m.cfg.MaxRounds {
			metricskey.StatsRoundLimitExceeded.IncrCounter(1, m.cfg.Name)
			logger.ContextKV(ctx, xlog.WARNING,
				"agent", m.cfg.Name,
				"status", "round_limit_exceeded",
				"max_rounds", m.cfg.MaxRounds,
			)
			err := errors.WithMessagef(ErrRoundLimit, "agent %s: %d rounds", m.cfg.Name, rounds)
			if m.cfg.CallbackHandler != nil {
				m.cfg.CallbackHandler.OnRunError(ctx, m.cfg.Name, err)
			}
			return "", err
		}
		rounds++

		calls := normalizeCalls(out.ToolCalls)
		messages = append(messages, modelclient.AssistantToolCalls(calls...))

		results := m.dispatch(ctx, calls)
		for i, call := range calls {
			content := results[i].Content()
			messages = append(messages, modelclient.ToolMessage(call.ID, call.Name, content))
			conv.Append(chatmodel.ToolTurn(call.Name, call.ID, content, !results[i].Success()))
		}
	}
}

// replay converts prior transcript turns into wire messages so follow-up
// questions keep earlier context. Tool turns are skipped: their pairing
// with assistant tool-call messages is not reconstructible from the
// transcript, and the assistant answers already summarize them.
func (m *Mediator) replay(conv *chatmodel.Conversation) []modelclient.Message {
	messages := []modelclient.Message{
		modelclient.SystemMessage(m.cfg.Instructions),
	}
	for _, t := range conv.Turns() {
		switch t.Role {
		case chatmodel.RoleUser:
			messages = append(messages, modelclient.UserMessage(t.Content))
		case chatmodel.RoleAssistant:
			messages = append(messages, modelclient.AssistantMessage(t.Content))
		}
	}
	return messages
}

func (m *Mediator) generate(ctx context.Context, messages []modelclient.Message) (*modelclient.Output, error) {
	started := time.Now()
	out, err := m.model.Generate(ctx, messages, m.tools)
	metricskey.PerfModelCall.MeasureSince(started, m.cfg.Name, m.model.GetName())

	if err != nil {
		metricskey.StatsModelCallsFailed.IncrCounter(1, m.cfg.Name, m.model.GetName())
		logger.ContextKV(ctx, xlog.ERROR,
			"agent", m.cfg.Name,
			"model", m.model.GetName(),
			"status", "model_call_failed",
			"err", err.Error(),
		)
		return nil, errors.WithMessagef(err, "agent %s: model call failed", m.cfg.Name)
	}
	metricskey.StatsModelCallsSucceeded.IncrCounter(1, m.cfg.Name, m.model.GetName())
	return out, nil
}

// normalizeCalls fills in missing tool call IDs so results can be paired.
func normalizeCalls(calls []modelclient.ToolCall) []modelclient.ToolCall {
	out := make([]modelclient.ToolCall, len(calls))
	for i, tc := range calls {
		if tc.ID == "" {
			tc.ID = fmt.Sprintf("%s_%d", tc.Name, i)
		}
		out[i] = tc
	}
	return out
}

// dispatch runs the requested tool calls concurrently and returns results
// in call order. A call naming a tool outside the filtered registry is
// answered locally without touching the server.
func (m *Mediator) dispatch(ctx context.Context, calls []modelclient.ToolCall) []invoker.Result {
	results := make([]invoker.Result, len(calls))

	var wg sync.WaitGroup
	wg.Add(len(calls))

	for i, call := range calls {
		go func(index int, tc modelclient.ToolCall) {
			defer wg.Done()

			if !m.inv.Allows(tc.Name) {
				metricskey.StatsToolCallsRejected.IncrCounter(1, tc.Name)
				if m.cfg.CallbackHandler != nil {
					m.cfg.CallbackHandler.OnToolNotFound(ctx, tc.Name)
				}
				availableTools := strings.Join(m.inv.Names(), ", ")
				logger.ContextKV(ctx, xlog.WARNING,
					"agent", m.cfg.Name,
					"status", "tool_not_found",
					"tool_name", tc.Name,
					"available_tools", availableTools,
				)
				results[index] = invoker.Result{
					Tool: tc.Name,
					Kind: invoker.KindServer,
					Message: fmt.Sprintf("Tool `%s` not found. Please check the tool name and try again with exact match. Available tools: %s",
						tc.Name, availableTools),
				}
				return
			}

			if m.cfg.CallbackHandler != nil {
				m.cfg.CallbackHandler.OnToolStart(ctx, tc.Name, tc.Arguments)
			}
			res, err := m.inv.InvokeJSON(ctx, tc.Name, tc.Arguments)
			if err != nil {
				// Allows was checked above, a policy error here means the
				// registry changed under us. Report it as a failed call.
				res = invoker.Result{
					Tool:    tc.Name,
					Kind:    invoker.KindServer,
					Message: err.Error(),
				}
			}
			if m.cfg.CallbackHandler != nil {
				m.cfg.CallbackHandler.OnToolEnd(ctx, tc.Name, res)
			}
			results[index] = res
		}(i, call)
	}
	wg.Wait()

	return results
}
