// Package session ties the pieces together: it connects to the MCP
// server, discovers and filters the tools, and runs questions through the
// conversation loop until closed.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/esagent/chatmodel"
	"github.com/effective-security/esagent/config"
	"github.com/effective-security/esagent/invoker"
	"github.com/effective-security/esagent/mcpclient"
	"github.com/effective-security/esagent/mediator"
	"github.com/effective-security/esagent/metricskey"
	"github.com/effective-security/esagent/modelclient"
	"github.com/effective-security/esagent/store"
	"github.com/effective-security/esagent/toolset"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/esagent", "session")

// ErrClosed is returned by Ask after Close.
var ErrClosed = errors.New("session is closed")

// Session is one conversation with the agent. It owns the MCP connection
// and releases it on Close. Sessions are not safe for concurrent Ask calls.
type Session struct {
	cfg    *config.Config
	chatID string

	client      mcpclient.Client
	med         *mediator.Mediator
	conv        *chatmodel.Conversation
	registry    *toolset.Registry
	transcripts store.TranscriptStore

	closeOnce sync.Once
	closeErr  error
	closed    bool
}

type options struct {
	client      mcpclient.Client
	model       modelclient.Model
	transcripts store.TranscriptStore
	callback    mediator.Callback
	chatID      string
}

// Option overrides how the session is assembled.
type Option func(*options)

// WithClient supplies a connected MCP client instead of dialing one.
func WithClient(client mcpclient.Client) Option {
	return func(o *options) { o.client = client }
}

// WithModel supplies the model backend.
func WithModel(model modelclient.Model) Option {
	return func(o *options) { o.model = model }
}

// WithTranscriptStore persists turns as the conversation progresses.
func WithTranscriptStore(s store.TranscriptStore) Option {
	return func(o *options) { o.transcripts = s }
}

// WithCallback sets the conversation loop callback.
func WithCallback(cb mediator.Callback) Option {
	return func(o *options) { o.callback = cb }
}

// WithChatID resumes or names the chat instead of generating an ID.
func WithChatID(chatID string) Option {
	return func(o *options) { o.chatID = chatID }
}

// Open connects to the MCP server, discovers the tools and prepares the
// conversation loop. The returned session must be closed by the caller.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Session, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	client := o.client
	if client == nil {
		var copts []mcpclient.Option
		if cfg.MCP.DevTunnelAccessToken != "" {
			copts = append(copts, mcpclient.WithTokenSource(mcpclient.StaticTokenSource(cfg.MCP.DevTunnelAccessToken)))
		}
		if cfg.MCP.TimeoutSeconds > 0 {
			copts = append(copts, mcpclient.WithTimeout(time.Duration(cfg.MCP.TimeoutSeconds)*time.Second))
		}
		client = mcpclient.New(cfg.MCP.ServerURL, copts...)
	}

	list, err := client.ListTools(ctx)
	if err != nil {
		metricskey.StatsSessionsFailed.IncrCounter(1, cfg.Agent.Name)
		_ = client.Close()
		return nil, errors.WithMessage(err, "failed to list tools")
	}

	filtered := toolset.Filter(list, cfg.FilterPolicy())
	registry := toolset.NewRegistry(filtered)
	if registry.Len() == 0 {
		logger.ContextKV(ctx, xlog.WARNING,
			"agent", cfg.Agent.Name,
			"status", "no_tools_available",
			"discovered", len(list),
		)
	} else {
		logger.ContextKV(ctx, xlog.INFO,
			"agent", cfg.Agent.Name,
			"status", "tools_discovered",
			"discovered", len(list),
			"available", registry.Names(),
		)
	}

	var iopts []invoker.Option
	if cfg.MCP.TimeoutSeconds > 0 {
		iopts = append(iopts, invoker.WithTimeout(time.Duration(cfg.MCP.TimeoutSeconds)*time.Second))
	}
	inv := invoker.New(client, registry, iopts...)

	model := o.model
	if model == nil {
		model, err = modelclient.New(modelclient.ProviderAzure, cfg.Azure.ModelDeploymentName,
			modelclient.WithBaseURL(cfg.Azure.ProjectEndpoint),
			modelclient.WithAPIVersion(cfg.Azure.APIVersion),
			modelclient.WithToken(cfg.Azure.Token),
		)
		if err != nil {
			metricskey.StatsSessionsFailed.IncrCounter(1, cfg.Agent.Name)
			_ = client.Close()
			return nil, err
		}
	}

	chatID := o.chatID
	if chatID == "" {
		chatID = chatmodel.NewChatID()
	}

	med := mediator.New(model, inv, registry.Descriptors(),
		mediator.WithName(cfg.Agent.Name),
		mediator.WithInstructions(cfg.Agent.Instructions),
		mediator.WithMaxRounds(cfg.Agent.MaxToolRounds),
		mediator.WithCallback(o.callback),
	)

	metricskey.StatsSessionsOpened.IncrCounter(1, cfg.Agent.Name)
	return &Session{
		cfg:         cfg,
		chatID:      chatID,
		client:      client,
		med:         med,
		conv:        chatmodel.NewConversation(chatID),
		registry:    registry,
		transcripts: o.transcripts,
	}, nil
}

// ChatID returns the chat ID of the session.
func (s *Session) ChatID() string {
	return s.chatID
}

// Tools returns the names of the callable tools, in discovery order.
func (s *Session) Tools() []string {
	return s.registry.Names()
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []chatmodel.Turn {
	return s.conv.Turns()
}

// Ask runs one question through the conversation loop and returns the
// final answer. Tool failures are folded into the transcript; model
// failures and the round limit end the run with an error.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	if s.closed {
		return "", errors.WithStack(ErrClosed)
	}

	ctx, err := chatmodel.SetChatID(ctx, s.chatID)
	if err != nil {
		return "", err
	}

	before := s.conv.Len()
	started := time.Now()
	answer, err := s.med.Run(ctx, s.conv, question)
	metricskey.PerfSessionRun.MeasureSince(started, s.cfg.Agent.Name)

	s.persist(ctx, before)
	if err != nil {
		metricskey.StatsSessionsFailed.IncrCounter(1, s.cfg.Agent.Name)
		return "", err
	}
	return answer, nil
}

// persist appends the turns added since the given offset to the
// transcript store, when one is configured.
func (s *Session) persist(ctx context.Context, from int) {
	if s.transcripts == nil {
		return
	}
	turns := s.conv.Turns()
	if from >= len(turns) {
		return
	}
	if err := s.transcripts.Add(ctx, turns[from:]...); err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"agent", s.cfg.Agent.Name,
			"status", "transcript_store_failed",
			"err", err.Error(),
		)
	}
}

// Close releases the MCP connection. It is safe to call multiple times,
// subsequent calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed = true
		s.closeErr = s.client.Close()
		logger.KV(xlog.DEBUG,
			"agent", s.cfg.Agent.Name,
			"chat_id", s.chatID,
			"status", "session_closed",
		)
	})
	return s.closeErr
}
