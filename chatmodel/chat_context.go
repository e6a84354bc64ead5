package chatmodel

import (
	"context"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xdb/pkg/flake"
)

// ErrInvalidChatContext is returned when the context does not carry a ChatContext.
var ErrInvalidChatContext = errors.New("invalid chat context")

// ChatContext carries the identity and metadata of one conversation.
type ChatContext interface {
	GetChatID() string
	// AppData returns immutable app data
	AppData() any
	// GetMetadata retrieves metadata by key
	GetMetadata(key string) (value any, ok bool)
	// SetMetadata sets metadata by key
	SetMetadata(key string, value any)
}

type chatContext struct {
	chatID   string
	metadata sync.Map
	appData  any
}

func (c *chatContext) GetChatID() string {
	return c.chatID
}

func (c *chatContext) AppData() any {
	return c.appData
}

func (c *chatContext) GetMetadata(key string) (value any, ok bool) {
	return c.metadata.Load(key)
}

func (c *chatContext) SetMetadata(key string, value any) {
	c.metadata.Store(key, value)
}

// NewChatContext returns a ChatContext, generating a chat ID when empty.
func NewChatContext(chatID string, appData any) ChatContext {
	return &chatContext{
		chatID:  values.StringsCoalesce(chatID, NewChatID()),
		appData: appData,
	}
}

type contextKey int

const (
	keyContext contextKey = iota
)

// WithChatContext returns a new context with ChatContext value
func WithChatContext(ctx context.Context, chatCtx ChatContext) context.Context {
	return context.WithValue(ctx, keyContext, chatCtx)
}

// GetChatContext retrieves the ChatContext from the context
func GetChatContext(ctx context.Context) ChatContext {
	if v, ok := ctx.Value(keyContext).(ChatContext); ok {
		return v
	}
	return nil
}

// GetChatID retrieves the chat ID from the provided context,
// or an error if the context does not carry a ChatContext.
func GetChatID(ctx context.Context) (string, error) {
	if v, ok := ctx.Value(keyContext).(ChatContext); ok {
		return v.GetChatID(), nil
	}
	return "", errors.WithStack(ErrInvalidChatContext)
}

// SetChatID ensures the context carries a ChatContext with the given chat ID.
func SetChatID(ctx context.Context, chatID string) (context.Context, error) {
	if existing := GetChatContext(ctx); existing != nil {
		if chatID == "" || existing.GetChatID() == chatID {
			return ctx, nil
		}
	}
	return WithChatContext(ctx, NewChatContext(chatID, nil)), nil
}

// NewChatID generates a new chat ID using the flake ID generator.
func NewChatID() string {
	return strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10)
}
