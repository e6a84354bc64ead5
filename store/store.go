// Package store persists conversation transcripts keyed by the chat ID
// carried in the context.
package store

import (
	"context"
	"time"

	"github.com/effective-security/esagent/chatmodel"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/esagent", "store")

// TranscriptStore persists conversation turns. The chat ID is taken from
// the context, see chatmodel.WithChatContext.
type TranscriptStore interface {
	Turns(ctx context.Context) []chatmodel.Turn
	Add(ctx context.Context, turns ...chatmodel.Turn) error
	Reset(ctx context.Context) error
}

// ChatInfo is the metadata kept per chat.
type ChatInfo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
