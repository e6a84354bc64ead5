// Package mcpclient implements a client for a remote MCP tool server:
// JSON-RPC 2.0 requests over HTTP POST, with responses delivered either as
// plain JSON or as a Server-Sent Events stream.
package mcpclient

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/esagent/toolset"
)

var (
	// ErrConnection is returned when the tool server is unreachable or
	// replies with a non-success HTTP status.
	ErrConnection = errors.New("tool server unreachable")
	// ErrProtocol is returned when the response does not conform to the
	// expected schema.
	ErrProtocol = errors.New("malformed tool server response")
	// ErrServer is returned when the server replies with a JSON-RPC error.
	ErrServer = errors.New("tool server error")
)

// Client exposes the two logical operations of the tool server boundary.
// Neither operation retries internally; the caller decides retry policy.
type Client interface {
	// ListTools fetches the set of callable tools. Idempotent.
	ListTools(ctx context.Context) ([]toolset.Descriptor, error)
	// CallTool invokes a tool by name; the payload is returned unmodified.
	CallTool(ctx context.Context, name string, args map[string]any) (json.RawMessage, error)
	// Close releases the underlying connection. Double-close is a no-op.
	Close() error
}
