package mcpclient

import (
	"context"
	"strings"
)

// TokenSource provides the DevTunnel access token attached to outgoing
// requests when the server URL is an Azure devtunnel. The token handshake
// itself is external; this only supplies the credential.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed token, typically sourced from the
// DEVTUNNEL_ACCESS_TOKEN environment variable by the configuration layer.
type StaticTokenSource string

// Token implements TokenSource.
func (s StaticTokenSource) Token(context.Context) (string, error) {
	return string(s), nil
}

// IsDevTunnel reports whether the URL points at an Azure devtunnel that
// may require tunnel authentication.
func IsDevTunnel(url string) bool {
	return strings.Contains(strings.ToLower(url), "devtunnels.ms")
}
