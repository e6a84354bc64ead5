package mcpclient

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseSSE(t *testing.T) {
	body := []byte("event: message\ndata: {\"jsonrpc\":\"2.0\"}\n\n")
	data, err := parseSSE(body)
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0"}`, string(data))

	// first data line wins
	body = []byte("data: {\"a\":1}\ndata: {\"b\":2}\n")
	data, err = parseSSE(body)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	_, err = parseSSE([]byte("event: ping\n\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProtocol))
}

func Test_looksLikeEventStream(t *testing.T) {
	assert.True(t, looksLikeEventStream([]byte("data: {}")))
	assert.True(t, looksLikeEventStream([]byte("\nevent: message\ndata: {}")))
	assert.False(t, looksLikeEventStream([]byte(`{"jsonrpc":"2.0"}`)))
}
