package mcpclient_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/esagent/mcpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rpcResult(t *testing.T, body []byte) (string, map[string]any) {
	t.Helper()
	var req struct {
		JSONRPC string         `json:"jsonrpc"`
		ID      string         `json:"id"`
		Method  string         `json:"method"`
		Params  map[string]any `json:"params"`
	}
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, "2.0", req.JSONRPC)
	assert.NotEmpty(t, req.ID)
	return req.Method, req.Params
}

func Test_ListTools_SSE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json, text/event-stream", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("X-Session-ID"))

		body, _ := io.ReadAll(r.Body)
		method, _ := rpcResult(t, body)
		assert.Equal(t, "tools/list", method)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message\n")
		fmt.Fprint(w, `data: {"jsonrpc":"2.0","id":"1","result":{"tools":[{"name":"search","description":"Search ES"},{"name":"esql","description":"ES|QL"}]}}`)
		fmt.Fprint(w, "\n\n")
	}))
	defer srv.Close()

	client := mcpclient.New(srv.URL)
	defer func() { _ = client.Close() }()

	tools, err := client.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "search", tools[0].Name)
	assert.Equal(t, "esql", tools[1].Name)
}

func Test_ListTools_BareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":"1","result":[{"name":"get_shards"}]}`)
	}))
	defer srv.Close()

	client := mcpclient.New(srv.URL)
	tools, err := client.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "get_shards", tools[0].Name)
}

func Test_CallTool_Passthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		method, params := rpcResult(t, body)
		assert.Equal(t, "tools/call", method)
		assert.Equal(t, "search", params["name"])

		args, ok := params["arguments"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "galleries in Manhattan", args["query"])

		fmt.Fprint(w, `{"jsonrpc":"2.0","id":"1","result":{"hits":{"total":3}}}`)
	}))
	defer srv.Close()

	client := mcpclient.New(srv.URL)
	payload, err := client.CallTool(context.Background(), "search", map[string]any{
		"query": "galleries in Manhattan",
		"size":  3,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"hits":{"total":3}}`, string(payload))
}

func Test_CallTool_NilArguments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, params := rpcResult(t, body)
		// nil arguments are sent as an empty object
		args, ok := params["arguments"].(map[string]any)
		require.True(t, ok)
		assert.Empty(t, args)
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":"1","result":{}}`)
	}))
	defer srv.Close()

	client := mcpclient.New(srv.URL)
	_, err := client.CallTool(context.Background(), "get_shards", nil)
	require.NoError(t, err)
}

func Test_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":"1","error":{"code":-32601,"message":"method not found"}}`)
	}))
	defer srv.Close()

	client := mcpclient.New(srv.URL)
	_, err := client.CallTool(context.Background(), "nope", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, mcpclient.ErrServer))
	assert.Contains(t, err.Error(), "method not found")
}

func Test_ProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json at all`)
	}))
	defer srv.Close()

	client := mcpclient.New(srv.URL)
	_, err := client.ListTools(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, mcpclient.ErrProtocol))
}

func Test_ConnectionError_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := mcpclient.New(srv.URL)
	_, err := client.ListTools(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, mcpclient.ErrConnection))
}

func Test_ConnectionError_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // shut down before use

	client := mcpclient.New(srv.URL)
	_, err := client.ListTools(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, mcpclient.ErrConnection))
}

func Test_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := mcpclient.New(srv.URL, mcpclient.WithTimeout(20*time.Millisecond))
	_, err := client.ListTools(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

type captureDoer struct {
	req *http.Request
}

func (d *captureDoer) Do(req *http.Request) (*http.Response, error) {
	d.req = req
	rec := httptest.NewRecorder()
	fmt.Fprint(rec, `{"jsonrpc":"2.0","id":"1","result":{}}`)
	return rec.Result(), nil
}

func Test_DevTunnelAuthorization(t *testing.T) {
	doer := &captureDoer{}
	client := mcpclient.New("https://example.devtunnels.ms/mcp",
		mcpclient.WithHTTPClient(doer),
		mcpclient.WithTokenSource(mcpclient.StaticTokenSource("tok123")),
	)

	_, err := client.CallTool(context.Background(), "search", nil)
	require.NoError(t, err)
	require.NotNil(t, doer.req)
	assert.Equal(t, "tunnel tok123", doer.req.Header.Get("X-Tunnel-Authorization"))
	assert.Equal(t, client.SessionID(), doer.req.Header.Get("X-Session-ID"))
}

func Test_NoTunnelHeaderForPlainURL(t *testing.T) {
	doer := &captureDoer{}
	client := mcpclient.New("http://localhost:8080/mcp",
		mcpclient.WithHTTPClient(doer),
		mcpclient.WithTokenSource(mcpclient.StaticTokenSource("tok123")),
	)

	_, err := client.CallTool(context.Background(), "search", nil)
	require.NoError(t, err)
	assert.Empty(t, doer.req.Header.Get("X-Tunnel-Authorization"))
}

func Test_IsDevTunnel(t *testing.T) {
	assert.True(t, mcpclient.IsDevTunnel("https://abc-8080.usw2.devtunnels.ms/mcp"))
	assert.False(t, mcpclient.IsDevTunnel("http://localhost:8080/mcp"))
}
