package modelclient_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/esagent/chatmodel"
	"github.com/effective-security/esagent/modelclient"
	"github.com/effective-security/esagent/toolset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_New_Validation(t *testing.T) {
	_, err := modelclient.New(modelclient.ProviderOpenAI, "")
	assert.EqualError(t, err, "model deployment name is required")

	_, err = modelclient.New(modelclient.ProviderAzure, "gpt-4o")
	assert.EqualError(t, err, "api version is required for Azure providers")

	m, err := modelclient.New(modelclient.ProviderAzure, "gpt-4o",
		modelclient.WithAPIVersion("2024-10-21"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", m.GetName())
	assert.Equal(t, modelclient.ProviderAzure, m.GetProviderType())
}

func Test_Generate_FinalAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "gpt-4o", req["model"])
		msgs := req["messages"].([]any)
		require.Len(t, msgs, 2)
		first := msgs[0].(map[string]any)
		assert.Equal(t, "system", first["role"])
		// no tools requested, tool_choice must be absent
		_, hasToolChoice := req["tool_choice"]
		assert.False(t, hasToolChoice)

		fmt.Fprint(w, `{"id":"c1","model":"gpt-4o","choices":[{"index":0,"message":{"role":"assistant","content":"All done."},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	m, err := modelclient.New(modelclient.ProviderOpenAI, "gpt-4o",
		modelclient.WithToken("sk-test"),
		modelclient.WithBaseURL(srv.URL))
	require.NoError(t, err)

	out, err := m.Generate(context.Background(), []modelclient.Message{
		modelclient.SystemMessage("You are a helpful agent."),
		modelclient.UserMessage("hello"),
	}, nil)
	require.NoError(t, err)
	assert.False(t, out.WantsTools())
	assert.Equal(t, "All done.", out.Content)
}

func Test_Generate_ToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))

		tools := req["tools"].([]any)
		require.Len(t, tools, 1)
		tool := tools[0].(map[string]any)
		assert.Equal(t, "function", tool["type"])
		fn := tool["function"].(map[string]any)
		assert.Equal(t, "search", fn["name"])
		assert.NotNil(t, fn["parameters"])
		assert.Equal(t, "auto", req["tool_choice"])

		fmt.Fprint(w, `{"id":"c2","model":"gpt-4o","choices":[{"index":0,"message":{"role":"assistant","content":"","tool_calls":[{"id":"call_1","type":"function","function":{"name":"search","arguments":"{\"query\":\"galleries in Manhattan\",\"size\":3}"}}]},"finish_reason":"tool_calls"}]}`)
	}))
	defer srv.Close()

	m, err := modelclient.New(modelclient.ProviderOpenAI, "gpt-4o",
		modelclient.WithToken("sk-test"),
		modelclient.WithBaseURL(srv.URL))
	require.NoError(t, err)

	out, err := m.Generate(context.Background(), []modelclient.Message{
		modelclient.UserMessage("galleries in Manhattan"),
	}, []toolset.Descriptor{
		{Name: "search", Description: "Search ES", InputSchema: json.RawMessage(`{"type":"object"}`)},
	})
	require.NoError(t, err)
	require.True(t, out.WantsTools())
	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "call_1", out.ToolCalls[0].ID)
	assert.Equal(t, "search", out.ToolCalls[0].Name)
	assert.Contains(t, out.ToolCalls[0].Arguments, "galleries in Manhattan")
}

func Test_Generate_AzureURL(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"id":"c3","choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	m, err := modelclient.New(modelclient.ProviderAzure, "my-deployment",
		modelclient.WithToken("token"),
		modelclient.WithBaseURL(srv.URL),
		modelclient.WithAPIVersion("2024-10-21"))
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []modelclient.Message{
		modelclient.UserMessage("hi"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/openai/deployments/my-deployment/chat/completions", gotPath)
	assert.Equal(t, "api-version=2024-10-21", gotQuery)
}

func Test_Generate_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited","type":"rate_limit"}}`)
	}))
	defer srv.Close()

	m, err := modelclient.New(modelclient.ProviderOpenAI, "gpt-4o",
		modelclient.WithToken("sk-test"),
		modelclient.WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []modelclient.Message{
		modelclient.UserMessage("hi"),
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func Test_Generate_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"c4","choices":[]}`)
	}))
	defer srv.Close()

	m, err := modelclient.New(modelclient.ProviderOpenAI, "gpt-4o",
		modelclient.WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []modelclient.Message{
		modelclient.UserMessage("hi"),
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, modelclient.ErrEmptyResponse))
}

func Test_MessageHelpers(t *testing.T) {
	m := modelclient.ToolMessage("call_1", "search", `{"hits":3}`)
	assert.Equal(t, chatmodel.RoleTool, m.Role)
	assert.Equal(t, "call_1", m.ToolCallID)
	assert.Equal(t, "search", m.ToolName)

	a := modelclient.AssistantToolCalls(modelclient.ToolCall{ID: "call_1", Name: "search"})
	assert.Equal(t, chatmodel.RoleAssistant, a.Role)
	require.Len(t, a.ToolCalls, 1)
}
