package modelclient

import (
	"encoding/json"

	"github.com/openai/openai-go/v3/packages/param"
)

// Chat Completions wire types. Azure deployments and the OpenAI platform
// share this schema.

type chatFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function chatFunctionCall `json:"function"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

type chatFunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type chatTool struct {
	Type     string          `json:"type"`
	Function chatFunctionDef `json:"function"`
}

type chatRequest struct {
	Model       string             `json:"model,omitempty"`
	Messages    []chatMessage      `json:"messages"`
	Tools       []chatTool         `json:"tools,omitempty"`
	ToolChoice  string             `json:"tool_choice,omitempty"`
	MaxTokens   param.Opt[int64]   `json:"max_completion_tokens,omitzero"`
	Temperature param.Opt[float64] `json:"temperature,omitzero"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type errorMessage struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
