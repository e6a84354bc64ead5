// Package modelclient is the language-model backend boundary: it sends
// conversation turns and receives either a final answer or a set of
// requested tool invocations. Agent identity and model selection live in
// the configuration; provider specifics stay behind the Model interface.
package modelclient

import (
	"context"

	"github.com/effective-security/esagent/chatmodel"
	"github.com/effective-security/esagent/toolset"
)

// ProviderType is the type of provider.
type ProviderType string

const (
	// ProviderOpenAI is the OpenAI platform API.
	ProviderOpenAI ProviderType = "OPENAI"
	// ProviderAzure is Azure OpenAI / Azure AI Foundry deployments.
	ProviderAzure ProviderType = "AZURE"
	// ProviderAzureAD is Azure with AAD token authentication.
	ProviderAzureAD ProviderType = "AZURE_AD"
)

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	// ID is the provider-assigned identifier pairing the call with its result.
	ID string `json:"id"`
	// Name is the tool to invoke.
	Name string `json:"name"`
	// Arguments is the JSON-encoded arguments string as produced by the model.
	Arguments string `json:"arguments"`
}

// Output is one model response: either a final answer (no tool calls) or a
// set of requested tool invocations.
type Output struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// WantsTools reports whether the model requested tool invocations.
func (o *Output) WantsTools() bool {
	return len(o.ToolCalls) > 0
}

// Message is one wire-level message sent to the model. Unlike
// chatmodel.Turn it carries the tool-call pairing the provider requires.
type Message struct {
	Role       chatmodel.Role `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []ToolCall     `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
}

// SystemMessage returns a system instructions message.
func SystemMessage(content string) Message {
	return Message{Role: chatmodel.RoleSystem, Content: content}
}

// UserMessage returns a user message.
func UserMessage(content string) Message {
	return Message{Role: chatmodel.RoleUser, Content: content}
}

// AssistantMessage returns an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: chatmodel.RoleAssistant, Content: content}
}

// AssistantToolCalls returns the assistant message requesting tool calls.
func AssistantToolCalls(calls ...ToolCall) Message {
	return Message{Role: chatmodel.RoleAssistant, ToolCalls: calls}
}

// ToolMessage returns the message carrying one tool call result.
func ToolMessage(toolCallID, toolName, content string) Message {
	return Message{
		Role:       chatmodel.RoleTool,
		Content:    content,
		ToolCallID: toolCallID,
		ToolName:   toolName,
	}
}

// Model is the interface the conversation loop depends on. Implementations
// must not retry internally: distinguishing transient from permanent
// backend failures is the caller's judgment.
type Model interface {
	// GetName returns the model (deployment) name.
	GetName() string
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// Generate sends the conversation and the callable tool definitions,
	// returning the model's next output.
	Generate(ctx context.Context, messages []Message, tools []toolset.Descriptor) (*Output, error)
}
