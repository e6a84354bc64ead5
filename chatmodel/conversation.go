package chatmodel

import (
	"strings"
)

// Role is the author of a conversation turn.
type Role string

const (
	// RoleSystem is the system instructions turn.
	RoleSystem Role = "system"
	// RoleUser is a turn authored by the end user.
	RoleUser Role = "user"
	// RoleAssistant is a turn authored by the model.
	RoleAssistant Role = "assistant"
	// RoleTool is the result of a tool invocation.
	RoleTool Role = "tool"
)

// Turn is a single entry of a conversation transcript.
type Turn struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`

	// ToolName and ToolCallID are set on RoleTool turns.
	ToolName   string `json:"tool_name,omitempty" yaml:"tool_name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty" yaml:"tool_call_id,omitempty"`
	// Failed marks a RoleTool turn carrying a failure instead of a payload.
	Failed bool `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// UserTurn returns a RoleUser turn with the given content.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// AssistantTurn returns a RoleAssistant turn with the given content.
func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// ToolTurn returns a RoleTool turn for a tool call result.
func ToolTurn(toolName, toolCallID, content string, failed bool) Turn {
	return Turn{
		Role:       RoleTool,
		Content:    content,
		ToolName:   toolName,
		ToolCallID: toolCallID,
		Failed:     failed,
	}
}

// Conversation is the ordered transcript of one session.
// It is append-only for the duration of the session and owned by the
// conversation loop; callers receive it when the session ends.
type Conversation struct {
	chatID string
	turns  []Turn
}

// NewConversation returns an empty transcript for the given chat ID.
func NewConversation(chatID string) *Conversation {
	return &Conversation{chatID: chatID}
}

// ChatID returns the conversation's chat ID.
func (c *Conversation) ChatID() string {
	return c.chatID
}

// Append adds turns to the transcript.
func (c *Conversation) Append(turns ...Turn) {
	c.turns = append(c.turns, turns...)
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// Turns returns a copy of the transcript.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Last returns the most recent turn, if any.
func (c *Conversation) Last() (Turn, bool) {
	if len(c.turns) == 0 {
		return Turn{}, false
	}
	return c.turns[len(c.turns)-1], true
}

// FinalAnswer returns the content of the last assistant turn, if any.
func (c *Conversation) FinalAnswer() string {
	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].Role == RoleAssistant {
			return c.turns[i].Content
		}
	}
	return ""
}

// String renders the transcript for logs and CLI output.
func (c *Conversation) String() string {
	var buf strings.Builder
	for _, t := range c.turns {
		buf.WriteString(strings.ToUpper(string(t.Role)))
		if t.ToolName != "" {
			buf.WriteString(" (")
			buf.WriteString(t.ToolName)
			buf.WriteString(")")
		}
		buf.WriteString(": ")
		buf.WriteString(t.Content)
		buf.WriteString("\n")
	}
	return buf.String()
}
