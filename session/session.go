package session

import (
	"github.com/m4xw311/meowcli/errors"
)

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall describes a tool invocation requested by the model.
type ToolCall struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// ToolResult is the outcome of executing a tool call. A failed result is
// still a valid result; it is fed back to the model, not raised.
type ToolResult struct {
	ToolName string `json:"tool_name"`
	Success  bool   `json:"success"`
	Output   string `json:"output"`
	Error    string `json:"error,omitempty"`
}

// Text returns the result as a single string for the conversation: the
// output on success, the error (plus any partial output) on failure.
func (r ToolResult) Text() string {
	if r.Success {
		return r.Output
	}
	if r.Output == "" {
		return "ERROR: " + r.Error
	}
	return "ERROR: " + r.Error + "\n" + r.Output
}

// Message is one entry in the conversation history. Messages are immutable
// once appended; their order is the conversation's causal history.
type Message struct {
	Role       Role        `json:"role"`
	Content    string      `json:"content"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// Session holds the ordered conversation for one chat. It is bound to a
// single provider and model at creation and never rebinds; switching
// providers means starting a new session. History lives in memory only and
// is discarded when the chat ends.
type Session struct {
	provider string
	model    string
	messages []Message
}

// New creates a session bound to the given provider and model. A non-empty
// systemPrompt is appended as the first message.
func New(provider, model, systemPrompt string) *Session {
	s := &Session{provider: provider, model: model}
	if systemPrompt != "" {
		s.messages = append(s.messages, Message{Role: RoleSystem, Content: systemPrompt})
	}
	return s
}

func (s *Session) Provider() string { return s.provider }
func (s *Session) Model() string    { return s.model }
func (s *Session) Len() int         { return len(s.messages) }

// Messages returns a copy of the history in order.
func (s *Session) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// PendingCall returns the tool call awaiting a result, or nil.
func (s *Session) PendingCall() *ToolCall {
	if len(s.messages) == 0 {
		return nil
	}
	last := s.messages[len(s.messages)-1]
	if last.Role == RoleAssistant && last.ToolCall != nil {
		return last.ToolCall
	}
	return nil
}

// AppendUser appends a user message.
func (s *Session) AppendUser(content string) {
	s.messages = append(s.messages, Message{Role: RoleUser, Content: content})
}

// AppendSystem appends a system message (used for corrective instructions
// mid-conversation).
func (s *Session) AppendSystem(content string) {
	s.messages = append(s.messages, Message{Role: RoleSystem, Content: content})
}

// AppendAssistant appends an assistant message, optionally carrying a tool
// call. It fails if the previous tool call has not received its result yet:
// every tool_call must be immediately followed by exactly one tool_result.
func (s *Session) AppendAssistant(content string, call *ToolCall) error {
	if pending := s.PendingCall(); pending != nil {
		return errors.New("tool call '%s' has no result yet; cannot append a new assistant turn", pending.Name)
	}
	s.messages = append(s.messages, Message{Role: RoleAssistant, Content: content, ToolCall: call})
	return nil
}

// AppendToolResult appends the result for the pending tool call. It fails
// when no call is pending or the result names a different tool.
func (s *Session) AppendToolResult(res ToolResult) error {
	pending := s.PendingCall()
	if pending == nil {
		return errors.New("no tool call is pending a result")
	}
	if res.ToolName != pending.Name {
		return errors.New("tool result for '%s' does not match pending call '%s'", res.ToolName, pending.Name)
	}
	s.messages = append(s.messages, Message{Role: RoleTool, Content: res.Text(), ToolResult: &res})
	return nil
}

// Rewind drops every message after index n, leaving the first n in place.
// It exists solely so an interrupted turn can be discarded; normal operation
// is append-only.
func (s *Session) Rewind(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(s.messages) {
		s.messages = s.messages[:n]
	}
}
