package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeedsSystemPrompt(t *testing.T) {
	s := New("base", "llama", "you are a helpful agent")
	require.Equal(t, 1, s.Len())
	msgs := s.Messages()
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Equal(t, "you are a helpful agent", msgs[0].Content)

	empty := New("base", "llama", "")
	assert.Equal(t, 0, empty.Len())
}

func TestProviderBindingIsImmutable(t *testing.T) {
	s := New("base", "llama", "")
	assert.Equal(t, "base", s.Provider())
	assert.Equal(t, "llama", s.Model())
	// No setters exist; the binding can only change by creating a new session.
}

func TestToolCallMustBeFollowedByResult(t *testing.T) {
	s := New("base", "llama", "sys")
	s.AppendUser("list the files")

	call := &ToolCall{ID: "1", Name: "list_directory", Args: map[string]interface{}{"path": "."}}
	require.NoError(t, s.AppendAssistant(`{"tool": "list_directory"}`, call))
	require.NotNil(t, s.PendingCall())

	// A second assistant turn before the result violates the pairing invariant.
	err := s.AppendAssistant("done", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list_directory")

	// A mismatched result is rejected.
	err = s.AppendToolResult(ToolResult{ToolName: "read_file", Success: true, Output: "x"})
	require.Error(t, err)

	// The matching result clears the pending call.
	require.NoError(t, s.AppendToolResult(ToolResult{ToolName: "list_directory", Success: true, Output: "[FILE] a.txt"}))
	assert.Nil(t, s.PendingCall())
	require.NoError(t, s.AppendAssistant("done", nil))
}

func TestAppendToolResultWithoutCall(t *testing.T) {
	s := New("base", "llama", "")
	err := s.AppendToolResult(ToolResult{ToolName: "read_file", Success: true})
	require.Error(t, err)
}

func TestToolResultText(t *testing.T) {
	tests := []struct {
		name string
		res  ToolResult
		want string
	}{
		{"success", ToolResult{Success: true, Output: "hello"}, "hello"},
		{"failure", ToolResult{Success: false, Error: "no such file"}, "ERROR: no such file"},
		{"failure with partial output", ToolResult{Success: false, Error: "exit status 1", Output: "STDOUT:\npartial"}, "ERROR: exit status 1\nSTDOUT:\npartial"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.res.Text())
		})
	}
}

func TestRewindDiscardsTurn(t *testing.T) {
	s := New("base", "llama", "sys")
	s.AppendUser("first")
	require.NoError(t, s.AppendAssistant("answer one", nil))
	mark := s.Len()

	s.AppendUser("second")
	call := &ToolCall{ID: "2", Name: "run_shell", Args: map[string]interface{}{"command": "ls"}}
	require.NoError(t, s.AppendAssistant("", call))

	s.Rewind(mark)
	require.Equal(t, mark, s.Len())
	assert.Nil(t, s.PendingCall())
	last := s.Messages()[s.Len()-1]
	assert.Equal(t, "answer one", last.Content)

	// Rewinding forward or negative is a no-op / clamps to empty.
	s.Rewind(100)
	assert.Equal(t, mark, s.Len())
	s.Rewind(-1)
	assert.Equal(t, 0, s.Len())
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := New("base", "llama", "sys")
	s.AppendUser("hi")
	msgs := s.Messages()
	msgs[0].Content = "mutated"
	assert.Equal(t, "sys", s.Messages()[0].Content)
}
