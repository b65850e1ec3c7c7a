package terminal

import (
	"bufio"
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4xw311/meowcli/config"
	"github.com/m4xw311/meowcli/errors"
	"github.com/m4xw311/meowcli/llm"
	"github.com/m4xw311/meowcli/logger"
	"github.com/m4xw311/meowcli/session"
	"github.com/m4xw311/meowcli/tools"
)

// recordingClient is a scripted provider that additionally records the
// sessions it was asked to complete.
type recordingClient struct {
	llm.MockProviderClient
	sessions []*session.Session
}

func (r *recordingClient) Complete(ctx context.Context, sess *session.Session) (*llm.ModelResponse, error) {
	r.sessions = append(r.sessions, sess)
	return r.MockProviderClient.Complete(ctx, sess)
}

func testPolicy() *config.Policy {
	return &config.Policy{
		MaxTurns:            config.DefaultMaxTurns,
		ShellTimeoutSeconds: 1,
		MaxReadBytes:        config.DefaultMaxReadBytes,
		MaxShellOutputBytes: config.DefaultMaxShellOutputBytes,
	}
}

func testStore(t *testing.T) *config.Store {
	t.Helper()
	store, err := config.OpenStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	return store
}

// testTerminal builds a Terminal that reads the scripted input, writes to
// the returned buffer, and hands out one scripted client per provider
// construction.
func testTerminal(t *testing.T, input string, scripts ...[]llm.MockResponse) (*Terminal, *bytes.Buffer, *[]*recordingClient) {
	t.Helper()
	pol := testPolicy()
	term := New(testStore(t), pol, tools.NewRegistry(pol, logger.Nop()), logger.Nop())

	out := &bytes.Buffer{}
	term.in = bufio.NewReader(strings.NewReader(input))
	term.out = out

	clients := &[]*recordingClient{}
	term.newProvider = func(ctx context.Context, id string, cfg config.ProviderConfig, log zerolog.Logger) (llm.ProviderClient, error) {
		var responses []llm.MockResponse
		if n := len(*clients); n < len(scripts) {
			responses = scripts[n]
		}
		c := &recordingClient{MockProviderClient: llm.MockProviderClient{Provider: id, Responses: responses}}
		*clients = append(*clients, c)
		return c, nil
	}
	return term, out, clients
}

func finalAnswer(text string) llm.MockResponse {
	return llm.MockResponse{Response: &llm.ModelResponse{
		Raw:         `{"tool": "final_answer", "args": {"text": "` + text + `"}}`,
		ToolRequest: &session.ToolCall{ID: "call-final", Name: tools.NameFinalAnswer, Args: map[string]interface{}{"text": text}},
	}}
}

func askQuestion(question string) llm.MockResponse {
	return llm.MockResponse{Response: &llm.ModelResponse{
		Raw:         `{"tool": "ask_clarifying_question", "args": {"question": "` + question + `"}}`,
		ToolRequest: &session.ToolCall{ID: "call-ask", Name: tools.NameAskClarifyingQuestion, Args: map[string]interface{}{"question": question}},
	}}
}

func TestRunExit(t *testing.T) {
	term, out, _ := testTerminal(t, "/exit\n")

	require.NoError(t, term.Run(context.Background()))
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestRunUnknownCommand(t *testing.T) {
	term, out, _ := testTerminal(t, "/frobnicate\n/exit\n")

	require.NoError(t, term.Run(context.Background()))
	assert.Contains(t, out.String(), "unknown command '/frobnicate'")
}

func TestRunEmptyInputIgnored(t *testing.T) {
	term, out, _ := testTerminal(t, "\n   \n/exit\n")

	require.NoError(t, term.Run(context.Background()))
	assert.NotContains(t, out.String(), "unknown command")
}

func TestRunEOF(t *testing.T) {
	term, _, _ := testTerminal(t, "")

	require.NoError(t, term.Run(context.Background()))
}

func TestHelpListsCommands(t *testing.T) {
	term, out, _ := testTerminal(t, "/help\n/exit\n")

	require.NoError(t, term.Run(context.Background()))
	for _, want := range []string{"/models", "/chat [model]", "/settings set provider <name>", "Agent Mode"} {
		assert.Contains(t, out.String(), want)
	}
}

func TestStartupWarnsAboutMissingKey(t *testing.T) {
	term, out, _ := testTerminal(t, "/exit\n")

	require.NoError(t, term.Run(context.Background()))
	assert.Contains(t, out.String(), "No API key set for provider 'base'")
}

func TestChatRequiresModel(t *testing.T) {
	// The store starts with the placeholder model, which is not usable.
	term, out, _ := testTerminal(t, "/chat\n/exit\n")

	require.NoError(t, term.Run(context.Background()))
	assert.Contains(t, out.String(), "no model specified and no default model set for 'base'")
}

func TestChatRunsTask(t *testing.T) {
	term, out, clients := testTerminal(t, "/chat test-model\nsay hi\n/back\n/exit\n",
		[]llm.MockResponse{finalAnswer("Hi there!")})

	require.NoError(t, term.Run(context.Background()))

	assert.Contains(t, out.String(), "Started a chat with the agent")
	assert.Contains(t, out.String(), "Hi there!")
	assert.Contains(t, out.String(), "Goodbye!")

	require.Len(t, *clients, 1)
	sessions := (*clients)[0].sessions
	require.NotEmpty(t, sessions)
	assert.Equal(t, "base", sessions[0].Provider())
	assert.Equal(t, "test-model", sessions[0].Model())
}

func TestChatRelaysClarifyingQuestion(t *testing.T) {
	term, out, clients := testTerminal(t, "/chat test-model\npaint it\nblue\n/back\n/exit\n",
		[]llm.MockResponse{askQuestion("Which color?"), finalAnswer("Painted it blue.")})

	require.NoError(t, term.Run(context.Background()))

	assert.Contains(t, out.String(), "Question from the agent")
	assert.Contains(t, out.String(), "Which color?")
	assert.Contains(t, out.String(), "Painted it blue.")

	// The reply became the suspended call's tool result.
	sess := (*clients)[0].sessions[0]
	var answered bool
	for _, msg := range sess.Messages() {
		if msg.ToolResult != nil && msg.ToolResult.ToolName == tools.NameAskClarifyingQuestion {
			assert.Equal(t, "blue", msg.ToolResult.Output)
			answered = true
		}
	}
	assert.True(t, answered, "the clarifying answer must be recorded in the session")
}

func TestChatShowsThinkingStatus(t *testing.T) {
	term, out, _ := testTerminal(t, "/chat test-model\npaint it\nblue\n/back\n/exit\n",
		[]llm.MockResponse{askQuestion("Which color?"), finalAnswer("Painted it blue.")})

	require.NoError(t, term.Run(context.Background()))

	// One status line per model round trip, printed before the reply lands.
	assert.Equal(t, 2, strings.Count(out.String(), "Thinking..."))
	assert.Less(t, strings.Index(out.String(), "Thinking..."), strings.Index(out.String(), "Which color?"))
}

func TestChatAcceptsLongInput(t *testing.T) {
	long := strings.Repeat("a", 100*1024)
	term, out, clients := testTerminal(t, "/chat test-model\n"+long+"\n/back\n/exit\n",
		[]llm.MockResponse{finalAnswer("Summarized.")})

	require.NoError(t, term.Run(context.Background()))
	assert.Contains(t, out.String(), "Summarized.")

	// The pasted prompt reaches the model untrimmed.
	var seen bool
	for _, msg := range (*clients)[0].sessions[0].Messages() {
		if msg.Role == session.RoleUser && msg.Content == long {
			seen = true
		}
	}
	assert.True(t, seen, "the long prompt must arrive whole")
}

func TestChatFailureEndsChat(t *testing.T) {
	authErr := errors.NewKind(errors.KindAuth, "authentication failed (HTTP 401); check the provider API key")
	term, out, _ := testTerminal(t, "/chat test-model\ndo something\n/exit\n",
		[]llm.MockResponse{{Err: authErr}})

	require.NoError(t, term.Run(context.Background()))

	// The failed task prints its error, the chat ends, and the /exit line is
	// handled by the top-level prompt again.
	assert.Contains(t, out.String(), "authentication failed")
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestSettingsProviderSwitchBindsOnlyNewChats(t *testing.T) {
	input := strings.Join([]string{
		"/chat test-model",
		"first task",
		"/back",
		"/settings set provider openrouter",
		"/chat other-model",
		"second task",
		"/back",
		"/exit",
	}, "\n") + "\n"

	term, out, clients := testTerminal(t, input,
		[]llm.MockResponse{finalAnswer("one")},
		[]llm.MockResponse{finalAnswer("two")})

	require.NoError(t, term.Run(context.Background()))
	assert.Contains(t, out.String(), "✓ Default provider set to 'openrouter'.")

	require.Len(t, *clients, 2)
	// The first chat's session keeps its original provider binding; only the
	// chat opened after the switch sees the new default.
	assert.Equal(t, "base", (*clients)[0].sessions[0].Provider())
	assert.Equal(t, "openrouter", (*clients)[1].sessions[0].Provider())
	assert.Equal(t, "openrouter", term.store.DefaultProvider())
}

func TestSettingsShowMasksKey(t *testing.T) {
	term, out, _ := testTerminal(t, "/settings set api_key base sk-abcdef123xyz\n/settings show\n/exit\n")

	require.NoError(t, term.Run(context.Background()))
	assert.Contains(t, out.String(), "✓ API key for 'base' saved.")
	assert.Contains(t, out.String(), "sk-a...xyz")
	assert.NotContains(t, out.String(), "sk-abcdef123xyz")
}

func TestSettingsSetModelJoinsArguments(t *testing.T) {
	term, out, _ := testTerminal(t, "/settings set model base openai large v2\n/exit\n")

	require.NoError(t, term.Run(context.Background()))
	assert.Contains(t, out.String(), "✓ Default model for 'base' set to 'openai large v2'.")

	pc, err := term.store.Get("base")
	require.NoError(t, err)
	assert.Equal(t, "openai large v2", pc.Model)
}

func TestSettingsRejectsUnknownProvider(t *testing.T) {
	term, out, _ := testTerminal(t, "/settings set provider skynet\n/exit\n")

	require.NoError(t, term.Run(context.Background()))
	assert.Contains(t, out.String(), "provider 'skynet' not found")
	assert.Equal(t, "base", term.store.DefaultProvider())
}

func TestSettingsUnknownFieldAndUsage(t *testing.T) {
	term, out, _ := testTerminal(t, "/settings set color pink\n/settings set api_key base\n/exit\n")

	require.NoError(t, term.Run(context.Background()))
	assert.Contains(t, out.String(), "unknown setting 'color'")
	assert.Contains(t, out.String(), "usage: /settings set api_key <provider> <key>")
}

func TestModelsRendersCatalog(t *testing.T) {
	term, out, clients := testTerminal(t, "/models\n/exit\n")
	term.newProvider = func(ctx context.Context, id string, cfg config.ProviderConfig, log zerolog.Logger) (llm.ProviderClient, error) {
		c := &recordingClient{MockProviderClient: llm.MockProviderClient{
			Provider: id,
			Models: []llm.ModelInfo{
				{Name: "openai", Description: "General purpose"},
				{Name: "evil", Description: "Community finetune", Community: true},
			},
		}}
		*clients = append(*clients, c)
		return c, nil
	}

	require.NoError(t, term.Run(context.Background()))

	assert.Contains(t, out.String(), "Fetching models...")
	assert.Contains(t, out.String(), "Available models (base)")
	assert.Contains(t, out.String(), "openai")
	assert.Contains(t, out.String(), "Official")
	assert.Contains(t, out.String(), "Community")
}

func TestRunOnce(t *testing.T) {
	term, out, _ := testTerminal(t, "", []llm.MockResponse{finalAnswer("Four.")})
	require.NoError(t, term.store.Set("base", "model", "test-model"))

	require.NoError(t, term.RunOnce(context.Background(), "what is 2+2?"))
	assert.Contains(t, out.String(), "Four.")
}

func TestRunOncePropagatesFailure(t *testing.T) {
	term, _, _ := testTerminal(t, "", []llm.MockResponse{
		{Err: errors.NewKind(errors.KindAuth, "authentication failed")},
	})
	require.NoError(t, term.store.Set("base", "model", "test-model"))

	err := term.RunOnce(context.Background(), "do something")
	require.Error(t, err)
	assert.Equal(t, errors.KindAuth, errors.KindOf(err))
}

func TestRunOnceRequiresModel(t *testing.T) {
	term, _, _ := testTerminal(t, "")

	err := term.RunOnce(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no default model set for 'base'")
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"empty", "", "Not set"},
		{"short keys show as is", "abc", "abc"},
		{"boundary length shows as is", "1234567", "1234567"},
		{"long keys are masked", "sk-abcdef123xyz", "sk-a...xyz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, maskKey(tt.key))
		})
	}
}

func TestFormatArgs(t *testing.T) {
	long := strings.Join([]string{"l1", "l2", "l3", "l4", "l5", "l6", "l7"}, "\n")
	got := formatArgs(map[string]interface{}{"path": "x.txt", "content": long})

	// Keys render in sorted order and long values stop after five lines.
	assert.Equal(t, "content='l1\nl2\nl3\nl4\nl5\n...', path='x.txt'", got)
}

func TestWriteFileResultRendersGreenPanel(t *testing.T) {
	term, out, _ := testTerminal(t, "")

	term.printToolResult(session.ToolResult{
		ToolName: tools.NameWriteFile,
		Success:  true,
		Output:   "File 'x.txt' written",
	})
	assert.Contains(t, out.String(), "File 'x.txt' written")

	out.Reset()
	term.printToolResult(session.ToolResult{
		ToolName: tools.NameReadFile,
		Success:  false,
		Error:    "file not found",
	})
	assert.Contains(t, out.String(), "ERROR: file not found")
}
