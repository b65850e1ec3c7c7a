package tools

import (
	"context"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/m4xw311/meowcli/config"
	"github.com/m4xw311/meowcli/errors"
	"github.com/m4xw311/meowcli/session"
	"github.com/rs/zerolog"
)

// Tool names. The set is fixed; the registry never executes anything else.
const (
	NameListDirectory         = "list_directory"
	NameReadFile              = "read_file"
	NameWriteFile             = "write_file"
	NameRunShell              = "run_shell"
	NameAskClarifyingQuestion = "ask_clarifying_question"
	NameFinalAnswer           = "final_answer"
)

// Tool defines the interface for any action the agent can take.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// Registry holds the fixed tool set in a deterministic order.
type Registry struct {
	order []string
	tools map[string]Tool
	log   zerolog.Logger
}

// NewRegistry builds the registry from the agent policy.
func NewRegistry(pol *config.Policy, log zerolog.Logger) *Registry {
	r := &Registry{tools: make(map[string]Tool), log: log}

	r.register(&ListDirectoryTool{fsAccess: &pol.FilesystemAccess})
	r.register(&ReadFileTool{fsAccess: &pol.FilesystemAccess, maxBytes: pol.MaxReadBytes})
	r.register(&WriteFileTool{fsAccess: &pol.FilesystemAccess})
	r.register(&RunShellTool{
		allowedCommands: pol.AllowedCommands,
		timeout:         pol.ShellTimeout(),
		maxOutputBytes:  pol.MaxShellOutputBytes,
		log:             log,
	})
	r.register(&AskClarifyingQuestionTool{})
	r.register(&FinalAnswerTool{})

	return r
}

func (r *Registry) register(t Tool) {
	r.order = append(r.order, t.Name())
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns the tools in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Execute runs the requested tool and packages the outcome as a ToolResult.
// Tool failures, including unknown tool names, become failed results that
// are fed back to the model so it can self-correct. The only Go error
// returned is context cancellation, which aborts the turn instead of
// producing a result.
func (r *Registry) Execute(ctx context.Context, call *session.ToolCall) (session.ToolResult, error) {
	t, ok := r.tools[call.Name]
	if !ok {
		msg := errors.NewKind(errors.KindUnknownTool,
			"unknown tool '%s'. Available tools: %s", call.Name, strings.Join(r.order, ", "))
		r.log.Warn().Str("tool", call.Name).Msg("model requested unknown tool")
		return session.ToolResult{ToolName: call.Name, Success: false, Error: msg.Error()}, nil
	}

	out, err := t.Execute(ctx, call.Args)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return session.ToolResult{}, ctxErr
	}
	if err != nil {
		r.log.Debug().Str("tool", call.Name).Err(err).Msg("tool execution failed")
		return session.ToolResult{ToolName: call.Name, Success: false, Output: out, Error: err.Error()}, nil
	}
	r.log.Debug().Str("tool", call.Name).Int("output_bytes", len(out)).Msg("tool executed")
	return session.ToolResult{ToolName: call.Name, Success: true, Output: out}, nil
}

// isPathRestricted checks if a path matches any of the glob patterns.
func isPathRestricted(path string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		match, err := doublestar.PathMatch(pattern, path)
		if err != nil {
			return false, errors.New("invalid glob pattern '%s': %v", pattern, err)
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// isCommandAllowed checks a command against the allowlist (with regex
// support). An empty allowlist allows everything.
func isCommandAllowed(command string, allowed []string, log zerolog.Logger) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, pattern := range allowed {
		re, err := regexp.Compile(pattern)
		if err != nil {
			log.Warn().Str("pattern", pattern).Err(err).Msg("invalid regex in allowed_commands")
			// Fallback to simple string comparison if regex is invalid
			if command == pattern {
				return true
			}
			continue
		}
		if re.MatchString(command) {
			return true
		}
	}
	return false
}
