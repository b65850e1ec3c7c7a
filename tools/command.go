package tools

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/m4xw311/meowcli/errors"
	"github.com/rs/zerolog"
)

// RunShellTool executes a shell command with a bounded timeout and capped
// output.
type RunShellTool struct {
	allowedCommands []string
	timeout         time.Duration
	maxOutputBytes  int
	log             zerolog.Logger
}

func (t *RunShellTool) Name() string { return NameRunShell }
func (t *RunShellTool) Description() string {
	desc := fmt.Sprintf("Executes a shell command (timeout %s). Args: command (string).", t.timeout)
	if len(t.allowedCommands) == 0 {
		return desc
	}
	allowedList := "\nAllowed command patterns:\n"
	for _, cmd := range t.allowedCommands {
		allowedList += fmt.Sprintf("- %s\n", cmd)
	}
	return desc + allowedList
}

func (t *RunShellTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	command, ok := args["command"].(string)
	if !ok || command == "" {
		return "", errors.New("missing or invalid 'command' argument")
	}

	if !isCommandAllowed(command, t.allowedCommands, t.log) {
		return "", errors.New("command '%s' is not in the list of allowed commands", command)
	}

	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	stdout := &boundedBuffer{max: t.maxOutputBytes}
	stderr := &boundedBuffer{max: t.maxOutputBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	t.log.Debug().Str("command", command).Msg("running shell command")
	runErr := cmd.Run()
	output := t.formatOutput(stdout, stderr)

	// A user interrupt cancels the parent context; that aborts the turn
	// rather than producing a result.
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if runCtx.Err() == context.DeadlineExceeded {
		return output, errors.NewKind(errors.KindTimeout, "command timed out after %s", t.timeout)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if stderrors.As(runErr, &exitErr) {
			return output, errors.NewKind(errors.KindExitCode, "command exited with status %d", exitErr.ExitCode())
		}
		return output, errors.Wrapf(runErr, "command execution failed")
	}
	return output, nil
}

func (t *RunShellTool) formatOutput(stdout, stderr *boundedBuffer) string {
	var out string
	if s := stdout.String(); s != "" {
		out += "STDOUT:\n" + s
		if stdout.truncated {
			out += "\n... [output truncated]"
		}
		out += "\n"
	}
	if s := stderr.String(); s != "" {
		out += "STDERR:\n" + s
		if stderr.truncated {
			out += "\n... [output truncated]"
		}
		out += "\n"
	}
	if out == "" {
		out = "Command executed without output."
	}
	return out
}

// boundedBuffer holds the first max bytes written and discards the rest.
// Writes always report full consumption and never fail. A non-positive max
// means unlimited.
type boundedBuffer struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	if b.max <= 0 {
		b.buf.Write(p)
		return len(p), nil
	}
	room := b.max - b.buf.Len()
	switch {
	case room <= 0:
		if len(p) > 0 {
			b.truncated = true
		}
	case len(p) > room:
		b.buf.Write(p[:room])
		b.truncated = true
	default:
		b.buf.Write(p)
	}
	return len(p), nil
}

func (b *boundedBuffer) String() string { return b.buf.String() }
