package terminal

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"

	"github.com/m4xw311/meowcli/agent"
	"github.com/m4xw311/meowcli/config"
	"github.com/m4xw311/meowcli/errors"
	"github.com/m4xw311/meowcli/llm"
	"github.com/m4xw311/meowcli/session"
	"github.com/m4xw311/meowcli/tools"
)

// errLeaveChat signals that the user asked to leave the chat mid-task.
var errLeaveChat = stderrors.New("left the chat")

// Terminal is the interactive command surface. It owns the prompt loop,
// slash-command dispatch, and all rendering.
type Terminal struct {
	store    *config.Store
	policy   *config.Policy
	registry *tools.Registry
	log      zerolog.Logger

	in  *bufio.Reader
	out io.Writer
	md  *glamour.TermRenderer

	// newProvider is swapped for a scripted client in tests.
	newProvider func(ctx context.Context, id string, cfg config.ProviderConfig, log zerolog.Logger) (llm.ProviderClient, error)
}

// New creates a Terminal reading stdin and writing stdout.
func New(store *config.Store, pol *config.Policy, reg *tools.Registry, log zerolog.Logger) *Terminal {
	return &Terminal{
		store:       store,
		policy:      pol,
		registry:    reg,
		log:         log,
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		md:          newMarkdownRenderer(),
		newProvider: llm.NewProvider,
	}
}

// Run drives the top-level command prompt until /exit or end of input.
func (t *Terminal) Run(ctx context.Context) error {
	t.printBanner()
	t.warnMissingKey()

	for {
		line, ok := t.readLine(accentStyle.Render(">>> "))
		if !ok {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		command := strings.ToLower(parts[0])
		args := parts[1:]

		switch command {
		case "/help":
			t.printHelp()
		case "/models":
			t.showModels(ctx)
		case "/chat":
			t.runChat(ctx, args)
		case "/settings":
			t.handleSettings(args)
		case "/exit":
			fmt.Fprintln(t.out, noticeStyle.Render("Goodbye!"))
			return nil
		default:
			t.printError(errors.New("unknown command '%s'; type /help for the command list", command))
		}
	}
}

// RunOnce executes a single chat task against the default provider and
// model, skipping the command prompt. Clarifying questions still read from
// the terminal's input; a task that does not finish returns its error.
func (t *Terminal) RunOnce(ctx context.Context, prompt string) error {
	id := t.store.DefaultProvider()
	pc, err := t.store.Get(id)
	if err != nil {
		return err
	}
	model := pc.Model
	if model == "" || model == config.PlaceholderModel {
		return errors.New("no default model set for '%s'; set one with /settings set model %s <model>", id, id)
	}

	client, err := t.newProvider(ctx, id, pc, t.log)
	if err != nil {
		return err
	}

	sess := session.New(id, model, llm.SystemPrompt(t.registry))
	a := agent.New(client, t.registry, sess, agent.Options{MaxTurns: t.policy.MaxTurns}, t.log)

	answer, err := t.runTask(ctx, a, prompt)
	if err != nil {
		return err
	}
	t.printAnswer(sess, answer)
	return nil
}

func (t *Terminal) warnMissingKey() {
	id := t.store.DefaultProvider()
	pc, err := t.store.Get(id)
	if err != nil || pc.APIKey != "" {
		return
	}
	fmt.Fprintln(t.out, accentStyle.Render(fmt.Sprintf(
		"No API key set for provider '%s'. Set one with /settings set api_key %s <key>.", id, id)))
}

func (t *Terminal) showModels(ctx context.Context) {
	id := t.store.DefaultProvider()
	pc, err := t.store.Get(id)
	if err != nil {
		t.printError(err)
		return
	}
	client, err := t.newProvider(ctx, id, pc, t.log)
	if err != nil {
		t.printError(err)
		return
	}

	fmt.Fprintln(t.out, dimStyle.Render("Fetching models..."))
	models, err := client.ListModels(ctx)
	if err != nil {
		t.printError(errors.Wrapf(err, "could not fetch models for '%s'", id))
		return
	}
	t.printModels(id, models)
}

// runChat opens an agent chat bound to the default provider at entry. The
// binding is fixed for the life of the chat; later /settings changes only
// affect the next /chat.
func (t *Terminal) runChat(ctx context.Context, args []string) {
	id := t.store.DefaultProvider()
	pc, err := t.store.Get(id)
	if err != nil {
		t.printError(err)
		return
	}

	model := pc.Model
	if len(args) > 0 {
		model = args[0]
	}
	if model == "" || model == config.PlaceholderModel {
		t.printError(errors.New(
			"no model specified and no default model set for '%s'; pass one (/chat <model>) or set one with /settings set model %s <model>", id, id))
		return
	}

	client, err := t.newProvider(ctx, id, pc, t.log)
	if err != nil {
		t.printError(err)
		return
	}

	sess := session.New(id, model, llm.SystemPrompt(t.registry))
	a := agent.New(client, t.registry, sess, agent.Options{MaxTurns: t.policy.MaxTurns}, t.log)
	t.log.Info().Str("provider", id).Str("model", model).Msg("chat started")

	fmt.Fprintln(t.out, panelStyle.Render(fmt.Sprintf(
		"Started a chat with the agent %s (provider: %s).\nType %s or %s to leave.",
		strongStyle.Render(model), id, strongStyle.Render("/back"), strongStyle.Render("/exit"))))

	for {
		input, ok := t.readLine(strongStyle.Render("You > "))
		if !ok {
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if low := strings.ToLower(input); low == "/back" || low == "/exit" {
			return
		}

		answer, err := t.runTask(ctx, a, input)
		switch {
		case err == nil:
			t.printAnswer(sess, answer)
		case stderrors.Is(err, errLeaveChat):
			return
		case stderrors.Is(err, context.Canceled) && ctx.Err() == nil:
			fmt.Fprintln(t.out)
			fmt.Fprintln(t.out, noticeStyle.Render("Interrupted; the unfinished turn was discarded."))
		default:
			// Unrecoverable task failure; the session is discarded.
			t.printError(err)
			return
		}
	}
}

// runTask drives one prompt to completion, relaying clarifying questions
// back to the user.
func (t *Terminal) runTask(ctx context.Context, a *agent.Agent, prompt string) (string, error) {
	answer, err := t.step(ctx, func(c context.Context) (string, error) {
		return a.Run(c, prompt, t.callbacks())
	})
	for err == nil && a.State() == agent.StateAwaitingUser {
		t.printQuestion(a.Question())
		reply, ok := t.readLine(strongStyle.Render("You > "))
		if !ok {
			return "", errors.New("input closed while a clarifying question was pending")
		}
		reply = strings.TrimSpace(reply)
		if reply == "" {
			continue
		}
		if low := strings.ToLower(reply); low == "/back" || low == "/exit" {
			return "", errLeaveChat
		}
		answer, err = t.step(ctx, func(c context.Context) (string, error) {
			return a.Resume(c, reply, t.callbacks())
		})
	}
	return answer, err
}

// step runs one Run/Resume under an interrupt scope: Ctrl-C cancels the
// in-flight provider call or subprocess instead of killing the process.
// At the prompts themselves no scope is active, so Ctrl-C there keeps its
// process default.
func (t *Terminal) step(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return fn(runCtx)
}

func (t *Terminal) handleSettings(args []string) {
	if len(args) == 0 || args[0] == "show" {
		t.printSettings()
		return
	}
	if args[0] != "set" || len(args) < 3 {
		t.printHelp()
		return
	}

	field := strings.ToLower(args[1])
	switch field {
	case "provider":
		id := strings.ToLower(args[2])
		if err := t.store.SetDefaultProvider(id); err != nil {
			t.printError(err)
			return
		}
		t.confirmSave(fmt.Sprintf("Default provider set to '%s'.", id))
	case "api_key":
		if len(args) < 4 {
			t.printError(errors.New("usage: /settings set api_key <provider> <key>"))
			return
		}
		id := strings.ToLower(args[2])
		if err := t.store.Set(id, "api_key", args[3]); err != nil {
			t.printError(err)
			return
		}
		t.confirmSave(fmt.Sprintf("API key for '%s' saved.", id))
	case "model":
		if len(args) < 4 {
			t.printError(errors.New("usage: /settings set model <provider> <model>"))
			return
		}
		id := strings.ToLower(args[2])
		model := strings.Join(args[3:], " ")
		if err := t.store.Set(id, "model", model); err != nil {
			t.printError(err)
			return
		}
		t.confirmSave(fmt.Sprintf("Default model for '%s' set to '%s'.", id, model))
	default:
		t.printError(errors.New("unknown setting '%s'", field))
	}
}

func (t *Terminal) confirmSave(msg string) {
	if err := t.store.Save(); err != nil {
		t.printError(err)
		return
	}
	fmt.Fprintln(t.out, accentStyle.Render("✓ "+msg))
}

// readLine prompts for one line of input. Lines have no length limit;
// pasted prompts arrive whole. It reports false once input is exhausted.
func (t *Terminal) readLine(prompt string) (string, bool) {
	fmt.Fprint(t.out, prompt)
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(t.out)
		return "", false
	}
	return strings.TrimRight(line, "\r\n"), true
}

func (t *Terminal) callbacks() agent.Callbacks {
	return agent.Callbacks{
		OnModelCall: func() {
			fmt.Fprintln(t.out, dimStyle.Render("Thinking..."))
		},
		OnToolCall:   t.printToolCall,
		OnToolResult: t.printToolResult,
		OnWarning: func(msg string) {
			fmt.Fprintln(t.out, noticeStyle.Render("Warning: "+msg))
		},
	}
}
