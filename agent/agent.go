package agent

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/m4xw311/meowcli/config"
	"github.com/m4xw311/meowcli/errors"
	"github.com/m4xw311/meowcli/llm"
	"github.com/m4xw311/meowcli/session"
	"github.com/m4xw311/meowcli/tools"
)

// State is the loop's current phase.
type State string

const (
	StateAwaitingModel State = "awaiting_model"
	StateExecutingTool State = "executing_tool"
	StateAwaitingUser  State = "awaiting_user"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// reformulationLimit bounds how many corrective messages one turn may spend
// on a reply that breaks the JSON action protocol.
const reformulationLimit = 2

const reformulationPrompt = `Your previous reply did not follow the protocol. Respond with exactly one JSON object of the form {"tool": "<tool_name>", "args": {...}} and nothing else.`

// Callbacks let the interactive layer observe the loop. They are
// notifications only; control flow never runs through them, and any field
// may be nil. OnModelCall fires before every completion request, including
// reformulation retries. OnToolResult fires after the result has been
// recorded in the session.
type Callbacks struct {
	OnModelCall  func()
	OnToolCall   func(call *session.ToolCall)
	OnToolResult func(res session.ToolResult)
	OnWarning    func(msg string)
}

func (cb Callbacks) modelCall() {
	if cb.OnModelCall != nil {
		cb.OnModelCall()
	}
}

func (cb Callbacks) toolCall(call *session.ToolCall) {
	if cb.OnToolCall != nil {
		cb.OnToolCall(call)
	}
}

func (cb Callbacks) toolResult(res session.ToolResult) {
	if cb.OnToolResult != nil {
		cb.OnToolResult(res)
	}
}

func (cb Callbacks) warning(msg string) {
	if cb.OnWarning != nil {
		cb.OnWarning(msg)
	}
}

// Options tunes one agent.
type Options struct {
	// MaxTurns caps model-call/tool-execution cycles per Run. Zero means
	// the default limit.
	MaxTurns int
}

// Agent drives one chat task at a time against a single session. The agent
// and its session live for a whole /chat; consecutive prompts share
// history.
type Agent struct {
	client   llm.ProviderClient
	registry *tools.Registry
	sess     *session.Session
	maxTurns int
	log      zerolog.Logger

	state    State
	question string
	turns    int
}

// New creates an agent bound to the given provider client and session.
func New(client llm.ProviderClient, reg *tools.Registry, sess *session.Session, opts Options, log zerolog.Logger) *Agent {
	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = config.DefaultMaxTurns
	}
	return &Agent{
		client:   client,
		registry: reg,
		sess:     sess,
		maxTurns: maxTurns,
		log:      log,
		state:    StateDone,
	}
}

// State returns the loop's current phase.
func (a *Agent) State() State { return a.state }

// Question returns the pending clarifying question while the agent is
// suspended in StateAwaitingUser.
func (a *Agent) Question() string { return a.question }

// Session returns the conversation this agent drives.
func (a *Agent) Session() *session.Session { return a.sess }

// Run handles one user prompt, driving the loop until the model delivers a
// final answer, asks the user a question, or fails. On a clarifying
// question it returns ("", nil) with State() == StateAwaitingUser and the
// caller answers through Resume. The turn counter resets on every Run.
func (a *Agent) Run(ctx context.Context, prompt string, cb Callbacks) (string, error) {
	if a.state == StateAwaitingUser {
		return "", errors.New("a clarifying question is pending; answer it through Resume")
	}

	a.turns = 0
	a.question = ""
	a.sess.AppendUser(prompt)
	return a.loop(ctx, cb)
}

// Resume answers the pending clarifying question and continues the loop.
// The answer becomes the tool result of the suspended call, so the pairing
// invariant holds across the suspension. Turns already spent before the
// question still count.
func (a *Agent) Resume(ctx context.Context, answer string, cb Callbacks) (string, error) {
	if a.state != StateAwaitingUser {
		return "", errors.New("no clarifying question is pending")
	}

	res := session.ToolResult{
		ToolName: tools.NameAskClarifyingQuestion,
		Success:  true,
		Output:   answer,
	}
	if err := a.sess.AppendToolResult(res); err != nil {
		a.state = StateFailed
		return "", err
	}
	cb.toolResult(res)
	a.question = ""
	return a.loop(ctx, cb)
}

func (a *Agent) loop(ctx context.Context, cb Callbacks) (string, error) {
	for {
		if a.turns >= a.maxTurns {
			a.state = StateFailed
			return "", errors.NewKind(errors.KindTurnLimit,
				"task exceeded the limit of %d turns without a final answer", a.maxTurns)
		}
		a.turns++

		// Cancellation mid-turn rewinds to here, leaving only complete
		// turns in the session.
		mark := a.sess.Len()

		a.state = StateAwaitingModel
		resp, err := a.complete(ctx, cb)
		if err != nil {
			if ctx.Err() != nil {
				a.sess.Rewind(mark)
			}
			a.state = StateFailed
			return "", err
		}

		if !resp.IsToolRequest() {
			// The model answered in plain text instead of calling
			// final_answer; the text still reaches the user.
			if err := a.sess.AppendAssistant(resp.Raw, nil); err != nil {
				a.state = StateFailed
				return "", err
			}
			a.state = StateDone
			return resp.FinalText, nil
		}

		call := resp.ToolRequest
		if err := a.sess.AppendAssistant(resp.Raw, call); err != nil {
			a.state = StateFailed
			return "", err
		}
		cb.toolCall(call)

		a.state = StateExecutingTool
		res, err := a.registry.Execute(ctx, call)
		if err != nil {
			if ctx.Err() != nil {
				a.sess.Rewind(mark)
			}
			a.state = StateFailed
			return "", err
		}

		if res.Success {
			switch call.Name {
			case tools.NameFinalAnswer:
				if err := a.sess.AppendToolResult(res); err != nil {
					a.state = StateFailed
					return "", err
				}
				cb.toolResult(res)
				a.state = StateDone
				return res.Output, nil
			case tools.NameAskClarifyingQuestion:
				// The call stays pending until Resume appends the user's
				// answer as its result.
				a.question = res.Output
				a.state = StateAwaitingUser
				return "", nil
			}
		}

		if err := a.sess.AppendToolResult(res); err != nil {
			a.state = StateFailed
			return "", err
		}
		cb.toolResult(res)
	}
}

// complete asks the model for its next action, correcting protocol
// violations up to reformulationLimit times before giving up.
func (a *Agent) complete(ctx context.Context, cb Callbacks) (*llm.ModelResponse, error) {
	for attempt := 0; ; attempt++ {
		cb.modelCall()
		resp, err := a.client.Complete(ctx, a.sess)
		if err == nil {
			return resp, nil
		}

		var invalid *llm.InvalidResponseError
		if !stderrors.As(err, &invalid) || attempt >= reformulationLimit {
			return nil, err
		}

		a.log.Debug().
			Int("attempt", attempt+1).
			Str("reason", invalid.Reason).
			Msg("asking model to reformulate")
		cb.warning(fmt.Sprintf("model reply was not parseable (%s); asking it to reformulate", invalid.Reason))

		if err := a.sess.AppendAssistant(invalid.Raw, nil); err != nil {
			return nil, err
		}
		a.sess.AppendSystem(reformulationPrompt)
	}
}
