// Package agent implements the task loop that turns a single user prompt
// into a finished answer by alternating model calls and tool executions.
//
// # Architecture
//
// The agent package is organized into two components:
//
//   - Core loop (this package): Contains the Agent type, its state machine,
//     and the reformulation handling for malformed model replies
//   - Terminal subpackage (agent/terminal): Implements the interactive CLI
//     that owns command dispatch and rendering
//
// # State Machine
//
// An Agent moves through five states while it works on a prompt:
//
//   - StateAwaitingModel: a completion request is in flight
//   - StateExecutingTool: a requested tool is running
//   - StateAwaitingUser: the model asked a clarifying question and the loop
//     is suspended until Resume is called
//   - StateDone: the task produced a final answer (also the resting state
//     before the first prompt)
//   - StateFailed: the task ended with an error
//
// Each cycle of one model call plus one tool execution is a turn. Turns are
// capped per Run; hitting the cap fails the task with a turn_limit error.
//
// # Suspension
//
// ask_clarifying_question does not execute like other tools. When the model
// requests it, Run returns with the question exposed through Question() and
// the call left pending in the session. Resume appends the user's answer as
// that call's tool result and continues the loop, so the call/result
// pairing survives the suspension. The turn counter carries across it.
//
// # Reformulation
//
// When a model reply cannot be parsed into an action, the loop appends the
// raw reply and a corrective system message, then asks again. Two
// reformulation attempts are allowed per turn; after that the parse error
// surfaces to the caller unchanged.
//
// # Interrupts
//
// When the context is cancelled mid-turn, the partial turn is removed from
// the session before the loop fails. The conversation holds only complete
// turns afterwards, so an interrupted chat can continue with the next Run.
// Side effects a tool already committed are not undone.
//
// # Usage
//
// To create and drive an agent:
//
//	a := agent.New(client, registry, sess, agent.Options{}, log)
//
//	answer, err := a.Run(ctx, "user prompt", agent.Callbacks{
//	    OnToolCall: func(call *session.ToolCall) {
//	        // Show the tool request
//	    },
//	    OnToolResult: func(res session.ToolResult) {
//	        // Show the tool outcome
//	    },
//	    OnWarning: func(msg string) {
//	        // Handle non-fatal warnings
//	    },
//	})
//	if err != nil {
//	    // handle error
//	}
//	if a.State() == agent.StateAwaitingUser {
//	    answer, err = a.Resume(ctx, readAnswer(a.Question()), cb)
//	}
//
// # Callbacks
//
// The Callbacks structure lets the interactive layer observe model calls,
// tool calls, tool results, and warnings as they happen. All fields are
// optional and none of them influence control flow; the loop behaves
// identically with an empty Callbacks value.
//
// # Subpackages
//
// agent/terminal: Provides the interactive command-line interface. It owns
// the top-level command dispatcher (/help, /models, /chat, /settings,
// /exit), the chat REPL, interrupt handling, and all output rendering.
package agent
