// Package terminal implements the interactive command-line surface of
// meowcli.
//
// This package owns everything the user sees: the startup banner, the
// top-level command prompt, the chat prompt inside /chat, and the rendering
// of tool calls, tool results, clarifying questions, and final answers. The
// agent package underneath knows nothing about presentation; it reports
// events through callbacks and this package turns them into styled output.
//
// # Commands
//
//   - /help: command table and a short agent-mode explainer
//   - /models: model catalog of the current default provider
//   - /chat [model]: start an agent chat; the session is bound to the
//     default provider and the resolved model for its whole life
//   - /settings show, /settings set provider|api_key|model ...: inspect and
//     change the persisted provider configuration
//   - /exit: quit
//
// Inside /chat, /back and /exit leave the chat and discard its session.
//
// # Usage
//
// Create a Terminal from the loaded configuration and run it:
//
//	term := terminal.New(store, policy, registry, log)
//	err := term.Run(ctx)
//
// RunOnce skips the prompt loop and executes a single task, for
// non-interactive invocations:
//
//	err := term.RunOnce(ctx, "summarize the README")
//
// # Interrupts
//
// Every model call and tool execution runs under a signal scope: Ctrl-C
// cancels the in-flight request or subprocess, the unfinished turn is
// dropped from the session, and the chat prompt returns. At an idle prompt
// Ctrl-C keeps its process default.
//
// # Rendering
//
// Output is styled with lipgloss (panels, tables, the banner gradient) and
// final answers render as Markdown through glamour. A dim status line
// announces every model round trip and the /models catalog fetch. Tool
// calls show as panels with their arguments truncated to a few lines; a
// successful write_file gets a green confirmation panel.
package terminal
