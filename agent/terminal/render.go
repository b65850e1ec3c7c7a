package terminal

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/m4xw311/meowcli/config"
	"github.com/m4xw311/meowcli/llm"
	"github.com/m4xw311/meowcli/session"
	"github.com/m4xw311/meowcli/tools"
)

const accentColor = lipgloss.Color("#ffb6c1")

var (
	accentStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	noticeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	strongStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	dimStyle    = lipgloss.NewStyle().Faint(true)

	borderStyle = lipgloss.NewStyle().Foreground(accentColor)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
	successPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("10")).
				Padding(0, 1)
	whitePanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("15")).
			Padding(0, 1)
)

var bannerArt = []string{
	" ███╗   ███╗███████╗ ██████╗ ██╗    ██╗     ██████╗██╗     ██╗ ",
	"████╗ ████║██╔════╝██╔═══██╗██║    ██║    ██╔════╝██║     ██║",
	"██╔████╔██║█████╗  ██║   ██║██║ █╗ ██║    ██║     ██║     ██║",
	"██║╚██╔╝██║██╔══╝  ██║   ██║██║███╗██║    ██║     ██║     ██║",
	"██║ ╚═╝ ██║███████╗╚██████╔╝╚███╔███╔╝    ╚██████╗███████╗██║",
	"╚═╝     ╚═╝╚══════╝ ╚═════╝  ╚══╝╚══╝      ╚═════╝╚══════╝╚═╝",
}

var gradientFrom, gradientTo = mustHex("#ffb6c1"), mustHex("#ffffff")

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// gradientLine colors each rune on a left-to-right blend between the two
// colors.
func gradientLine(line string, from, to colorful.Color) string {
	runes := []rune(line)
	last := len(runes) - 1
	if last < 1 {
		last = 1
	}
	var b strings.Builder
	for i, r := range runes {
		c := from.BlendRgb(to, float64(i)/float64(last))
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(c.Hex())).Render(string(r)))
	}
	return b.String()
}

func newMarkdownRenderer() *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return nil
	}
	return r
}

// maskKey hides the middle of an API key for display.
func maskKey(key string) string {
	if key == "" {
		return "Not set"
	}
	if len(key) > 7 {
		return key[:4] + "..." + key[len(key)-3:]
	}
	return key
}

// formatArgs renders tool arguments as k='v' pairs in key order, each value
// truncated to five lines.
func formatArgs(args map[string]interface{}) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := fmt.Sprintf("%v", args[k])
		if lines := strings.Split(v, "\n"); len(lines) > 5 {
			v = strings.Join(lines[:5], "\n") + "\n..."
		}
		parts = append(parts, fmt.Sprintf("%s='%s'", k, v))
	}
	return strings.Join(parts, ", ")
}

func orNoDescription(desc string) string {
	if desc == "" {
		return "No description"
	}
	return desc
}

func cellStyle(row, col int) lipgloss.Style {
	return lipgloss.NewStyle().Padding(0, 1)
}

func (t *Terminal) printBanner() {
	for _, line := range bannerArt {
		fmt.Fprintln(t.out, gradientLine(line, gradientFrom, gradientTo))
	}
	fmt.Fprintln(t.out, panelStyle.Render(
		strongStyle.Render("https://github.com/m4xw311/meowcli meow :3 !")+"\n"+
			"Type "+strongStyle.Render("/help")+" to see the available commands."))
}

func (t *Terminal) printHelp() {
	fmt.Fprintln(t.out, whitePanelStyle.Render(
		strongStyle.Render("Agent Mode")+"\n"+
			"In /chat the assistant is an agent that can inspect files and run commands.\nJust give it a task."))

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(cellStyle).
		Headers("Command", "Description").
		Row("/help", "Show this message").
		Row("/models", "List the models available from the current provider").
		Row("/chat [model]", "Start a chat with the agent; without a model the provider default is used").
		Row("/settings show", "Show the current settings").
		Row("/settings set provider <name>", "Set the default provider (base, openrouter, gemini)").
		Row("/settings set api_key <provider> <key>", "Set the API key for a provider").
		Row("/settings set model <provider> <model>", "Set the default model for a provider").
		Row("/exit", "Quit")
	fmt.Fprintln(t.out, tbl.Render())
}

func (t *Terminal) printSettings() {
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(cellStyle).
		Headers("Setting", "Value").
		Row("Default provider", t.store.DefaultProvider())

	for _, id := range t.store.Providers() {
		pc, err := t.store.Get(id)
		if err != nil {
			continue
		}
		model := pc.Model
		if model == "" {
			model = "Not set"
		}
		tbl.Row(strongStyle.Render(id), "").
			Row("  API key", maskKey(pc.APIKey)).
			Row("  Default model", model)
	}
	fmt.Fprintln(t.out, tbl.Render())
}

func (t *Terminal) printModels(providerID string, models []llm.ModelInfo) {
	fmt.Fprintln(t.out, strongStyle.Render(fmt.Sprintf("Available models (%s)", providerID)))

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(cellStyle)

	if providerID == config.ProviderGemini {
		tbl.Headers("Model", "Description")
		for _, m := range models {
			tbl.Row(m.Name, orNoDescription(m.Description))
		}
	} else {
		tbl.Headers("Model", "Description", "Type")
		for _, m := range models {
			if !m.Community {
				tbl.Row(m.Name, orNoDescription(m.Description), "Official")
			}
		}
		for _, m := range models {
			if m.Community {
				tbl.Row(m.Name, orNoDescription(m.Description), "Community")
			}
		}
	}
	fmt.Fprintln(t.out, tbl.Render())
}

func (t *Terminal) printToolCall(call *session.ToolCall) {
	fmt.Fprintln(t.out, panelStyle.Render(
		dimStyle.Render("→ Calling tool: ")+accentStyle.Render(call.Name)+"("+formatArgs(call.Args)+")"))
}

func (t *Terminal) printToolResult(res session.ToolResult) {
	switch {
	case res.Success && (res.ToolName == tools.NameFinalAnswer || res.ToolName == tools.NameAskClarifyingQuestion):
		// Rendered through the answer panel / question panel instead.
	case res.Success && res.ToolName == tools.NameWriteFile:
		fmt.Fprintln(t.out, successPanelStyle.Render(res.Output))
	default:
		fmt.Fprintln(t.out, res.Text())
	}
}

func (t *Terminal) printQuestion(question string) {
	fmt.Fprintln(t.out, panelStyle.Render(
		accentStyle.Render("Question from the agent")+"\n"+question))
}

// printAnswer renders a finished task: a final_answer lands in a pink panel,
// a plain text reply outside the tool protocol renders bare. Both are
// treated as Markdown.
func (t *Terminal) printAnswer(sess *session.Session, answer string) {
	rendered := t.markdown(answer)
	msgs := sess.Messages()
	if n := len(msgs); n > 0 && msgs[n-1].Role == session.RoleTool {
		fmt.Fprintln(t.out, panelStyle.Render(rendered))
		return
	}
	fmt.Fprintln(t.out, rendered)
}

func (t *Terminal) markdown(text string) string {
	if t.md == nil {
		return text
	}
	out, err := t.md.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func (t *Terminal) printError(err error) {
	fmt.Fprintln(t.out, errorStyle.Render("Error: "+err.Error()))
}
