package tools

import (
	"context"

	"github.com/m4xw311/meowcli/errors"
)

// AskClarifyingQuestionTool is a pseudo-tool: requesting it suspends the
// agent loop until the user answers. Execute only validates and echoes the
// question; the loop intercepts the call before execution.
type AskClarifyingQuestionTool struct{}

func (t *AskClarifyingQuestionTool) Name() string { return NameAskClarifyingQuestion }
func (t *AskClarifyingQuestionTool) Description() string {
	return "Ask the user a clarifying question and wait for their reply. Args: question (string)."
}

func (t *AskClarifyingQuestionTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	question, ok := args["question"].(string)
	if !ok || question == "" {
		return "", errors.New("missing or invalid 'question' argument")
	}
	return question, nil
}

// FinalAnswerTool is the terminal pseudo-tool: requesting it ends the task
// successfully with the given text.
type FinalAnswerTool struct{}

func (t *FinalAnswerTool) Name() string { return NameFinalAnswer }
func (t *FinalAnswerTool) Description() string {
	return "Give the final answer to the user and finish the task. Args: text (string)."
}

func (t *FinalAnswerTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	text, ok := args["text"].(string)
	if !ok {
		return "", errors.New("missing or invalid 'text' argument")
	}
	return text, nil
}
