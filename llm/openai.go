package llm

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/openai/openai-go/v2"

	"github.com/m4xw311/meowcli/errors"
	"github.com/m4xw311/meowcli/session"
)

// Shared plumbing for the providers that speak the OpenAI chat completions
// dialect (base and openrouter).

const (
	catalogTimeout  = 30 * time.Second
	maxCatalogBytes = 4 << 20
)

// completeChat sends the conversation to an OpenAI-compatible endpoint and
// returns the raw assistant text.
func completeChat(ctx context.Context, client *openai.Client, sess *session.Session) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(sess.Model()),
		Messages: convertMessages(sess.Messages()),
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &InvalidResponseError{Reason: "provider returned no choices"}
	}
	return resp.Choices[0].Message.Content, nil
}

// convertMessages converts our internal message format to OpenAI's. Tool
// results travel as user messages carrying the TOOL_RESULT prefix; the
// system prompt teaches the model to read them that way.
func convertMessages(messages []session.Message) []openai.ChatCompletionMessageParamUnion {
	var chatMessages []openai.ChatCompletionMessageParamUnion
	for _, msg := range messages {
		switch msg.Role {
		case session.RoleSystem:
			chatMessages = append(chatMessages, openai.SystemMessage(msg.Content))
		case session.RoleAssistant:
			chatMessages = append(chatMessages, openai.AssistantMessage(msg.Content))
		case session.RoleTool:
			chatMessages = append(chatMessages, openai.UserMessage(toolResultPrefix+msg.Content))
		default:
			chatMessages = append(chatMessages, openai.UserMessage(msg.Content))
		}
	}
	return chatMessages
}

// classifyOpenAIError maps SDK errors onto the error taxonomy so the retry
// policy can tell transient failures from permanent ones.
func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return errors.WrapKind(errors.KindAuth, err,
				"authentication failed (HTTP %d); check the provider API key", apiErr.StatusCode)
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return errors.WrapKind(errors.KindRateLimit, err, "provider rate limit hit")
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return errors.WrapKind(errors.KindTransport, err,
				"provider returned HTTP %d", apiErr.StatusCode)
		default:
			// Client errors below 500 are permanent and get no retry.
			return errors.Wrapf(err, "provider rejected the request (HTTP %d)", apiErr.StatusCode)
		}
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.WrapKind(errors.KindTransport, err, "request failed")
}

// fetchModelList GETs a provider's model catalog and decodes the JSON body
// into out. No caching, no retries; a failed listing is reported once.
func fetchModelList(ctx context.Context, client *http.Client, url, apiKey string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to build model list request")
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.WrapKind(errors.KindTransport, err, "model list request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return errors.WrapKind(errors.KindTransport, err, "failed to read model list response")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.NewKind(errors.KindAuth,
			"model list request rejected (HTTP %d); check the provider API key", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.NewKind(errors.KindRateLimit, "model list request rate limited")
	case resp.StatusCode != http.StatusOK:
		return errors.NewKind(errors.KindTransport,
			"model list request returned HTTP %d: %s", resp.StatusCode, snippet(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.WrapKind(errors.KindInvalidResponse, err, "could not decode model list")
	}
	return nil
}

func snippet(body []byte) string {
	const max = 200
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
