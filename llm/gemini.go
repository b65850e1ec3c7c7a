package llm

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/m4xw311/meowcli/config"
	"github.com/m4xw311/meowcli/errors"
	"github.com/m4xw311/meowcli/session"
)

// GeminiProvider is a client for the Google Gemini API.
type GeminiProvider struct {
	client *genai.Client
	retry  retryPolicy
	log    zerolog.Logger
}

// NewGeminiProvider creates a new GeminiProvider. A stored API key is
// required.
func NewGeminiProvider(ctx context.Context, cfg config.ProviderConfig, log zerolog.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewKind(errors.KindAuth,
			"no API key configured for provider '%s'; set one with /settings set api_key %s <key>",
			config.ProviderGemini, config.ProviderGemini)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create genai client")
	}
	return &GeminiProvider{client: client, retry: defaultRetryPolicy(), log: log}, nil
}

func (p *GeminiProvider) ID() string { return config.ProviderGemini }

// Complete sends the conversation and parses the reply into final text or a
// tool request.
func (p *GeminiProvider) Complete(ctx context.Context, sess *session.Session) (*ModelResponse, error) {
	raw, err := completeWithRetry(ctx, p.retry, p.log, func(ctx context.Context) (string, error) {
		return p.generate(ctx, sess)
	})
	if err != nil {
		return nil, err
	}
	return ParseResponse(raw)
}

func (p *GeminiProvider) generate(ctx context.Context, sess *session.Session) (string, error) {
	model := p.client.GenerativeModel(sess.Model())

	instruction, contents := convertMessagesToGemini(sess.Messages())
	if instruction != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(instruction)}}
	}
	if len(contents) == 0 {
		return "", errors.New("conversation has no sendable messages")
	}

	chatSession := model.StartChat()
	chatSession.History = contents[:len(contents)-1]
	last := contents[len(contents)-1]

	resp, err := chatSession.SendMessage(ctx, last.Parts...)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	return geminiText(resp)
}

// convertMessagesToGemini converts our internal message format to Gemini's.
// The leading system prompt becomes the model's system instruction; any
// later system message (reformulation requests) stays in place as a user
// turn. Consecutive same-role turns are merged because the chat API wants
// alternating roles.
func convertMessagesToGemini(messages []session.Message) (string, []*genai.Content) {
	var instruction string
	var contents []*genai.Content

	for i, msg := range messages {
		if msg.Role == session.RoleSystem && i == 0 {
			instruction = msg.Content
			continue
		}

		role := "user"
		text := msg.Content
		switch msg.Role {
		case session.RoleAssistant:
			role = "model"
		case session.RoleTool:
			text = toolResultPrefix + text
		}

		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, genai.Text("\n"+text))
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(text)},
		})
	}
	return instruction, contents
}

// geminiText flattens the first candidate's text parts into the raw reply.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &InvalidResponseError{Reason: "provider returned no candidates"}
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	if text == "" {
		return "", &InvalidResponseError{Reason: "candidate contained no text"}
	}
	return text, nil
}

// classifyGeminiError maps API errors onto the error taxonomy. Gemini
// reports a bad API key as HTTP 400, so the message is checked too.
func classifyGeminiError(err error) error {
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return errors.WrapKind(errors.KindAuth, err,
				"authentication failed (HTTP %d); check the provider API key", apiErr.Code)
		case apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "API key"):
			return errors.WrapKind(errors.KindAuth, err, "Gemini rejected the API key")
		case apiErr.Code == http.StatusTooManyRequests:
			return errors.WrapKind(errors.KindRateLimit, err, "provider rate limit hit")
		case apiErr.Code >= http.StatusInternalServerError:
			return errors.WrapKind(errors.KindTransport, err,
				"provider returned HTTP %d", apiErr.Code)
		default:
			// Client errors below 500 are permanent and get no retry.
			return errors.Wrapf(err, "provider rejected the request (HTTP %d)", apiErr.Code)
		}
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.WrapKind(errors.KindTransport, err, "request failed")
}

// ListModels fetches the model catalog through the genai iterator.
func (p *GeminiProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	it := p.client.ListModels(ctx)
	for {
		m, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classifyGeminiError(err)
		}
		models = append(models, ModelInfo{Name: m.Name, Description: m.Description})
	}
	return models, nil
}
