package llm

import (
	"context"
	"net/http"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/rs/zerolog"

	"github.com/m4xw311/meowcli/config"
	"github.com/m4xw311/meowcli/errors"
	"github.com/m4xw311/meowcli/session"
)

const (
	openRouterBaseURL   = "https://openrouter.ai/api/v1"
	openRouterModelsURL = "https://openrouter.ai/api/v1/models"
)

// OpenRouterProvider is a client for the OpenRouter API.
type OpenRouterProvider struct {
	client *openai.Client
	http   *http.Client
	apiKey string
	retry  retryPolicy
	log    zerolog.Logger
}

// NewOpenRouterProvider creates a new OpenRouterProvider. OpenRouter
// rejects anonymous requests, so a stored API key is required.
func NewOpenRouterProvider(cfg config.ProviderConfig, log zerolog.Logger) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewKind(errors.KindAuth,
			"no API key configured for provider '%s'; set one with /settings set api_key %s <key>",
			config.ProviderOpenRouter, config.ProviderOpenRouter)
	}

	c := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(openRouterBaseURL),
		option.WithMaxRetries(0),
		option.WithHeader("HTTP-Referer", "https://github.com/m4xw311/meowcli"),
		option.WithHeader("X-Title", "meowcli"),
	)
	return &OpenRouterProvider{
		client: &c,
		http:   &http.Client{Timeout: catalogTimeout},
		apiKey: cfg.APIKey,
		retry:  defaultRetryPolicy(),
		log:    log,
	}, nil
}

func (p *OpenRouterProvider) ID() string { return config.ProviderOpenRouter }

// Complete sends the conversation and parses the reply into final text or a
// tool request.
func (p *OpenRouterProvider) Complete(ctx context.Context, sess *session.Session) (*ModelResponse, error) {
	raw, err := completeWithRetry(ctx, p.retry, p.log, func(ctx context.Context) (string, error) {
		return completeChat(ctx, p.client, sess)
	})
	if err != nil {
		return nil, err
	}
	return ParseResponse(raw)
}

// ListModels fetches the model catalog from OpenRouter's data envelope. The
// id field is what the chat endpoint accepts as a model name.
func (p *OpenRouterProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var catalog struct {
		Data []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"data"`
	}
	if err := fetchModelList(ctx, p.http, openRouterModelsURL, p.apiKey, &catalog); err != nil {
		return nil, err
	}

	models := make([]ModelInfo, 0, len(catalog.Data))
	for _, m := range catalog.Data {
		name := m.ID
		if name == "" {
			name = m.Name
		}
		models = append(models, ModelInfo{Name: name, Description: m.Description})
	}
	return models, nil
}
