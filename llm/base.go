package llm

import (
	"context"
	"net/http"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/rs/zerolog"

	"github.com/m4xw311/meowcli/config"
	"github.com/m4xw311/meowcli/session"
)

const (
	baseChatURL   = "https://text.pollinations.ai/openai"
	baseModelsURL = "https://text.pollinations.ai/models"
)

// BaseProvider is a client for the Pollinations free-tier aggregator. It
// speaks the OpenAI chat completions dialect; an API key is optional.
type BaseProvider struct {
	client *openai.Client
	http   *http.Client
	apiKey string
	retry  retryPolicy
	log    zerolog.Logger
}

// NewBaseProvider creates a new BaseProvider.
func NewBaseProvider(cfg config.ProviderConfig, log zerolog.Logger) *BaseProvider {
	options := []option.RequestOption{
		option.WithBaseURL(baseChatURL),
		// Backoff lives in completeWithRetry; the SDK must not retry on its own.
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		options = append(options, option.WithAPIKey(cfg.APIKey))
	}

	c := openai.NewClient(options...)
	return &BaseProvider{
		client: &c,
		http:   &http.Client{Timeout: catalogTimeout},
		apiKey: cfg.APIKey,
		retry:  defaultRetryPolicy(),
		log:    log,
	}
}

func (p *BaseProvider) ID() string { return config.ProviderBase }

// Complete sends the conversation and parses the reply into final text or a
// tool request.
func (p *BaseProvider) Complete(ctx context.Context, sess *session.Session) (*ModelResponse, error) {
	raw, err := completeWithRetry(ctx, p.retry, p.log, func(ctx context.Context) (string, error) {
		return completeChat(ctx, p.client, sess)
	})
	if err != nil {
		return nil, err
	}
	return ParseResponse(raw)
}

// ListModels fetches the model catalog. Pollinations returns a plain JSON
// array instead of the usual data envelope.
func (p *BaseProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var catalog []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Community   bool   `json:"community"`
	}
	if err := fetchModelList(ctx, p.http, baseModelsURL, p.apiKey, &catalog); err != nil {
		return nil, err
	}

	models := make([]ModelInfo, 0, len(catalog))
	for _, m := range catalog {
		models = append(models, ModelInfo{Name: m.Name, Description: m.Description, Community: m.Community})
	}
	return models, nil
}
