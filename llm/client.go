package llm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/m4xw311/meowcli/config"
	"github.com/m4xw311/meowcli/errors"
	"github.com/m4xw311/meowcli/session"
)

// ModelInfo describes one model offered by a provider.
type ModelInfo struct {
	Name        string
	Description string
	Community   bool
}

// ModelResponse is a provider reply after protocol parsing. Exactly one of
// FinalText and ToolRequest is set: the model either answered the user or
// asked for a tool, never both.
type ModelResponse struct {
	Raw         string
	FinalText   string
	ToolRequest *session.ToolCall
}

// IsToolRequest reports whether the model asked for a tool.
func (r *ModelResponse) IsToolRequest() bool { return r.ToolRequest != nil }

// ProviderClient is the interface for interacting with a Large Language
// Model provider.
type ProviderClient interface {
	// ID returns the provider identifier ("base", "openrouter", "gemini").
	ID() string
	// Complete sends the session's full history to the provider's model and
	// returns the parsed response. Rate-limit and transport failures are
	// retried internally; auth and protocol failures are not.
	Complete(ctx context.Context, sess *session.Session) (*ModelResponse, error)
	// ListModels fetches the provider's model catalog. The call is lazy and
	// never cached; each invocation hits the network.
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// InvalidResponseError reports a model reply that does not follow the JSON
// action protocol. The raw reply is kept so the caller can ask the model to
// reformulate.
type InvalidResponseError struct {
	Raw    string
	Reason string
}

func (e *InvalidResponseError) Error() string {
	return "invalid model response: " + e.Reason
}

func (e *InvalidResponseError) Kind() errors.Kind { return errors.KindInvalidResponse }

// NewProvider creates the client for the given provider id using the stored
// credentials. Providers read the model name from the session at completion
// time, so one client serves any model the provider offers.
func NewProvider(ctx context.Context, id string, cfg config.ProviderConfig, log zerolog.Logger) (ProviderClient, error) {
	switch id {
	case config.ProviderBase:
		return NewBaseProvider(cfg, log), nil
	case config.ProviderOpenRouter:
		return NewOpenRouterProvider(cfg, log)
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, cfg, log)
	default:
		return nil, errors.New("unknown provider '%s'", id)
	}
}

// MockProviderClient is a scripted client for testing. Complete pops one
// queued response per call.
type MockProviderClient struct {
	Provider  string
	Responses []MockResponse
	Models    []ModelInfo
	Calls     int
}

// MockResponse is one scripted Complete outcome.
type MockResponse struct {
	Response *ModelResponse
	Err      error
}

func (m *MockProviderClient) ID() string {
	if m.Provider == "" {
		return "mock"
	}
	return m.Provider
}

func (m *MockProviderClient) Complete(ctx context.Context, sess *session.Session) (*ModelResponse, error) {
	if m.Calls >= len(m.Responses) {
		return nil, errors.New("mock provider has no response scripted for call %d", m.Calls+1)
	}
	r := m.Responses[m.Calls]
	m.Calls++
	return r.Response, r.Err
}

func (m *MockProviderClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return m.Models, nil
}
