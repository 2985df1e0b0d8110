// internal/llm/interface.go
package llm

import (
	"context"
	"errors"
)

var ErrUnknownProvider = errors.New("unknown LLM provider")

// CompletionRequest is the provider-independent request shape.
type CompletionRequest struct {
	Prompt       string                 `json:"prompt"`
	SystemPrompt string                 `json:"system_prompt,omitempty"`
	MaxTokens    int                    `json:"max_tokens,omitempty"`
	Temperature  float32                `json:"temperature,omitempty"`
	TopP         float32                `json:"top_p,omitempty"`
	Model        string                 `json:"model,omitempty"`
	StopWords    []string               `json:"stop_words,omitempty"`
	ExtraParams  map[string]interface{} `json:"extra_params,omitempty"`
}

// ResponseFormat constrains the completion output shape. Type is either
// "json_object" or "json_schema"; Name/Schema/Strict are only consulted for
// the latter. Providers that cannot enforce the constraint natively fall
// back to prompt instructions.
type ResponseFormat struct {
	Type   string         `json:"type"`
	Name   string         `json:"name,omitempty"`
	Schema map[string]any `json:"schema,omitempty"`
	Strict bool           `json:"strict,omitempty"`
}

// ResponseFormatParam is the ExtraParams key carrying a *ResponseFormat.
const ResponseFormatParam = "response_format"

// CompletionResponse is the provider-independent response shape.
type CompletionResponse struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
	TokensUsed   int    `json:"tokens_used,omitempty"`
	PromptTokens int    `json:"prompt_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	ModelName    string `json:"model_name,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
}

// Provider is the capability boundary to the external generative model.
// Implementations must be safe for concurrent use after Initialize.
type Provider interface {
	// Initialize the provider from a flat config map (api_key, default_model, ...).
	Initialize(config map[string]string) error

	// GetName returns the human-readable provider name.
	GetName() string

	// GetSupportedModels lists models the provider can serve.
	GetSupportedModels() []string

	// CompleteText performs a single, non-retried completion call.
	CompleteText(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ProviderFactory constructs an uninitialized provider.
type ProviderFactory func() Provider

var providers = make(map[string]ProviderFactory)

// Register adds a provider factory under the given name. Called from
// provider package init functions.
func Register(name string, factory ProviderFactory) {
	providers[name] = factory
}

// GetProvider creates and initializes the named provider.
func GetProvider(name string, config map[string]string) (Provider, error) {
	factory, exists := providers[name]
	if !exists {
		return nil, ErrUnknownProvider
	}

	provider := factory()
	if err := provider.Initialize(config); err != nil {
		return nil, err
	}
	return provider, nil
}

// ListProviders returns all registered provider names.
func ListProviders() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	return names
}

// GetSupportedModelsForProvider returns the model list of a registered
// provider without initializing it.
func GetSupportedModelsForProvider(name string) ([]string, error) {
	factory, exists := providers[name]
	if !exists {
		return nil, ErrUnknownProvider
	}
	return factory().GetSupportedModels(), nil
}
