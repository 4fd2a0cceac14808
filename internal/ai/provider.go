package ai

import (
	"context"
)

// Role identifies the author of a prompt message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// PromptMessage is one ordered element of a prompt.
type PromptMessage struct {
	Role Role
	Text string
}

// Provider represents an LLM service the pipeline can call. It is treated as
// an untrusted, latency-bearing black box: callers apply their own timeout
// and handle failure per the pipeline's fail-closed rules.
type Provider interface {
	// Invoke sends the ordered prompt messages and returns the raw response
	// text. The response is parsed defensively by the caller.
	Invoke(ctx context.Context, messages []PromptMessage) (string, error)

	// Configure sets up the provider with needed configuration
	Configure(config map[string]interface{}) error

	// Name returns the provider's name
	Name() string
}

// Factory creates LLM providers based on configuration
type Factory interface {
	// Create creates a new provider based on the given name
	Create(name string, config map[string]interface{}) (Provider, error)
}

// DefaultFactory is the default implementation of Factory. Provider selection
// happens once at process startup; the pipeline only ever sees the Provider
// interface.
type DefaultFactory struct {
	providers map[string]Provider
}

// NewDefaultFactory creates a new DefaultFactory
func NewDefaultFactory() *DefaultFactory {
	return &DefaultFactory{
		providers: make(map[string]Provider),
	}
}

// Register registers a provider with the factory
func (f *DefaultFactory) Register(name string, provider Provider) {
	f.providers[name] = provider
}

// Create creates a new provider based on the given name
func (f *DefaultFactory) Create(name string, config map[string]interface{}) (Provider, error) {
	provider, ok := f.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}

	if err := provider.Configure(config); err != nil {
		return nil, err
	}

	return provider, nil
}

// Errors
var (
	ErrProviderNotFound = error(ErrorProviderNotFound("llm provider not found"))
)

// ErrorProviderNotFound is returned when an LLM provider is not found
type ErrorProviderNotFound string

func (e ErrorProviderNotFound) Error() string {
	return string(e)
}
