package llm

import (
	"context"
	"fmt"
)

// MultiProviderClient dispatches completion/embedding calls across several
// provider clients, falling back to a default provider when the caller
// doesn't pin one.
type MultiProviderClient struct {
	clients         map[Provider]Client
	defaultProvider Provider
}

var _ Client = (*MultiProviderClient)(nil)

// NewMultiProviderClient returns an empty dispatcher; chain WithClient and
// WithDefaultProvider to populate it.
func NewMultiProviderClient() *MultiProviderClient {
	return &MultiProviderClient{clients: make(map[Provider]Client)}
}

// WithClient registers client under provider and returns m for chaining.
func (m *MultiProviderClient) WithClient(provider Provider, client Client) *MultiProviderClient {
	m.clients[provider] = client
	return m
}

// WithDefaultProvider sets which registered provider handles calls that
// don't request one explicitly.
func (m *MultiProviderClient) WithDefaultProvider(provider Provider) *MultiProviderClient {
	m.defaultProvider = provider
	return m
}

// GetClient returns the client registered for provider.
func (m *MultiProviderClient) GetClient(provider Provider) (Client, error) {
	c, ok := m.clients[provider]
	if !ok {
		return nil, fmt.Errorf("llm: no client registered for provider %q", provider)
	}
	return c, nil
}

// DefaultClient returns the client registered for the default provider.
func (m *MultiProviderClient) DefaultClient() (Client, error) {
	if m.defaultProvider == "" {
		return nil, fmt.Errorf("llm: no default provider configured")
	}
	return m.GetClient(m.defaultProvider)
}

// CompleteWith runs req against the client registered for provider.
func (m *MultiProviderClient) CompleteWith(ctx context.Context, provider Provider, req CompletionRequest) (CompletionResponse, error) {
	c, err := m.GetClient(provider)
	if err != nil {
		return CompletionResponse{}, err
	}
	return c.Complete(ctx, req)
}

// Complete runs req against the default provider's client.
func (m *MultiProviderClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	c, err := m.DefaultClient()
	if err != nil {
		return CompletionResponse{}, err
	}
	return c.Complete(ctx, req)
}

// EmbedWith runs req against the client registered for provider.
func (m *MultiProviderClient) EmbedWith(ctx context.Context, provider Provider, req EmbeddingRequest) (EmbeddingResponse, error) {
	c, err := m.GetClient(provider)
	if err != nil {
		return EmbeddingResponse{}, err
	}
	return c.Embed(ctx, req)
}

// Embed runs req against the default provider's client.
func (m *MultiProviderClient) Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	c, err := m.DefaultClient()
	if err != nil {
		return EmbeddingResponse{}, err
	}
	return c.Embed(ctx, req)
}

// Provider returns the default provider's identity.
func (m *MultiProviderClient) Provider() Provider {
	return m.defaultProvider
}

// AvailableModels returns the default provider's models, or nil if none is
// configured.
func (m *MultiProviderClient) AvailableModels() []ModelSpec {
	c, err := m.DefaultClient()
	if err != nil {
		return nil
	}
	return c.AvailableModels()
}

// AllModels returns every registered provider's model list, keyed by
// provider.
func (m *MultiProviderClient) AllModels() map[Provider][]ModelSpec {
	out := make(map[Provider][]ModelSpec, len(m.clients))
	for provider, c := range m.clients {
		out[provider] = c.AvailableModels()
	}
	return out
}
