package llm

import "context"

// MockClient replays a scripted sequence of responses, cycling the last
// one once the script is exhausted. Useful for tests that need a Client
// without a network call.
type MockClient struct {
	Responses []CompletionResponse
	Errs      []error
	Calls     []CompletionRequest
	calls     int
}

// NewMockClient returns a client that replays responses in order.
func NewMockClient(responses ...CompletionResponse) *MockClient {
	return &MockClient{Responses: responses}
}

var _ Client = (*MockClient)(nil)

func (m *MockClient) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.Calls = append(m.Calls, req)
	idx := m.calls
	m.calls++

	if idx < len(m.Errs) && m.Errs[idx] != nil {
		return CompletionResponse{}, m.Errs[idx]
	}
	if len(m.Responses) == 0 {
		return CompletionResponse{}, nil
	}
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}

func (m *MockClient) Embed(_ context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	embeddings := make([][]float32, len(req.Texts))
	for i := range req.Texts {
		embeddings[i] = []float32{0}
	}
	return EmbeddingResponse{Model: "mock-embed", Embeddings: embeddings}, nil
}

func (m *MockClient) Provider() Provider { return ProviderMock }

func (m *MockClient) AvailableModels() []ModelSpec {
	return []ModelSpec{{ID: "mock-model"}}
}
