package llm

import (
	"context"
	"testing"
)

func TestMultiProviderClient_CompleteUsesDefaultProvider(t *testing.T) {
	mock := NewMockClient(CompletionResponse{Content: "from mock"})
	m := NewMultiProviderClient().WithClient(ProviderMock, mock).WithDefaultProvider(ProviderMock)

	resp, err := m.Complete(context.Background(), NewCompletionRequest().WithMessage(UserMessage("hi")))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "from mock" {
		t.Errorf("Content = %q, want %q", resp.Content, "from mock")
	}
}

func TestMultiProviderClient_CompleteWithUnregisteredProvider(t *testing.T) {
	m := NewMultiProviderClient()
	_, err := m.CompleteWith(context.Background(), ProviderAnthropic, NewCompletionRequest())
	if err == nil {
		t.Fatal("expected an error for an unregistered provider")
	}
}

func TestMultiProviderClient_CompleteWithNoDefaultProvider(t *testing.T) {
	m := NewMultiProviderClient().WithClient(ProviderMock, NewMockClient())
	_, err := m.Complete(context.Background(), NewCompletionRequest())
	if err == nil {
		t.Fatal("expected an error when no default provider is configured")
	}
}

func TestMultiProviderClient_AllModels(t *testing.T) {
	m := NewMultiProviderClient().
		WithClient(ProviderMock, NewMockClient()).
		WithClient(ProviderAnthropic, NewAnthropicClient(NewClientConfig("k")))

	all := m.AllModels()
	if len(all[ProviderAnthropic]) != 3 {
		t.Errorf("expected 3 anthropic models, got %d", len(all[ProviderAnthropic]))
	}
	if len(all[ProviderMock]) == 0 {
		t.Errorf("expected at least one mock model")
	}
}
