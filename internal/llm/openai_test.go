package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected bearer auth, got %s", r.Header.Get("Authorization"))
		}

		resp := openaiChatResponse{
			ID:    "chatcmpl_1",
			Model: GPT4o().ID,
			Choices: []openaiChoice{
				{Message: openaiMessage{Role: "assistant", Content: "hi there"}, FinishReason: "stop"},
			},
			Usage: openaiUsage{PromptTokens: 10, CompletionTokens: 5},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewOpenAIClient(NewClientConfig("test-key").WithBaseURL(server.URL))
	resp, err := client.Complete(context.Background(), NewCompletionRequest().WithMessage(UserMessage("hello")))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "hi there" {
		t.Errorf("Content = %q, want %q", resp.Content, "hi there")
	}
	if resp.StopReason != StopEndTurn {
		t.Errorf("StopReason = %v, want %v", resp.StopReason, StopEndTurn)
	}
}

func TestOpenAIClient_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openaiEmbeddingRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := openaiEmbeddingResponse{
			Model: req.Model,
			Data: []openaiEmbeddingData{
				{Embedding: []float32{0.1, 0.2}, Index: 0},
				{Embedding: []float32{0.3, 0.4}, Index: 1},
			},
			Usage: openaiUsage{PromptTokens: 4},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewOpenAIClient(NewClientConfig("test-key").WithBaseURL(server.URL))
	resp, err := client.Embed(context.Background(), EmbeddingRequest{Texts: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(resp.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(resp.Embeddings))
	}
	if resp.Embeddings[0][0] != 0.1 || resp.Embeddings[1][0] != 0.3 {
		t.Errorf("embeddings not indexed correctly: %+v", resp.Embeddings)
	}
}

func TestOpenAIClient_Complete_MissingAPIKey(t *testing.T) {
	client := NewOpenAIClient(NewClientConfig(""))
	_, err := client.Complete(context.Background(), NewCompletionRequest().WithMessage(UserMessage("hi")))
	if err == nil {
		t.Fatal("expected an error for missing api key")
	}
}
