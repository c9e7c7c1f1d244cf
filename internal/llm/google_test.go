package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGoogleClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.RawQuery, "key=test-key") {
			t.Errorf("expected api key in query string, got %s", r.URL.RawQuery)
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.SystemInstruction == nil {
			t.Error("expected a system instruction to be set")
		}

		resp := geminiResponse{
			Candidates: []geminiCandidate{
				{
					Content:      geminiContent{Role: "model", Parts: []geminiPart{{Text: "hi there"}}},
					FinishReason: "STOP",
				},
			},
			UsageMetadata: geminiUsageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 5},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewGoogleClient(NewClientConfig("test-key").WithBaseURL(server.URL))
	resp, err := client.Complete(context.Background(), NewCompletionRequest().
		WithSystem("be terse").
		WithMessage(UserMessage("hello")))
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

func TestGeminiRole_MapsAssistantToModel(t *testing.T) {
	if geminiRole(RoleAssistant) != "model" {
		t.Errorf("expected assistant to map to model role")
	}
	if geminiRole(RoleUser) != "user" {
		t.Errorf("expected user to map to user role")
	}
	if geminiRole(RoleSystem) != "user" {
		t.Errorf("expected system to map to user role, since gemini has no per-turn system role")
	}
}

func TestGoogleClient_Embed_NotImplemented(t *testing.T) {
	client := NewGoogleClient(NewClientConfig("test-key"))
	_, err := client.Embed(context.Background(), EmbeddingRequest{Texts: []string{"a"}})
	if err == nil {
		t.Fatal("expected an error since gemini embedding is not implemented")
	}
}
