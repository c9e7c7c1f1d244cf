// Package llm abstracts over chat-completion providers so callers never
// depend on a specific vendor SDK directly.
package llm

import (
	"context"
	"time"
)

// ChatRole identifies the speaker of a ChatMessage.
type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn in a completion request.
type ChatMessage struct {
	Role    ChatRole
	Content string
}

// UserMessage builds a user-role ChatMessage.
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// SystemMessage builds a system-role ChatMessage.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Content: content}
}

// AssistantMessage builds an assistant-role ChatMessage.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content}
}

// CompletionRequest describes one chat-completion call.
type CompletionRequest struct {
	Messages    []ChatMessage
	System      string
	Temperature float64
	MaxTokens   int
	Model       string
	Stop        []string
}

// NewCompletionRequest returns an empty request ready for chaining.
func NewCompletionRequest() CompletionRequest {
	return CompletionRequest{}
}

// WithMessage appends a message and returns the request for chaining.
func (r CompletionRequest) WithMessage(m ChatMessage) CompletionRequest {
	r.Messages = append(r.Messages, m)
	return r
}

// WithSystem sets the system prompt.
func (r CompletionRequest) WithSystem(system string) CompletionRequest {
	r.System = system
	return r
}

// WithTemperature sets the sampling temperature.
func (r CompletionRequest) WithTemperature(t float64) CompletionRequest {
	r.Temperature = t
	return r
}

// WithMaxTokens sets the response token ceiling.
func (r CompletionRequest) WithMaxTokens(n int) CompletionRequest {
	r.MaxTokens = n
	return r
}

// WithModel pins the request to a specific model, overriding the client's
// default.
func (r CompletionRequest) WithModel(model string) CompletionRequest {
	r.Model = model
	return r
}

// WithStop sets stop sequences.
func (r CompletionRequest) WithStop(stop ...string) CompletionRequest {
	r.Stop = stop
	return r
}

// StopReason classifies why a completion stopped producing tokens.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopMaxTokens    StopReason = "max_tokens"
	StopSequenceStop StopReason = "stop_sequence"
	StopToolUse      StopReason = "tool_use"
)

// TokenUsage reports the token accounting for one completion or
// embedding call.
type TokenUsage struct {
	InputTokens         uint64
	OutputTokens        uint64
	CacheReadTokens     *uint64
	CacheCreationTokens *uint64
}

// CompletionResponse is a provider's reply to a CompletionRequest.
type CompletionResponse struct {
	ID         string
	Model      string
	Content    string
	StopReason StopReason
	Usage      TokenUsage
	Timestamp  time.Time
	Cost       *float64
}

// EmbeddingRequest describes one embedding call.
type EmbeddingRequest struct {
	Texts []string
	Model string
}

// EmbeddingResponse is a provider's reply to an EmbeddingRequest.
type EmbeddingResponse struct {
	Model      string
	Embeddings [][]float32
	Usage      TokenUsage
}

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGoogle    Provider = "google"
	ProviderMock      Provider = "mock"
)

// ModelSpec describes one model's identity and per-token pricing, used to
// compute a completion's dollar cost from its token usage.
type ModelSpec struct {
	ID                string
	InputCostPerMTok  float64
	OutputCostPerMTok float64
}

// CalculateCost computes the dollar cost of a completion from its token
// counts, using m's per-million-token pricing.
func (m ModelSpec) CalculateCost(inputTokens, outputTokens uint64) float64 {
	return float64(inputTokens)/1_000_000*m.InputCostPerMTok +
		float64(outputTokens)/1_000_000*m.OutputCostPerMTok
}

func ClaudeOpus() ModelSpec   { return ModelSpec{ID: "claude-3-opus-20240229", InputCostPerMTok: 15.0, OutputCostPerMTok: 75.0} }
func ClaudeSonnet() ModelSpec {
	return ModelSpec{ID: "claude-3-5-sonnet-20241022", InputCostPerMTok: 3.0, OutputCostPerMTok: 15.0}
}
func ClaudeHaiku() ModelSpec {
	return ModelSpec{ID: "claude-3-5-haiku-20241022", InputCostPerMTok: 0.8, OutputCostPerMTok: 4.0}
}
func GPT4o() ModelSpec     { return ModelSpec{ID: "gpt-4o", InputCostPerMTok: 2.5, OutputCostPerMTok: 10.0} }
func GPT4oMini() ModelSpec { return ModelSpec{ID: "gpt-4o-mini", InputCostPerMTok: 0.15, OutputCostPerMTok: 0.6} }
func Gemini20Flash() ModelSpec {
	return ModelSpec{ID: "gemini-2.0-flash", InputCostPerMTok: 0.1, OutputCostPerMTok: 0.4}
}
func Gemini15Pro() ModelSpec {
	return ModelSpec{ID: "gemini-1.5-pro", InputCostPerMTok: 1.25, OutputCostPerMTok: 5.0}
}
func Gemini15Flash() ModelSpec {
	return ModelSpec{ID: "gemini-1.5-flash", InputCostPerMTok: 0.075, OutputCostPerMTok: 0.3}
}

// Client is the provider-agnostic contract every backend (mock, HTTP,
// tracked wrapper) implements.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error)
	Provider() Provider
	AvailableModels() []ModelSpec
}
