package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	ccerrors "unified-thinking/internal/claudecode/errors"
)

const openaiDefaultBaseURL = "https://api.openai.com"

// OpenAIClient talks to the Chat Completions and Embeddings APIs.
type OpenAIClient struct {
	config ClientConfig
	http   *http.Client
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from config.
func NewOpenAIClient(config ClientConfig) *OpenAIClient {
	return &OpenAIClient{config: config, http: buildHTTPClient(config.TimeoutSeconds)}
}

func (c *OpenAIClient) baseURL() string {
	if c.config.BaseURL != "" {
		return c.config.BaseURL
	}
	return openaiDefaultBaseURL
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiChatRequest struct {
	Model       string           `json:"model"`
	Messages    []openaiMessage  `json:"messages"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
	Stop        []string         `json:"stop,omitempty"`
}

type openaiChoice struct {
	Message      openaiMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openaiUsage struct {
	PromptTokens     uint64 `json:"prompt_tokens"`
	CompletionTokens uint64 `json:"completion_tokens"`
}

type openaiChatResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type openaiError struct {
	Error openaiErrorDetail `json:"error"`
}

// Complete sends req to the Chat Completions API.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if c.config.APIKey == "" {
		return CompletionResponse{}, ccerrors.EnhanceError(ccerrors.NewStructuredError(ccerrors.ErrAPIKeyMissing, "openai api key is not configured"))
	}

	model := req.Model
	if model == "" {
		model = c.config.DefaultModel
	}
	if model == "" {
		model = GPT4o().ID
	}

	messages := make([]openaiMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, openaiMessage{Role: string(m.Role), Content: m.Content})
	}

	apiReq := openaiChatRequest{Model: model, Messages: messages}
	if req.Temperature != 0 {
		t := req.Temperature
		apiReq.Temperature = &t
	}
	if req.MaxTokens != 0 {
		n := req.MaxTokens
		apiReq.MaxTokens = &n
	}
	if len(req.Stop) > 0 {
		apiReq.Stop = req.Stop
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: encode openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: build openai request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return CompletionResponse{}, ccerrors.EnhanceError(ccerrors.WrapError(ccerrors.ErrLLMFailed, fmt.Errorf("openai http request failed: %w", err)))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: read openai response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr openaiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return CompletionResponse{}, ccerrors.EnhanceError(ccerrors.NewStructuredError(ccerrors.ErrLLMFailed, fmt.Sprintf("openai api error (%s): %s", apiErr.Error.Type, apiErr.Error.Message)))
		}
		return CompletionResponse{}, ccerrors.EnhanceError(ccerrors.NewStructuredError(ccerrors.ErrLLMFailed, fmt.Sprintf("openai api error (%d): %s", resp.StatusCode, string(respBody))))
	}

	var apiResp openaiChatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: parse openai response: %w", err)
	}

	var content string
	var finish string
	if len(apiResp.Choices) > 0 {
		content = apiResp.Choices[0].Message.Content
		finish = apiResp.Choices[0].FinishReason
	}

	usage := TokenUsage{InputTokens: apiResp.Usage.PromptTokens, OutputTokens: apiResp.Usage.CompletionTokens}
	spec := findModel(c.AvailableModels(), model, GPT4o())
	cost := spec.CalculateCost(usage.InputTokens, usage.OutputTokens)

	return CompletionResponse{
		ID:         apiResp.ID,
		Model:      apiResp.Model,
		Content:    content,
		StopReason: openaiStopReason(finish),
		Usage:      usage,
		Timestamp:  time.Now(),
		Cost:       &cost,
	}, nil
}

func openaiStopReason(r string) StopReason {
	switch r {
	case "stop":
		return StopEndTurn
	case "length":
		return StopMaxTokens
	case "tool_calls", "function_call":
		return StopToolUse
	default:
		return StopEndTurn
	}
}

type openaiEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openaiEmbeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type openaiEmbeddingResponse struct {
	Model string                 `json:"model"`
	Data  []openaiEmbeddingData  `json:"data"`
	Usage openaiUsage            `json:"usage"`
}

// Embed sends req to the Embeddings API.
func (c *OpenAIClient) Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	model := req.Model
	if model == "" {
		model = "text-embedding-3-small"
	}

	body, err := json.Marshal(openaiEmbeddingRequest{Model: model, Input: req.Texts})
	if err != nil {
		return EmbeddingResponse{}, fmt.Errorf("llm: encode openai embedding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return EmbeddingResponse{}, fmt.Errorf("llm: build openai embedding request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return EmbeddingResponse{}, fmt.Errorf("llm: openai http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return EmbeddingResponse{}, fmt.Errorf("llm: read openai embedding response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return EmbeddingResponse{}, ccerrors.EnhanceError(ccerrors.NewStructuredError(ccerrors.ErrLLMFailed, fmt.Sprintf("openai api error (%d): %s", resp.StatusCode, string(respBody))))
	}

	var apiResp openaiEmbeddingResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return EmbeddingResponse{}, fmt.Errorf("llm: parse openai embedding response: %w", err)
	}

	embeddings := make([][]float32, len(apiResp.Data))
	for _, d := range apiResp.Data {
		if d.Index >= 0 && d.Index < len(embeddings) {
			embeddings[d.Index] = d.Embedding
		}
	}

	return EmbeddingResponse{
		Model:      apiResp.Model,
		Embeddings: embeddings,
		Usage:      TokenUsage{InputTokens: apiResp.Usage.PromptTokens, OutputTokens: apiResp.Usage.CompletionTokens},
	}, nil
}

func (c *OpenAIClient) Provider() Provider { return ProviderOpenAI }

func (c *OpenAIClient) AvailableModels() []ModelSpec {
	return []ModelSpec{GPT4o(), GPT4oMini()}
}
