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

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicAPIVersion     = "2023-06-01"
)

// AnthropicClient talks to the Claude Messages API.
type AnthropicClient struct {
	config ClientConfig
	http   *http.Client
}

var _ Client = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client from config.
func NewAnthropicClient(config ClientConfig) *AnthropicClient {
	return &AnthropicClient{config: config, http: buildHTTPClient(config.TimeoutSeconds)}
}

func (c *AnthropicClient) baseURL() string {
	if c.config.BaseURL != "" {
		return c.config.BaseURL
	}
	return anthropicDefaultBaseURL
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model         string              `json:"model"`
	Messages      []anthropicMessage  `json:"messages"`
	MaxTokens     int                 `json:"max_tokens"`
	System        string              `json:"system,omitempty"`
	Temperature   *float64            `json:"temperature,omitempty"`
	StopSequences []string            `json:"stop_sequences,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens              uint64  `json:"input_tokens"`
	OutputTokens             uint64  `json:"output_tokens"`
	CacheReadInputTokens     *uint64 `json:"cache_read_input_tokens,omitempty"`
	CacheCreationInputTokens *uint64 `json:"cache_creation_input_tokens,omitempty"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      anthropicUsage     `json:"usage"`
}

type anthropicErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type anthropicError struct {
	Error anthropicErrorDetail `json:"error"`
}

// Complete sends req to the Messages API. System-role messages are
// folded into the top-level system field, since Anthropic has no
// per-message system role.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if c.config.APIKey == "" {
		return CompletionResponse{}, ccerrors.EnhanceError(ccerrors.NewStructuredError(ccerrors.ErrAPIKeyMissing, "anthropic api key is not configured"))
	}

	model := req.Model
	if model == "" {
		model = c.config.DefaultModel
	}
	if model == "" {
		model = ClaudeSonnet().ID
	}

	system := req.System
	messages := make([]anthropicMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		messages = append(messages, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	apiReq := anthropicRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: maxTokens,
		System:    system,
	}
	if req.Temperature != 0 {
		t := req.Temperature
		apiReq.Temperature = &t
	}
	if len(req.Stop) > 0 {
		apiReq.StopSequences = req.Stop
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: encode anthropic request: %w", err)
	}

	url := c.baseURL() + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: build anthropic request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.config.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)
	httpReq.Header.Set("content-type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return CompletionResponse{}, ccerrors.EnhanceError(ccerrors.WrapError(ccerrors.ErrLLMFailed, fmt.Errorf("anthropic http request failed: %w", err)))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: read anthropic response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr anthropicError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return CompletionResponse{}, ccerrors.EnhanceError(ccerrors.NewStructuredError(ccerrors.ErrLLMFailed, fmt.Sprintf("anthropic api error (%s): %s", apiErr.Error.Type, apiErr.Error.Message)))
		}
		return CompletionResponse{}, ccerrors.EnhanceError(ccerrors.NewStructuredError(ccerrors.ErrLLMFailed, fmt.Sprintf("anthropic api error (%d): %s", resp.StatusCode, string(respBody))))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: parse anthropic response: %w", err)
	}

	var content bytes.Buffer
	for _, c := range apiResp.Content {
		content.WriteString(c.Text)
	}

	usage := TokenUsage{
		InputTokens:         apiResp.Usage.InputTokens,
		OutputTokens:        apiResp.Usage.OutputTokens,
		CacheReadTokens:     apiResp.Usage.CacheReadInputTokens,
		CacheCreationTokens: apiResp.Usage.CacheCreationInputTokens,
	}

	spec := findModel(c.AvailableModels(), model, ClaudeSonnet())
	cost := spec.CalculateCost(usage.InputTokens, usage.OutputTokens)

	return CompletionResponse{
		ID:         apiResp.ID,
		Model:      apiResp.Model,
		Content:    content.String(),
		StopReason: anthropicStopReason(apiResp.StopReason),
		Usage:      usage,
		Timestamp:  time.Now(),
		Cost:       &cost,
	}, nil
}

func anthropicStopReason(r string) StopReason {
	switch r {
	case "end_turn":
		return StopEndTurn
	case "max_tokens":
		return StopMaxTokens
	case "stop_sequence":
		return StopSequenceStop
	case "tool_use":
		return StopToolUse
	default:
		return StopEndTurn
	}
}

// Embed is unsupported: Anthropic does not expose a native embedding API.
func (c *AnthropicClient) Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	return EmbeddingResponse{}, fmt.Errorf("llm: anthropic does not provide a direct embedding api")
}

func (c *AnthropicClient) Provider() Provider { return ProviderAnthropic }

func (c *AnthropicClient) AvailableModels() []ModelSpec {
	return []ModelSpec{ClaudeOpus(), ClaudeSonnet(), ClaudeHaiku()}
}

func findModel(models []ModelSpec, id string, fallback ModelSpec) ModelSpec {
	for _, m := range models {
		if m.ID == id {
			return m
		}
	}
	return fallback
}
