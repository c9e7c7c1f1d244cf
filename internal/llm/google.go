package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	ccerrors "unified-thinking/internal/claudecode/errors"
)

const googleDefaultBaseURL = "https://generativelanguage.googleapis.com"

// GoogleClient talks to the Gemini generateContent API.
type GoogleClient struct {
	config ClientConfig
	http   *http.Client
}

var _ Client = (*GoogleClient)(nil)

// NewGoogleClient builds a client from config.
func NewGoogleClient(config ClientConfig) *GoogleClient {
	return &GoogleClient{config: config, http: buildHTTPClient(config.TimeoutSeconds)}
}

func (c *GoogleClient) baseURL() string {
	if c.config.BaseURL != "" {
		return c.config.BaseURL
	}
	return googleDefaultBaseURL
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     uint64 `json:"promptTokenCount"`
	CandidatesTokenCount uint64 `json:"candidatesTokenCount"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate   `json:"candidates"`
	UsageMetadata geminiUsageMetadata `json:"usageMetadata"`
}

type geminiErrorDetail struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type geminiError struct {
	Error geminiErrorDetail `json:"error"`
}

// Complete sends req to the generateContent endpoint. req.System goes into
// the dedicated systemInstruction field. Gemini has no system role on its
// content turns, so system-role messages in req.Messages are sent as "user"
// turns; any assistant turn maps to Gemini's "model" role.
func (c *GoogleClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if c.config.APIKey == "" {
		return CompletionResponse{}, ccerrors.EnhanceError(ccerrors.NewStructuredError(ccerrors.ErrAPIKeyMissing, "gemini api key is not configured"))
	}

	model := req.Model
	if model == "" {
		model = c.config.DefaultModel
	}
	if model == "" {
		model = Gemini20Flash().ID
	}

	contents := make([]geminiContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := geminiRole(m.Role)
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}

	apiReq := geminiRequest{Contents: contents}
	if req.System != "" {
		apiReq.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.Temperature != 0 || req.MaxTokens != 0 || len(req.Stop) > 0 {
		gc := &geminiGenerationConfig{}
		if req.Temperature != 0 {
			t := req.Temperature
			gc.Temperature = &t
		}
		if req.MaxTokens != 0 {
			n := req.MaxTokens
			gc.MaxOutputTokens = &n
		}
		if len(req.Stop) > 0 {
			gc.StopSequences = req.Stop
		}
		apiReq.GenerationConfig = gc
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: encode gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL(), model, url.QueryEscape(c.config.APIKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return CompletionResponse{}, ccerrors.EnhanceError(ccerrors.WrapError(ccerrors.ErrLLMFailed, fmt.Errorf("gemini http request failed: %w", err)))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: read gemini response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr geminiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return CompletionResponse{}, ccerrors.EnhanceError(ccerrors.NewStructuredError(ccerrors.ErrLLMFailed, fmt.Sprintf("gemini api error (%s): %s", apiErr.Error.Status, apiErr.Error.Message)))
		}
		return CompletionResponse{}, ccerrors.EnhanceError(ccerrors.NewStructuredError(ccerrors.ErrLLMFailed, fmt.Sprintf("gemini api error (%d): %s", resp.StatusCode, string(respBody))))
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: parse gemini response: %w", err)
	}

	var content bytes.Buffer
	var finish string
	if len(apiResp.Candidates) > 0 {
		finish = apiResp.Candidates[0].FinishReason
		for _, p := range apiResp.Candidates[0].Content.Parts {
			content.WriteString(p.Text)
		}
	}

	usage := TokenUsage{
		InputTokens:  apiResp.UsageMetadata.PromptTokenCount,
		OutputTokens: apiResp.UsageMetadata.CandidatesTokenCount,
	}
	spec := findModel(c.AvailableModels(), model, Gemini20Flash())
	cost := spec.CalculateCost(usage.InputTokens, usage.OutputTokens)

	return CompletionResponse{
		Model:      model,
		Content:    content.String(),
		StopReason: geminiStopReason(finish),
		Usage:      usage,
		Timestamp:  time.Now(),
		Cost:       &cost,
	}, nil
}

func geminiRole(r ChatRole) string {
	switch r {
	case RoleAssistant:
		return "model"
	default:
		return "user"
	}
}

func geminiStopReason(r string) StopReason {
	switch r {
	case "STOP":
		return StopEndTurn
	case "MAX_TOKENS":
		return StopMaxTokens
	default:
		return StopEndTurn
	}
}

// Embed is not implemented: the teacher's own Gemini feature gate never
// wired an embedding call, and SPEC_FULL.md routes embedding traffic
// through the dedicated embeddings package instead.
func (c *GoogleClient) Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	return EmbeddingResponse{}, fmt.Errorf("llm: gemini embedding is not implemented")
}

func (c *GoogleClient) Provider() Provider { return ProviderGoogle }

func (c *GoogleClient) AvailableModels() []ModelSpec {
	return []ModelSpec{Gemini20Flash(), Gemini15Pro(), Gemini15Flash()}
}
