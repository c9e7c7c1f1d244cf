package llm

import (
	"net/http"
	"time"
)

// ClientConfig configures an HTTP-backed provider client.
type ClientConfig struct {
	APIKey         string
	BaseURL        string
	DefaultModel   string
	TimeoutSeconds uint64
	MaxRetries     uint32
}

// NewClientConfig returns a config with the teacher's own HTTP-client
// defaults: a generous 120s timeout and a handful of retries.
func NewClientConfig(apiKey string) ClientConfig {
	return ClientConfig{APIKey: apiKey, TimeoutSeconds: 120, MaxRetries: 3}
}

func (c ClientConfig) WithBaseURL(url string) ClientConfig {
	c.BaseURL = url
	return c
}

func (c ClientConfig) WithDefaultModel(model string) ClientConfig {
	c.DefaultModel = model
	return c
}

func (c ClientConfig) WithTimeout(seconds uint64) ClientConfig {
	c.TimeoutSeconds = seconds
	return c
}

func buildHTTPClient(timeoutSeconds uint64) *http.Client {
	return &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second}
}
