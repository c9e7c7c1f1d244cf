// Package config provides configuration management for the reasoning-loop
// orchestrator.
//
// Configuration can be loaded from multiple sources (in order of precedence):
// 1. Environment variables (highest priority)
// 2. Configuration file (JSON)
// 3. Default values (lowest priority)
//
// Feature flags allow enabling/disabling specific capabilities at runtime.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config represents the complete server configuration
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Memory store settings
	Memory MemoryConfig `json:"memory"`

	// Proof engine settings
	Proof ProofConfig `json:"proof"`

	// Epistemic verifier settings
	Epistemic EpistemicConfig `json:"epistemic"`

	// LLM provider settings
	LLM LLMConfig `json:"llm"`

	// Feature flags
	Features FeatureFlags `json:"features"`

	// Performance settings
	Performance PerformanceConfig `json:"performance"`

	// Logging settings
	Logging LoggingConfig `json:"logging"`
}

// ServerConfig contains server-level configuration
type ServerConfig struct {
	// Name of the server (for logging/identification)
	Name string `json:"name"`

	// Version of the server
	Version string `json:"version"`

	// Environment (development, staging, production)
	Environment string `json:"environment"`
}

// MemoryConfig contains hypergraph memory store configuration.
type MemoryConfig struct {
	// Backend selects the store implementation ("sqlite" or "neo4j").
	Backend string `json:"backend"`

	// SQLitePath is the database file path (":memory:" for an ephemeral store).
	SQLitePath string `json:"sqlite_path"`

	// SQLiteBusyTimeoutMs bounds how long a write waits on SQLITE_BUSY.
	SQLiteBusyTimeoutMs int `json:"sqlite_busy_timeout_ms"`

	// Neo4jURI, Neo4jUser, Neo4jPassword configure the graph-backend store.
	Neo4jURI      string `json:"neo4j_uri"`
	Neo4jUser     string `json:"neo4j_user"`
	Neo4jPassword string `json:"-"`

	// NodeCacheSize bounds the in-process LRU placed in front of GetNode
	// (0 or less leaves GetNode uncached).
	NodeCacheSize int `json:"node_cache_size"`
}

// ProofConfig contains tiered proof engine configuration.
type ProofConfig struct {
	// MaxTacticsPerTier caps the candidate pool tried in each tier.
	MaxTacticsPerTier int `json:"max_tactics_per_tier"`

	// Per-tier time budgets, in milliseconds.
	DecidableTimeoutMs  int `json:"decidable_timeout_ms"`
	AutomationTimeoutMs int `json:"automation_timeout_ms"`
	AITimeoutMs         int `json:"ai_timeout_ms"`

	// EnableAI gates the AI-assisted tier.
	EnableAI bool `json:"enable_ai"`

	// EnableLearning persists successful proof patterns back to memory.
	EnableLearning bool `json:"enable_learning"`

	// TryVariations synthesizes small tactic variants within a tier's budget.
	TryVariations bool `json:"try_variations"`

	// ReplBinary and ReplArgs launch the external proof-assistant process.
	ReplBinary string   `json:"repl_binary"`
	ReplArgs   []string `json:"repl_args"`
}

// EpistemicConfig contains epistemic verifier configuration.
type EpistemicConfig struct {
	// NumSamples is how many masked re-samples estimate a claim's p0.
	NumSamples int `json:"num_samples"`

	// GroundedThreshold is passed to the verifier as its hallucination
	// threshold: a claim is flagged when its budget shortfall exceeds it.
	// WeaklyGroundedThreshold is not passed to the verifier. Neither value
	// changes a claim's grounding status, which the verifier classifies
	// with fixed rules.
	GroundedThreshold       float64 `json:"grounded_threshold"`
	WeaklyGroundedThreshold float64 `json:"weakly_grounded_threshold"`

	// UseBatchVerification issues p0 estimations in parallel for lower
	// latency, accepting slightly wider variance.
	UseBatchVerification bool `json:"use_batch_verification"`

	// VerifierModel is passed to the verifier as its VerificationModel.
	VerifierModel string `json:"verifier_model"`
}

// LLMConfig contains LLM provider configuration.
type LLMConfig struct {
	// DefaultProvider selects which registered client handles unqualified calls.
	DefaultProvider string `json:"default_provider"`

	// AnthropicAPIKey, OpenAIAPIKey, GoogleAPIKey come from the environment,
	// never from a config file (see loadFromEnv); the JSON tag is "-" so
	// SaveToFile never writes a secret to disk.
	AnthropicAPIKey string `json:"-"`
	OpenAIAPIKey    string `json:"-"`
	GoogleAPIKey    string `json:"-"`

	// TimeoutSeconds bounds every provider HTTP call.
	TimeoutSeconds int `json:"timeout_seconds"`

	// TrackCosts wraps every constructed client in a cost-tracking decorator.
	TrackCosts bool `json:"track_costs"`
}

// FeatureFlags controls which features are enabled
type FeatureFlags struct {
	// Proof pipeline
	ProofGeneration bool `json:"proof_generation"`
	TieredProving   bool `json:"tiered_proving"`

	// Epistemic verification
	EpistemicVerification bool `json:"epistemic_verification"`

	// Reasoning trace persistence
	TracePersistence bool `json:"trace_persistence"`

	// Context externalization (size-thresholded summaries vs. full content)
	ContextExternalization bool `json:"context_externalization"`

	// Search and metrics
	SearchEnabled  bool `json:"search_enabled"`
	MetricsEnabled bool `json:"metrics_enabled"`
}

// PerformanceConfig contains performance tuning options
type PerformanceConfig struct {
	// MaxConcurrentThoughts limits concurrent thought processing
	MaxConcurrentThoughts int `json:"max_concurrent_thoughts"`

	// EnableDeepCopy controls whether storage returns deep copies (thread safety)
	EnableDeepCopy bool `json:"enable_deep_copy"`

	// CacheSize sets the size of various internal caches (0 = no caching)
	CacheSize int `json:"cache_size"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level sets the logging level (debug, info, warn, error)
	Level string `json:"level"`

	// Format sets the log format (text, json)
	Format string `json:"format"`

	// EnableTimestamps adds timestamps to log entries
	EnableTimestamps bool `json:"enable_timestamps"`
}

// Default returns the default configuration with all features enabled
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:        "reasoning-loop-orchestrator",
			Version:     "1.0.0",
			Environment: "development",
		},
		Memory: MemoryConfig{
			Backend:             "sqlite",
			SQLitePath:          "unified-thinking.db",
			SQLiteBusyTimeoutMs: 5000,
			NodeCacheSize:       1000,
		},
		Proof: ProofConfig{
			MaxTacticsPerTier:   20,
			DecidableTimeoutMs:  2000,
			AutomationTimeoutMs: 10000,
			AITimeoutMs:         30000,
			EnableAI:            true,
			EnableLearning:      true,
			TryVariations:       true,
			ReplBinary:          "lake",
			ReplArgs:            []string{"env", "repl"},
		},
		Epistemic: EpistemicConfig{
			NumSamples:              5,
			GroundedThreshold:       0,
			WeaklyGroundedThreshold: -2,
			UseBatchVerification:    false,
			VerifierModel:           "claude-3-5-haiku-20241022",
		},
		LLM: LLMConfig{
			DefaultProvider: "anthropic",
			TimeoutSeconds:  120,
			TrackCosts:      true,
		},
		Features: FeatureFlags{
			ProofGeneration:        true,
			TieredProving:          true,
			EpistemicVerification:  true,
			TracePersistence:       true,
			ContextExternalization: true,
			SearchEnabled:          true,
			MetricsEnabled:         true,
		},
		Performance: PerformanceConfig{
			MaxConcurrentThoughts: 100,
			EnableDeepCopy:        true,
			CacheSize:             1000,
		},
		Logging: LoggingConfig{
			Level:            "info",
			Format:           "text",
			EnableTimestamps: true,
		},
	}
}

// Load loads configuration from environment variables and applies defaults
func Load() (*Config, error) {
	cfg := Default()

	// Load from environment variables
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(path string) (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromEnv loads configuration from environment variables
// Environment variables follow the pattern: UT_<SECTION>_<KEY>
// Example: UT_SERVER_NAME, UT_MEMORY_BACKEND
func (c *Config) loadFromEnv() error {
	// Server settings
	if v := os.Getenv("UT_SERVER_NAME"); v != "" {
		c.Server.Name = v
	}
	if v := os.Getenv("UT_SERVER_VERSION"); v != "" {
		c.Server.Version = v
	}
	if v := os.Getenv("UT_SERVER_ENVIRONMENT"); v != "" {
		c.Server.Environment = v
	}

	// Memory settings
	if v := os.Getenv("UT_MEMORY_BACKEND"); v != "" {
		c.Memory.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("UT_MEMORY_SQLITE_PATH"); v != "" {
		c.Memory.SQLitePath = v
	}
	if v := os.Getenv("UT_MEMORY_SQLITE_BUSY_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Memory.SQLiteBusyTimeoutMs = n
		}
	}
	if v := os.Getenv("UT_MEMORY_NEO4J_URI"); v != "" {
		c.Memory.Neo4jURI = v
	}
	if v := os.Getenv("UT_MEMORY_NEO4J_USER"); v != "" {
		c.Memory.Neo4jUser = v
	}
	if v := os.Getenv("UT_MEMORY_NEO4J_PASSWORD"); v != "" {
		c.Memory.Neo4jPassword = v
	}
	if v := os.Getenv("UT_MEMORY_NODE_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Memory.NodeCacheSize = n
		}
	}

	// Proof engine settings
	if v := os.Getenv("UT_PROOF_MAX_TACTICS_PER_TIER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Proof.MaxTacticsPerTier = n
		}
	}
	if v := os.Getenv("UT_PROOF_ENABLE_AI"); v != "" {
		c.Proof.EnableAI = parseBool(v)
	}
	if v := os.Getenv("UT_PROOF_ENABLE_LEARNING"); v != "" {
		c.Proof.EnableLearning = parseBool(v)
	}
	if v := os.Getenv("UT_PROOF_TRY_VARIATIONS"); v != "" {
		c.Proof.TryVariations = parseBool(v)
	}
	if v := os.Getenv("UT_PROOF_REPL_BINARY"); v != "" {
		c.Proof.ReplBinary = v
	}

	// Epistemic verifier settings
	if v := os.Getenv("UT_EPISTEMIC_NUM_SAMPLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Epistemic.NumSamples = n
		}
	}
	if v := os.Getenv("UT_EPISTEMIC_USE_BATCH_VERIFICATION"); v != "" {
		c.Epistemic.UseBatchVerification = parseBool(v)
	}
	if v := os.Getenv("UT_EPISTEMIC_VERIFIER_MODEL"); v != "" {
		c.Epistemic.VerifierModel = v
	}

	// LLM provider settings
	if v := os.Getenv("UT_LLM_DEFAULT_PROVIDER"); v != "" {
		c.LLM.DefaultProvider = strings.ToLower(v)
	}
	if v := os.Getenv("UT_LLM_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.LLM.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("UT_LLM_TRACK_COSTS"); v != "" {
		c.LLM.TrackCosts = parseBool(v)
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.LLM.AnthropicAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.OpenAIAPIKey = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		c.LLM.GoogleAPIKey = v
	}

	// Feature flags
	if v := os.Getenv("UT_FEATURES_PROOF_GENERATION"); v != "" {
		c.Features.ProofGeneration = parseBool(v)
	}
	if v := os.Getenv("UT_FEATURES_TIERED_PROVING"); v != "" {
		c.Features.TieredProving = parseBool(v)
	}
	if v := os.Getenv("UT_FEATURES_EPISTEMIC_VERIFICATION"); v != "" {
		c.Features.EpistemicVerification = parseBool(v)
	}
	if v := os.Getenv("UT_FEATURES_TRACE_PERSISTENCE"); v != "" {
		c.Features.TracePersistence = parseBool(v)
	}

	// Performance settings
	if v := os.Getenv("UT_PERFORMANCE_MAX_CONCURRENT_THOUGHTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Performance.MaxConcurrentThoughts = n
		}
	}
	if v := os.Getenv("UT_PERFORMANCE_ENABLE_DEEP_COPY"); v != "" {
		c.Performance.EnableDeepCopy = parseBool(v)
	}
	if v := os.Getenv("UT_PERFORMANCE_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Performance.CacheSize = n
		}
	}

	// Logging settings
	if v := os.Getenv("UT_LOGGING_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("UT_LOGGING_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
	if v := os.Getenv("UT_LOGGING_ENABLE_TIMESTAMPS"); v != "" {
		c.Logging.EnableTimestamps = parseBool(v)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Name == "" {
		return fmt.Errorf("server.name cannot be empty")
	}
	if c.Server.Environment != "development" && c.Server.Environment != "staging" && c.Server.Environment != "production" {
		return fmt.Errorf("server.environment must be one of: development, staging, production")
	}

	// Validate memory config
	if c.Memory.Backend != "sqlite" && c.Memory.Backend != "neo4j" {
		return fmt.Errorf("memory.backend must be 'sqlite' or 'neo4j'")
	}
	if c.Memory.Backend == "sqlite" && c.Memory.SQLitePath == "" {
		return fmt.Errorf("memory.sqlite_path cannot be empty when backend is sqlite")
	}
	if c.Memory.Backend == "neo4j" && c.Memory.Neo4jURI == "" {
		return fmt.Errorf("memory.neo4j_uri cannot be empty when backend is neo4j")
	}

	// Validate proof config
	if c.Proof.MaxTacticsPerTier < 1 {
		return fmt.Errorf("proof.max_tactics_per_tier must be >= 1")
	}

	// Validate epistemic config
	if c.Epistemic.NumSamples < 1 {
		return fmt.Errorf("epistemic.num_samples must be >= 1")
	}

	// Validate LLM config
	switch c.LLM.DefaultProvider {
	case "anthropic", "openai", "google", "mock":
	default:
		return fmt.Errorf("llm.default_provider must be one of: anthropic, openai, google, mock")
	}
	if c.LLM.TimeoutSeconds < 1 {
		return fmt.Errorf("llm.timeout_seconds must be >= 1")
	}

	// Validate performance config
	if c.Performance.MaxConcurrentThoughts < 1 {
		return fmt.Errorf("performance.max_concurrent_thoughts must be >= 1")
	}
	if c.Performance.CacheSize < 0 {
		return fmt.Errorf("performance.cache_size cannot be negative")
	}

	// Validate logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json'")
	}

	return nil
}

// IsFeatureEnabled checks if a specific feature is enabled
func (c *Config) IsFeatureEnabled(feature string) bool {
	switch strings.ToLower(feature) {
	case "proof", "proof_generation":
		return c.Features.ProofGeneration
	case "tiered", "tiered_proving":
		return c.Features.TieredProving
	case "epistemic", "epistemic_verification":
		return c.Features.EpistemicVerification
	case "trace", "trace_persistence":
		return c.Features.TracePersistence
	case "context", "context_externalization":
		return c.Features.ContextExternalization
	case "search", "search_enabled":
		return c.Features.SearchEnabled
	case "metrics", "metrics_enabled":
		return c.Features.MetricsEnabled
	default:
		return false
	}
}

// parseBool parses a boolean from string (handles various formats)
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on" || s == "enabled"
}

// ToJSON serializes the configuration to JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// SaveToFile saves the configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	data, err := c.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
