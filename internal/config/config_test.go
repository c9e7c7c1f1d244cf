package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Verify server defaults
	if cfg.Server.Name != "reasoning-loop-orchestrator" {
		t.Errorf("Expected server name 'reasoning-loop-orchestrator', got '%s'", cfg.Server.Name)
	}
	if cfg.Server.Environment != "development" {
		t.Errorf("Expected environment 'development', got '%s'", cfg.Server.Environment)
	}

	// Verify memory defaults
	if cfg.Memory.Backend != "sqlite" {
		t.Errorf("Expected memory backend 'sqlite', got '%s'", cfg.Memory.Backend)
	}
	if cfg.Memory.SQLitePath == "" {
		t.Error("Expected a non-empty default sqlite path")
	}

	// Verify proof defaults
	if !cfg.Proof.EnableAI {
		t.Error("Expected EnableAI to be enabled by default")
	}
	if cfg.Proof.MaxTacticsPerTier < 1 {
		t.Error("Expected MaxTacticsPerTier to be positive")
	}

	// Verify epistemic defaults
	if cfg.Epistemic.NumSamples < 1 {
		t.Error("Expected NumSamples to be positive")
	}

	// Verify LLM defaults
	if cfg.LLM.DefaultProvider != "anthropic" {
		t.Errorf("Expected default provider 'anthropic', got '%s'", cfg.LLM.DefaultProvider)
	}

	// Verify all features are enabled by default
	if !cfg.Features.ProofGeneration {
		t.Error("Expected ProofGeneration to be enabled")
	}
	if !cfg.Features.EpistemicVerification {
		t.Error("Expected EpistemicVerification to be enabled")
	}

	// Verify performance defaults
	if cfg.Performance.MaxConcurrentThoughts != 100 {
		t.Errorf("Expected MaxConcurrentThoughts 100, got %d", cfg.Performance.MaxConcurrentThoughts)
	}
	if !cfg.Performance.EnableDeepCopy {
		t.Error("Expected EnableDeepCopy to be true")
	}

	// Verify logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected log level 'info', got '%s'", cfg.Logging.Level)
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}

	if cfg.Server.Name != "reasoning-loop-orchestrator" {
		t.Errorf("Expected default server name, got '%s'", cfg.Server.Name)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)

	_ = os.Setenv("UT_SERVER_NAME", "test-server")
	_ = os.Setenv("UT_SERVER_ENVIRONMENT", "production")
	_ = os.Setenv("UT_MEMORY_SQLITE_PATH", "/tmp/test.db")
	_ = os.Setenv("UT_PROOF_ENABLE_AI", "false")
	_ = os.Setenv("UT_EPISTEMIC_NUM_SAMPLES", "10")
	_ = os.Setenv("UT_LLM_DEFAULT_PROVIDER", "openai")
	_ = os.Setenv("UT_PERFORMANCE_MAX_CONCURRENT_THOUGHTS", "50")
	_ = os.Setenv("UT_LOGGING_LEVEL", "debug")
	_ = os.Setenv("ANTHROPIC_API_KEY", "sk-test-key")

	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Name != "test-server" {
		t.Errorf("Expected server name 'test-server', got '%s'", cfg.Server.Name)
	}
	if cfg.Server.Environment != "production" {
		t.Errorf("Expected environment 'production', got '%s'", cfg.Server.Environment)
	}
	if cfg.Memory.SQLitePath != "/tmp/test.db" {
		t.Errorf("Expected sqlite path '/tmp/test.db', got '%s'", cfg.Memory.SQLitePath)
	}
	if cfg.Proof.EnableAI {
		t.Error("Expected Proof.EnableAI to be disabled")
	}
	if cfg.Epistemic.NumSamples != 10 {
		t.Errorf("Expected NumSamples 10, got %d", cfg.Epistemic.NumSamples)
	}
	if cfg.LLM.DefaultProvider != "openai" {
		t.Errorf("Expected default provider 'openai', got '%s'", cfg.LLM.DefaultProvider)
	}
	if cfg.Performance.MaxConcurrentThoughts != 50 {
		t.Errorf("Expected MaxConcurrentThoughts 50, got %d", cfg.Performance.MaxConcurrentThoughts)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level 'debug', got '%s'", cfg.Logging.Level)
	}
	if cfg.LLM.AnthropicAPIKey != "sk-test-key" {
		t.Errorf("Expected AnthropicAPIKey to be read from ANTHROPIC_API_KEY, got '%s'", cfg.LLM.AnthropicAPIKey)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	configJSON := `{
		"server": {
			"name": "file-server",
			"version": "2.0.0",
			"environment": "staging"
		},
		"memory": {
			"backend": "sqlite",
			"sqlite_path": "file-store.db"
		},
		"proof": {
			"max_tactics_per_tier": 15,
			"enable_ai": false
		},
		"features": {
			"proof_generation": true,
			"epistemic_verification": false
		},
		"performance": {
			"max_concurrent_thoughts": 25,
			"enable_deep_copy": false,
			"cache_size": 500
		},
		"logging": {
			"level": "warn",
			"format": "json",
			"enable_timestamps": false
		}
	}`

	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	clearEnv(t)

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}

	if cfg.Server.Name != "file-server" {
		t.Errorf("Expected server name 'file-server', got '%s'", cfg.Server.Name)
	}
	if cfg.Server.Version != "2.0.0" {
		t.Errorf("Expected version '2.0.0', got '%s'", cfg.Server.Version)
	}
	if cfg.Server.Environment != "staging" {
		t.Errorf("Expected environment 'staging', got '%s'", cfg.Server.Environment)
	}
	if cfg.Memory.SQLitePath != "file-store.db" {
		t.Errorf("Expected sqlite path 'file-store.db', got '%s'", cfg.Memory.SQLitePath)
	}
	if cfg.Proof.MaxTacticsPerTier != 15 {
		t.Errorf("Expected MaxTacticsPerTier 15, got %d", cfg.Proof.MaxTacticsPerTier)
	}
	if cfg.Proof.EnableAI {
		t.Error("Expected Proof.EnableAI to be disabled")
	}
	if cfg.Features.EpistemicVerification {
		t.Error("Expected EpistemicVerification to be disabled")
	}
	if cfg.Performance.MaxConcurrentThoughts != 25 {
		t.Errorf("Expected MaxConcurrentThoughts 25, got %d", cfg.Performance.MaxConcurrentThoughts)
	}
	if cfg.Performance.EnableDeepCopy {
		t.Error("Expected EnableDeepCopy to be false")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Expected log level 'warn', got '%s'", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected log format 'json', got '%s'", cfg.Logging.Format)
	}
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	configJSON := `{
		"server": {
			"name": "file-server",
			"environment": "staging"
		},
		"proof": {
			"enable_ai": false
		}
	}`

	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	clearEnv(t)
	_ = os.Setenv("UT_SERVER_NAME", "env-server")
	_ = os.Setenv("UT_PROOF_ENABLE_AI", "true")
	defer clearEnv(t)

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}

	if cfg.Server.Name != "env-server" {
		t.Errorf("Expected server name 'env-server' (env override), got '%s'", cfg.Server.Name)
	}
	if !cfg.Proof.EnableAI {
		t.Error("Expected Proof.EnableAI to be enabled (env override)")
	}
	if cfg.Server.Environment != "staging" {
		t.Errorf("Expected environment 'staging' (from file), got '%s'", cfg.Server.Environment)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid default config",
			cfg:     Default(),
			wantErr: false,
		},
		{
			name: "empty server name",
			cfg: &Config{
				Server:      ServerConfig{Name: "", Environment: "development"},
				Memory:      MemoryConfig{Backend: "sqlite", SQLitePath: "x.db"},
				Proof:       ProofConfig{MaxTacticsPerTier: 1},
				Epistemic:   EpistemicConfig{NumSamples: 1},
				LLM:         LLMConfig{DefaultProvider: "mock", TimeoutSeconds: 1},
				Performance: PerformanceConfig{MaxConcurrentThoughts: 100},
				Logging:     LoggingConfig{Level: "info", Format: "text"},
			},
			wantErr: true,
			errMsg:  "server.name cannot be empty",
		},
		{
			name: "invalid environment",
			cfg: &Config{
				Server:      ServerConfig{Name: "test", Environment: "invalid"},
				Memory:      MemoryConfig{Backend: "sqlite", SQLitePath: "x.db"},
				Proof:       ProofConfig{MaxTacticsPerTier: 1},
				Epistemic:   EpistemicConfig{NumSamples: 1},
				LLM:         LLMConfig{DefaultProvider: "mock", TimeoutSeconds: 1},
				Performance: PerformanceConfig{MaxConcurrentThoughts: 100},
				Logging:     LoggingConfig{Level: "info", Format: "text"},
			},
			wantErr: true,
			errMsg:  "server.environment must be one of",
		},
		{
			name: "invalid memory backend",
			cfg: &Config{
				Server:      ServerConfig{Name: "test", Environment: "development"},
				Memory:      MemoryConfig{Backend: "postgresql"},
				Proof:       ProofConfig{MaxTacticsPerTier: 1},
				Epistemic:   EpistemicConfig{NumSamples: 1},
				LLM:         LLMConfig{DefaultProvider: "mock", TimeoutSeconds: 1},
				Performance: PerformanceConfig{MaxConcurrentThoughts: 100},
				Logging:     LoggingConfig{Level: "info", Format: "text"},
			},
			wantErr: true,
			errMsg:  "memory.backend must be 'sqlite' or 'neo4j'",
		},
		{
			name: "sqlite backend missing path",
			cfg: &Config{
				Server:      ServerConfig{Name: "test", Environment: "development"},
				Memory:      MemoryConfig{Backend: "sqlite", SQLitePath: ""},
				Proof:       ProofConfig{MaxTacticsPerTier: 1},
				Epistemic:   EpistemicConfig{NumSamples: 1},
				LLM:         LLMConfig{DefaultProvider: "mock", TimeoutSeconds: 1},
				Performance: PerformanceConfig{MaxConcurrentThoughts: 100},
				Logging:     LoggingConfig{Level: "info", Format: "text"},
			},
			wantErr: true,
			errMsg:  "memory.sqlite_path cannot be empty",
		},
		{
			name: "invalid max concurrent thoughts",
			cfg: &Config{
				Server:      ServerConfig{Name: "test", Environment: "development"},
				Memory:      MemoryConfig{Backend: "sqlite", SQLitePath: "x.db"},
				Proof:       ProofConfig{MaxTacticsPerTier: 1},
				Epistemic:   EpistemicConfig{NumSamples: 1},
				LLM:         LLMConfig{DefaultProvider: "mock", TimeoutSeconds: 1},
				Performance: PerformanceConfig{MaxConcurrentThoughts: 0},
				Logging:     LoggingConfig{Level: "info", Format: "text"},
			},
			wantErr: true,
			errMsg:  "performance.max_concurrent_thoughts must be >= 1",
		},
		{
			name: "invalid llm provider",
			cfg: &Config{
				Server:      ServerConfig{Name: "test", Environment: "development"},
				Memory:      MemoryConfig{Backend: "sqlite", SQLitePath: "x.db"},
				Proof:       ProofConfig{MaxTacticsPerTier: 1},
				Epistemic:   EpistemicConfig{NumSamples: 1},
				LLM:         LLMConfig{DefaultProvider: "bedrock", TimeoutSeconds: 1},
				Performance: PerformanceConfig{MaxConcurrentThoughts: 100},
				Logging:     LoggingConfig{Level: "info", Format: "text"},
			},
			wantErr: true,
			errMsg:  "llm.default_provider must be one of",
		},
		{
			name: "invalid log level",
			cfg: &Config{
				Server:      ServerConfig{Name: "test", Environment: "development"},
				Memory:      MemoryConfig{Backend: "sqlite", SQLitePath: "x.db"},
				Proof:       ProofConfig{MaxTacticsPerTier: 1},
				Epistemic:   EpistemicConfig{NumSamples: 1},
				LLM:         LLMConfig{DefaultProvider: "mock", TimeoutSeconds: 1},
				Performance: PerformanceConfig{MaxConcurrentThoughts: 100},
				Logging:     LoggingConfig{Level: "verbose", Format: "text"},
			},
			wantErr: true,
			errMsg:  "logging.level must be one of",
		},
		{
			name: "invalid log format",
			cfg: &Config{
				Server:      ServerConfig{Name: "test", Environment: "development"},
				Memory:      MemoryConfig{Backend: "sqlite", SQLitePath: "x.db"},
				Proof:       ProofConfig{MaxTacticsPerTier: 1},
				Epistemic:   EpistemicConfig{NumSamples: 1},
				LLM:         LLMConfig{DefaultProvider: "mock", TimeoutSeconds: 1},
				Performance: PerformanceConfig{MaxConcurrentThoughts: 100},
				Logging:     LoggingConfig{Level: "info", Format: "xml"},
			},
			wantErr: true,
			errMsg:  "logging.format must be 'text' or 'json'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && !contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, should contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestIsFeatureEnabled(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name     string
		feature  string
		expected bool
	}{
		{"proof", "proof", true},
		{"proof alias", "proof_generation", true},
		{"tiered", "tiered_proving", true},
		{"epistemic", "epistemic", true},
		{"epistemic alias", "epistemic_verification", true},
		{"unknown feature", "unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := cfg.IsFeatureEnabled(tt.feature)
			if enabled != tt.expected {
				t.Errorf("IsFeatureEnabled(%q) = %v, want %v", tt.feature, enabled, tt.expected)
			}
		})
	}

	cfg.Features.ProofGeneration = false
	if cfg.IsFeatureEnabled("proof") {
		t.Error("Expected proof generation to be disabled")
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"true", true},
		{"TRUE", true},
		{"True", true},
		{"1", true},
		{"yes", true},
		{"YES", true},
		{"on", true},
		{"enabled", true},
		{"false", false},
		{"0", false},
		{"no", false},
		{"off", false},
		{"disabled", false},
		{"", false},
		{"invalid", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseBool(tt.input)
			if result != tt.expected {
				t.Errorf("parseBool(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestToJSON(t *testing.T) {
	cfg := Default()
	data, err := cfg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() failed: %v", err)
	}

	if len(data) == 0 {
		t.Error("ToJSON() returned empty data")
	}

	jsonStr := string(data)
	if !contains(jsonStr, "server") {
		t.Error("JSON should contain 'server' field")
	}
	if !contains(jsonStr, "features") {
		t.Error("JSON should contain 'features' field")
	}
}

func TestSaveToFile(t *testing.T) {
	cfg := Default()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "saved-config.json")

	err := cfg.SaveToFile(configPath)
	if err != nil {
		t.Fatalf("SaveToFile() failed: %v", err)
	}

	loadedCfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() after save failed: %v", err)
	}

	if loadedCfg.Server.Name != cfg.Server.Name {
		t.Errorf("Loaded config doesn't match saved config: %s != %s", loadedCfg.Server.Name, cfg.Server.Name)
	}
}

// Helper functions

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"UT_SERVER_NAME",
		"UT_SERVER_VERSION",
		"UT_SERVER_ENVIRONMENT",
		"UT_MEMORY_BACKEND",
		"UT_MEMORY_SQLITE_PATH",
		"UT_MEMORY_SQLITE_BUSY_TIMEOUT_MS",
		"UT_MEMORY_NEO4J_URI",
		"UT_MEMORY_NEO4J_USER",
		"UT_MEMORY_NEO4J_PASSWORD",
		"UT_MEMORY_NODE_CACHE_SIZE",
		"UT_PROOF_MAX_TACTICS_PER_TIER",
		"UT_PROOF_ENABLE_AI",
		"UT_PROOF_ENABLE_LEARNING",
		"UT_PROOF_TRY_VARIATIONS",
		"UT_PROOF_REPL_BINARY",
		"UT_EPISTEMIC_NUM_SAMPLES",
		"UT_EPISTEMIC_USE_BATCH_VERIFICATION",
		"UT_EPISTEMIC_VERIFIER_MODEL",
		"UT_LLM_DEFAULT_PROVIDER",
		"UT_LLM_TIMEOUT_SECONDS",
		"UT_LLM_TRACK_COSTS",
		"ANTHROPIC_API_KEY",
		"OPENAI_API_KEY",
		"GOOGLE_API_KEY",
		"UT_FEATURES_PROOF_GENERATION",
		"UT_FEATURES_TIERED_PROVING",
		"UT_FEATURES_EPISTEMIC_VERIFICATION",
		"UT_FEATURES_TRACE_PERSISTENCE",
		"UT_PERFORMANCE_MAX_CONCURRENT_THOUGHTS",
		"UT_PERFORMANCE_ENABLE_DEEP_COPY",
		"UT_PERFORMANCE_CACHE_SIZE",
		"UT_LOGGING_LEVEL",
		"UT_LOGGING_FORMAT",
		"UT_LOGGING_ENABLE_TIMESTAMPS",
	}

	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

func contains(s, substr string) bool {
	if len(s) == 0 || len(substr) == 0 {
		return false
	}
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
