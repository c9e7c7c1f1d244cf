package memory

import (
	"os"
	"path/filepath"
	"strconv"
)

// Backend selects which Store implementation NewStore constructs.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendNeo4j  Backend = "neo4j"
)

// Config configures store construction.
type Config struct {
	Backend        Backend
	SQLitePath     string
	SQLiteTimeout  int
	Neo4jURI       string
	Neo4jUser      string
	Neo4jPassword  string
}

// DefaultConfig returns an in-memory SQLite store configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend:       BackendSQLite,
		SQLitePath:    ":memory:",
		SQLiteTimeout: 5000,
	}
}

// ConfigFromEnv reads MEMORY_BACKEND, MEMORY_DB_PATH, MEMORY_BUSY_TIMEOUT_MS,
// and NEO4J_URI/NEO4J_USER/NEO4J_PASSWORD.
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()
	if v := os.Getenv("MEMORY_BACKEND"); v != "" {
		cfg.Backend = Backend(v)
	}
	if v := os.Getenv("MEMORY_DB_PATH"); v != "" {
		cfg.SQLitePath = v
		if dir := filepath.Dir(v); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
	}
	if v := os.Getenv("MEMORY_BUSY_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SQLiteTimeout = n
		}
	}
	cfg.Neo4jURI = os.Getenv("NEO4J_URI")
	cfg.Neo4jUser = os.Getenv("NEO4J_USER")
	cfg.Neo4jPassword = os.Getenv("NEO4J_PASSWORD")
	return cfg
}

// NewStore constructs the Store selected by cfg.Backend.
func NewStore(cfg *Config) (Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	switch cfg.Backend {
	case BackendNeo4j:
		return NewNeo4jStore(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	default:
		return NewSQLiteStore(cfg.SQLitePath, cfg.SQLiteTimeout)
	}
}

// NewStoreFromEnv is a convenience wrapper around NewStore(ConfigFromEnv()).
func NewStoreFromEnv() (Store, error) {
	return NewStore(ConfigFromEnv())
}
