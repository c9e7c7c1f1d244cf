package main

import (
	"testing"
)

// setupTestEnv points the server at an in-memory SQLite store and disables
// the proof engine, since no Lean REPL binary is available in test
// environments; the LLM client falls back to the mock provider when no API
// key is configured.
func setupTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("UT_MEMORY_SQLITE_PATH", ":memory:")
	t.Setenv("UT_FEATURES_PROOF_GENERATION", "false")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
}

func TestInitializeServer(t *testing.T) {
	setupTestEnv(t)

	components, err := InitializeServer()
	if err != nil {
		t.Fatalf("InitializeServer() failed: %v", err)
	}
	defer components.Cleanup()

	if components.Store == nil {
		t.Error("Store not initialized")
	}
	if components.Collector == nil {
		t.Error("Collector not initialized")
	}
	if components.TraceStore == nil {
		t.Error("TraceStore not initialized")
	}
	if components.Verifier == nil {
		t.Error("Verifier not initialized")
	}
	if components.Server == nil {
		t.Error("Server not initialized")
	}

	// Proof generation was disabled via env, so no engine/channel is built.
	if components.ProofEngine != nil {
		t.Error("expected ProofEngine to be nil with proof generation disabled")
	}
	if components.ReplChannel != nil {
		t.Error("expected ReplChannel to be nil with proof generation disabled")
	}
}

func TestInitializeServer_Cleanup(t *testing.T) {
	setupTestEnv(t)

	components, err := InitializeServer()
	if err != nil {
		t.Fatalf("InitializeServer() failed: %v", err)
	}

	if err := components.Cleanup(); err != nil {
		t.Errorf("Cleanup() failed: %v", err)
	}
}

func TestServerComponents_NilStore(t *testing.T) {
	components := &ServerComponents{}

	if err := components.Cleanup(); err != nil {
		t.Errorf("Cleanup with nil store should not error, got: %v", err)
	}
}

func TestServerComponents_DefaultFields(t *testing.T) {
	components := &ServerComponents{}

	if components.Store != nil {
		t.Error("Store should be nil by default")
	}
	if components.Server != nil {
		t.Error("Server should be nil by default")
	}
	if components.ProofEngine != nil {
		t.Error("ProofEngine should be nil by default")
	}
}
