// Package server implements the MCP (Model Context Protocol) server for the
// reasoning-loop orchestrator.
//
// This package exposes the tiered proof engine, the epistemic verifier, and
// the reasoning-trace/hypergraph-memory stores as MCP tools over stdio, for
// consumption by an outer driver (e.g. Claude Desktop or a CLI harness)
// spawning this binary as a child process.
//
// Available tools:
//   - prove: run the tiered proof engine against a goal
//   - verify-response: epistemically verify an LLM response's claims
//   - trace-save / trace-load: persist and reload a reasoning trace
//   - memory-search: full-text search over the hypergraph memory store
//   - memory-stats: node/edge counts by tier and kind
//   - get-metrics: recent quality metrics (proof success, grounding, LLM spend)
package server

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"unified-thinking/internal/epistemic"
	"unified-thinking/internal/memory"
	"unified-thinking/internal/metrics"
	"unified-thinking/internal/proof"
	"unified-thinking/internal/trace"
)

// Verifier is satisfied by epistemic.SelfVerifier, epistemic.BatchVerifier,
// and epistemic.HaikuVerifier, letting the server swap verification
// strategy (full self-verification, parallel batch, or the fast Haiku
// tier) without changing its handlers.
type Verifier interface {
	VerifyResponse(ctx context.Context, response, context_ string) (epistemic.VerificationResult, error)
}

// UnifiedServer coordinates the reasoning-loop components and provides MCP
// tool handlers over them.
type UnifiedServer struct {
	store      memory.Store
	proofEng   *proof.Engine
	traceStore *trace.Store
	verifier   Verifier
	collector  *metrics.Collector
}

// NewUnifiedServer wires a memory store, proof engine, trace store, and
// epistemic verifier into one MCP-facing server. verifier and collector may
// be nil; their tools then report an explicit "not configured" error rather
// than panicking.
func NewUnifiedServer(store memory.Store, proofEng *proof.Engine, traceStore *trace.Store, verifier Verifier, collector *metrics.Collector) *UnifiedServer {
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &UnifiedServer{
		store:      store,
		proofEng:   proofEng,
		traceStore: traceStore,
		verifier:   verifier,
		collector:  collector,
	}
}

// RegisterTools registers every tool this server exposes on mcpServer.
func (s *UnifiedServer) RegisterTools(mcpServer *mcp.Server) {
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "prove",
		Description: "Run the tiered proof engine (decidable, automation, AI-assisted, human-loop) against a goal",
	}, s.handleProve)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "verify-response",
		Description: "Epistemically verify an LLM response's claims against a context, flagging ungrounded claims",
	}, s.handleVerifyResponse)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "trace-save",
		Description: "Persist a reasoning trace's decision tree into the hypergraph memory store",
	}, s.handleTraceSave)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "trace-load",
		Description: "Reload a reasoning trace previously saved by trace-save",
	}, s.handleTraceLoad)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "memory-search",
		Description: "Full-text search over the hypergraph memory store",
	}, s.handleMemorySearch)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "memory-stats",
		Description: "Report node/edge counts by tier and kind in the hypergraph memory store",
	}, s.handleMemoryStats)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "get-metrics",
		Description: "Get recent quality metrics: proof success rate, claim-grounding rate, LLM spend",
	}, s.handleGetMetrics)
}

// toJSONContent converts any data structure to MCP TextContent with JSON.
// This is consumed by the calling model directly, not a human reader.
func toJSONContent(data interface{}) []mcp.Content {
	jsonData, err := json.Marshal(data)
	if err != nil {
		errData := map[string]string{"error": err.Error()}
		jsonData, _ = json.Marshal(errData)
	}
	return []mcp.Content{&mcp.TextContent{Text: string(jsonData)}}
}
