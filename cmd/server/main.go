// Package main provides the entry point for the reasoning-loop orchestrator's
// MCP server.
//
// This server is designed to be spawned as a child process by an outer
// driver and communicates via stdio using the Model Context Protocol. It
// should not be run manually by users.
//
// The server wires the hypergraph memory store, the tiered proof engine
// (backed by an external proof-assistant subprocess), the reasoning trace
// store, and the epistemic verifier into a handful of MCP tools: prove,
// verify-response, trace-save, trace-load, memory-search, memory-stats, and
// get-metrics.
//
// Environment variables:
//   - DEBUG: Set to "true" to enable debug logging
//   - everything under internal/config.Config (UT_MEMORY_*, UT_PROOF_*,
//     UT_EPISTEMIC_*, UT_LLM_*, ANTHROPIC_API_KEY, OPENAI_API_KEY,
//     GOOGLE_API_KEY, NEO4J_*)
package main

import (
	"context"
	"log"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	if os.Getenv("DEBUG") == "true" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		log.Println("Starting reasoning-loop orchestrator in debug mode...")
	}

	components, err := InitializeServer()
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}
	defer func() {
		if err := components.Cleanup(); err != nil {
			log.Printf("Warning: failed to clean up server resources: %v", err)
		}
	}()

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "reasoning-loop-orchestrator",
		Version: "1.0.0",
	}, nil)
	log.Println("Created MCP server")

	components.Server.RegisterTools(mcpServer)
	log.Println("Registered tools: prove, verify-response, trace-save, trace-load, memory-search, memory-stats, get-metrics")

	transport := &mcp.StdioTransport{}
	log.Println("Created stdio transport")

	ctx := context.Background()
	log.Println("Starting MCP server...")
	if err := mcpServer.Run(ctx, transport); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
