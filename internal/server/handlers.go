package server

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"unified-thinking/internal/epistemic"
	"unified-thinking/internal/memory"
	"unified-thinking/internal/proof"
	"unified-thinking/internal/trace"
)

// ProveRequest asks the tiered proof engine to close goal, optionally
// resuming from an existing proof state.
type ProveRequest struct {
	Goal       string  `json:"goal"`
	ProofState *uint64 `json:"proof_state,omitempty"`
}

// ProveResponse reports which tier (if any) closed the goal and the full
// tactic search trail.
type ProveResponse struct {
	Goal         string               `json:"goal"`
	Domain       string               `json:"domain"`
	Succeeded    bool                 `json:"succeeded"`
	SucceededAt  string               `json:"succeeded_at,omitempty"`
	Failed       bool                 `json:"failed"`
	FailedAt     string               `json:"failed_at,omitempty"`
	TacticsTried []proof.TacticResult `json:"tactics_tried"`
}

func (s *UnifiedServer) handleProve(ctx context.Context, req *mcp.CallToolRequest, input ProveRequest) (*mcp.CallToolResult, *ProveResponse, error) {
	if input.Goal == "" {
		return nil, nil, fmt.Errorf("prove: goal is required")
	}
	if s.proofEng == nil {
		return nil, nil, fmt.Errorf("prove: proof engine is not configured")
	}

	attempt, err := s.proofEng.Prove(ctx, input.Goal, input.ProofState)
	if err != nil {
		return nil, nil, fmt.Errorf("prove: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordProofAttempt(input.Goal, string(attempt.SucceededAt), attempt.Succeeded())
	}

	response := &ProveResponse{
		Goal:         attempt.Goal,
		Domain:       string(attempt.Domain),
		Succeeded:    attempt.Succeeded(),
		SucceededAt:  string(attempt.SucceededAt),
		Failed:       attempt.Failed,
		FailedAt:     string(attempt.FailedAt),
		TacticsTried: attempt.TacticsTried,
	}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// VerifyResponseRequest asks the epistemic verifier to check response's
// claims against context.
type VerifyResponseRequest struct {
	Response string `json:"response"`
	Context  string `json:"context"`
}

// VerifyResponseResponse mirrors epistemic.VerificationResult over the wire.
type VerifyResponseResponse struct {
	Verdict       string                   `json:"verdict"`
	ClaimCount    int                      `json:"claim_count"`
	BudgetResults []epistemic.BudgetResult `json:"budget_results"`
	LatencyMs     uint64                   `json:"latency_ms"`
}

func (s *UnifiedServer) handleVerifyResponse(ctx context.Context, req *mcp.CallToolRequest, input VerifyResponseRequest) (*mcp.CallToolResult, *VerifyResponseResponse, error) {
	if input.Response == "" {
		return nil, nil, fmt.Errorf("verify-response: response is required")
	}
	if s.verifier == nil {
		return nil, nil, fmt.Errorf("verify-response: epistemic verifier is not configured")
	}

	result, err := s.verifier.VerifyResponse(ctx, input.Response, input.Context)
	if err != nil {
		return nil, nil, fmt.Errorf("verify-response: %w", err)
	}

	if s.collector != nil {
		for _, br := range result.BudgetResults {
			s.collector.RecordVerification(br.ClaimID, br.Status.String(), br.BudgetGap)
		}
	}

	response := &VerifyResponseResponse{
		Verdict:       result.Verdict.String(),
		ClaimCount:    len(result.Claims),
		BudgetResults: result.BudgetResults,
		LatencyMs:     result.LatencyMs,
	}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// TraceSaveRequest asks for a new reasoning trace to be persisted. The
// handler builds the trace from Goal and SessionID alone, so the saved
// trace holds only its root goal node; decision, action and outcome nodes
// are not passed in through this tool.
type TraceSaveRequest struct {
	Goal      string `json:"goal"`
	SessionID string `json:"session_id"`
}

// TraceSaveResponse returns the saved trace's ID for later trace-load calls.
type TraceSaveResponse struct {
	TraceID string `json:"trace_id"`
}

func (s *UnifiedServer) handleTraceSave(ctx context.Context, req *mcp.CallToolRequest, input TraceSaveRequest) (*mcp.CallToolResult, *TraceSaveResponse, error) {
	if input.Goal == "" {
		return nil, nil, fmt.Errorf("trace-save: goal is required")
	}
	if s.traceStore == nil {
		return nil, nil, fmt.Errorf("trace-save: trace store is not configured")
	}

	t := trace.New(input.Goal, input.SessionID)
	if err := s.traceStore.Save(ctx, t); err != nil {
		return nil, nil, fmt.Errorf("trace-save: %w", err)
	}

	response := &TraceSaveResponse{TraceID: t.ID}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// TraceLoadRequest identifies a previously saved trace by ID.
type TraceLoadRequest struct {
	TraceID string `json:"trace_id"`
}

// TraceLoadResponse reports the reloaded trace's summary via TraceAnalyzer.
type TraceLoadResponse struct {
	TraceID    string   `json:"trace_id"`
	Goal       string   `json:"goal"`
	NodeCount  int      `json:"node_count"`
	Narrative  string   `json:"narrative"`
	Confidence float64  `json:"confidence"`
}

func (s *UnifiedServer) handleTraceLoad(ctx context.Context, req *mcp.CallToolRequest, input TraceLoadRequest) (*mcp.CallToolResult, *TraceLoadResponse, error) {
	if input.TraceID == "" {
		return nil, nil, fmt.Errorf("trace-load: trace_id is required")
	}
	if s.traceStore == nil {
		return nil, nil, fmt.Errorf("trace-load: trace store is not configured")
	}

	t, err := s.traceStore.Load(ctx, input.TraceID)
	if err != nil {
		return nil, nil, fmt.Errorf("trace-load: %w", err)
	}

	analyzer := trace.NewAnalyzer(t)
	root := t.Root()
	goal := ""
	if root != nil {
		goal = root.Content
	}

	response := &TraceLoadResponse{
		TraceID:    t.ID,
		Goal:       goal,
		NodeCount:  len(t.Nodes),
		Narrative:  analyzer.Narrative(),
		Confidence: analyzer.OverallConfidence(),
	}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// MemorySearchRequest performs full-text search over the memory store.
type MemorySearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// MemorySearchResponse returns the matched nodes.
type MemorySearchResponse struct {
	Nodes []*memory.Node `json:"nodes"`
}

func (s *UnifiedServer) handleMemorySearch(ctx context.Context, req *mcp.CallToolRequest, input MemorySearchRequest) (*mcp.CallToolResult, *MemorySearchResponse, error) {
	if input.Query == "" {
		return nil, nil, fmt.Errorf("memory-search: query is required")
	}
	if s.store == nil {
		return nil, nil, fmt.Errorf("memory-search: memory store is not configured")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	nodes, err := s.store.SearchContent(ctx, input.Query, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("memory-search: %w", err)
	}

	response := &MemorySearchResponse{Nodes: nodes}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// MemoryStatsRequest takes no parameters; present for a consistent tool shape.
type MemoryStatsRequest struct{}

// MemoryStatsResponse mirrors memory.Stats over the wire.
type MemoryStatsResponse struct {
	Stats *memory.Stats `json:"stats"`
}

func (s *UnifiedServer) handleMemoryStats(ctx context.Context, req *mcp.CallToolRequest, input MemoryStatsRequest) (*mcp.CallToolResult, *MemoryStatsResponse, error) {
	if s.store == nil {
		return nil, nil, fmt.Errorf("memory-stats: memory store is not configured")
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("memory-stats: %w", err)
	}

	response := &MemoryStatsResponse{Stats: stats}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// GetMetricsRequest takes no parameters; present for a consistent tool shape.
type GetMetricsRequest struct{}

// GetMetricsResponse reports the collector's rolling-window averages and
// per-tool usage counts.
type GetMetricsResponse struct {
	ProofSuccessRate float64        `json:"proof_success_rate"`
	ClaimGroundedRate float64       `json:"claim_grounded_rate"`
	AverageBudgetGap float64        `json:"average_budget_gap"`
	TotalLLMCost     float64        `json:"total_llm_cost"`
	ToolUsage        map[string]int `json:"tool_usage"`
}

func (s *UnifiedServer) handleGetMetrics(ctx context.Context, req *mcp.CallToolRequest, input GetMetricsRequest) (*mcp.CallToolResult, *GetMetricsResponse, error) {
	response := &GetMetricsResponse{
		ToolUsage: map[string]int{},
	}
	if s.collector != nil {
		response.ProofSuccessRate = s.collector.Average("proof_success")
		response.ClaimGroundedRate = s.collector.Average("claim_grounded")
		response.AverageBudgetGap = s.collector.Average("budget_gap")
		response.TotalLLMCost = s.collector.Average("llm_cost")
		response.ToolUsage = s.collector.ToolUsage()
	}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}
