package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unified-thinking/internal/epistemic"
	"unified-thinking/internal/llm"
	"unified-thinking/internal/memory"
	"unified-thinking/internal/metrics"
	"unified-thinking/internal/proof"
	"unified-thinking/internal/repl"
	"unified-thinking/internal/trace"
)

// scriptedChannel answers ApplyTactic calls by tactic name, letting tests
// script which tactics "work" without a real prover subprocess.
type scriptedChannel struct {
	completesOn map[string]bool
}

func (c *scriptedChannel) ApplyTactic(ctx context.Context, tacticText string, proofState *uint64) (*repl.Response, error) {
	if c.completesOn[tacticText] {
		return &repl.Response{Goals: &[]string{}}, nil
	}
	remaining := []string{"still open"}
	return &repl.Response{Goals: &remaining}, nil
}
func (c *scriptedChannel) ActiveProofStateID() *uint64 { return nil }
func (c *scriptedChannel) CurrentEnv() *uint64         { return nil }
func (c *scriptedChannel) ExecuteCommand(ctx context.Context, code string) (*repl.Response, error) {
	return &repl.Response{}, nil
}
func (c *scriptedChannel) Shutdown(ctx context.Context) error { return nil }

func newTestServer(t *testing.T) (*UnifiedServer, memory.Store) {
	t.Helper()
	store, err := memory.NewSQLiteStore(":memory:", 1000)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ch := &scriptedChannel{completesOn: map[string]bool{"rfl": true}}
	engine := proof.NewEngine(proof.DefaultEngineConfig(), ch).WithMemory(store)
	traceStore := trace.NewStore(store)
	verifier := epistemic.NewSelfVerifier(llm.NewMockClient(llm.CompletionResponse{Content: "yes"}), epistemic.DefaultVerificationConfig())
	collector := metrics.NewCollector()

	return NewUnifiedServer(store, engine, traceStore, verifier, collector), store
}

func TestHandleProve_SucceedsAndRecordsMetric(t *testing.T) {
	s, _ := newTestServer(t)

	_, resp, err := s.handleProve(context.Background(), nil, ProveRequest{Goal: "n = n"})
	require.NoError(t, err)
	assert.True(t, resp.Succeeded)
	assert.Equal(t, "decidable", resp.SucceededAt)

	assert.Equal(t, 1.0, s.collector.Average(metrics.MetricProofSuccess))
}

func TestHandleProve_RequiresGoal(t *testing.T) {
	s, _ := newTestServer(t)
	_, _, err := s.handleProve(context.Background(), nil, ProveRequest{})
	assert.Error(t, err)
}

func TestHandleProve_NoEngineConfigured(t *testing.T) {
	s := NewUnifiedServer(nil, nil, nil, nil, nil)
	_, _, err := s.handleProve(context.Background(), nil, ProveRequest{Goal: "n = n"})
	assert.Error(t, err)
}

func TestHandleTraceSaveAndLoad_RoundTrip(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, saved, err := s.handleTraceSave(ctx, nil, TraceSaveRequest{Goal: "prove x", SessionID: "sess-1"})
	require.NoError(t, err)
	require.NotEmpty(t, saved.TraceID)

	_, loaded, err := s.handleTraceLoad(ctx, nil, TraceLoadRequest{TraceID: saved.TraceID})
	require.NoError(t, err)
	assert.Equal(t, saved.TraceID, loaded.TraceID)
	assert.Equal(t, "prove x", loaded.Goal)
}

func TestHandleMemorySearchAndStats(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()

	n := &memory.Node{Kind: memory.KindFact, Content: "searchable content about widgets"}
	require.NoError(t, store.AddNode(ctx, n))

	_, searchResp, err := s.handleMemorySearch(ctx, nil, MemorySearchRequest{Query: "widgets"})
	require.NoError(t, err)
	assert.NotEmpty(t, searchResp.Nodes)

	_, statsResp, err := s.handleMemoryStats(ctx, nil, MemoryStatsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, statsResp.Stats.NodeCount)
}

func TestHandleVerifyResponse_RequiresResponse(t *testing.T) {
	s, _ := newTestServer(t)
	_, _, err := s.handleVerifyResponse(context.Background(), nil, VerifyResponseRequest{})
	assert.Error(t, err)
}

func TestHandleGetMetrics_ReportsToolUsage(t *testing.T) {
	s, _ := newTestServer(t)
	s.collector.RecordProofAttempt("g", "decidable", true)

	_, resp, err := s.handleGetMetrics(context.Background(), nil, GetMetricsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, resp.ProofSuccessRate)
	assert.Equal(t, 1, resp.ToolUsage["prove"])
}
