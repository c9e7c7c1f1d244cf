package proof

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unified-thinking/internal/memory"
	"unified-thinking/internal/repl"
)

// scriptedChannel answers ApplyTactic calls by tactic name, letting tests
// script which tactics "work" without a real prover subprocess.
type scriptedChannel struct {
	completesOn map[string]bool
	calls       []string
}

func (c *scriptedChannel) ApplyTactic(ctx context.Context, tacticText string, proofState *uint64) (*repl.Response, error) {
	c.calls = append(c.calls, tacticText)
	if c.completesOn[tacticText] {
		return &repl.Response{Goals: &[]string{}}, nil
	}
	remaining := []string{"still open"}
	return &repl.Response{Goals: &remaining}, nil
}

func (c *scriptedChannel) ActiveProofStateID() *uint64                                       { return nil }
func (c *scriptedChannel) CurrentEnv() *uint64                                               { return nil }
func (c *scriptedChannel) ExecuteCommand(ctx context.Context, code string) (*repl.Response, error) { return &repl.Response{}, nil }
func (c *scriptedChannel) Shutdown(ctx context.Context) error                                { return nil }

func TestClassifyDomain(t *testing.T) {
	assert.Equal(t, DomainArithmetic, ClassifyDomain("n + 1 = Nat.succ n"))
	assert.Equal(t, DomainSetTheory, ClassifyDomain("x ∈ S → x ∈ T"))
	assert.Equal(t, DomainGeneral, ClassifyDomain("P"))
}

// TestProve_SucceedsAtDecidableTier matches scenario S1: a goal closed by
// the first decidable-tier tactic never escalates past Tier 1.
func TestProve_SucceedsAtDecidableTier(t *testing.T) {
	ch := &scriptedChannel{completesOn: map[string]bool{"rfl": true}}
	e := NewEngine(DefaultEngineConfig(), ch)

	attempt, err := e.Prove(context.Background(), "n = n", nil)
	require.NoError(t, err)
	assert.True(t, attempt.Succeeded())
	assert.Equal(t, TierDecidable, attempt.SucceededAt)
	assert.Equal(t, "rfl", attempt.TacticsTried[len(attempt.TacticsTried)-1].Tactic)
}

// TestProve_EscalatesThroughTiersToHumanLoop matches scenario S2: when no
// tactic at any automated tier closes the goal, the engine falls back to a
// sorry placeholder and marks the attempt failed at HumanLoop.
func TestProve_EscalatesThroughTiersToHumanLoop(t *testing.T) {
	ch := &scriptedChannel{completesOn: map[string]bool{}}
	cfg := DefaultEngineConfig()
	cfg.TryVariations = false
	e := NewEngine(cfg, ch)

	attempt, err := e.Prove(context.Background(), "hard goal", nil)
	require.NoError(t, err)
	assert.False(t, attempt.Succeeded())
	assert.True(t, attempt.Failed)
	assert.Equal(t, TierHumanLoop, attempt.FailedAt)
	last := attempt.TacticsTried[len(attempt.TacticsTried)-1]
	assert.Contains(t, last.Tactic, "sorry")
}

func TestProve_LearnsAndBoostsSuccessfulTactic(t *testing.T) {
	ch := &scriptedChannel{completesOn: map[string]bool{"omega": true}}
	cfg := DefaultEngineConfig()
	e := NewEngine(cfg, ch)

	goal := "n + 0 = n"
	_, err := e.Prove(context.Background(), goal, nil)
	require.NoError(t, err)

	strategies := e.StrategiesForDomain(ClassifyDomain(goal))
	require.NotEmpty(t, strategies)
	assert.Equal(t, "omega", strategies[0].PreferredTactics[0])
	assert.Equal(t, 1, strategies[0].Successes)
}

func TestProve_PersistsSuccessPatternToMemory(t *testing.T) {
	store, err := memory.NewSQLiteStore(":memory:", 5000)
	require.NoError(t, err)
	defer store.Close()

	ch := &scriptedChannel{completesOn: map[string]bool{"rfl": true}}
	e := NewEngine(DefaultEngineConfig(), ch).WithMemory(store)

	_, err = e.Prove(context.Background(), "n = n", nil)
	require.NoError(t, err)

	nodes, err := store.SearchContent(context.Background(), "proof_pattern", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, nodes)
}

func TestBuildAICandidates_DeduplicatesPreservingOrder(t *testing.T) {
	ch := &scriptedChannel{}
	e := NewEngine(DefaultEngineConfig(), ch)
	attempt := NewAttempt("n + 1 = Nat.succ n")

	candidates := e.buildAICandidates(attempt.Goal, attempt)
	seen := make(map[string]bool)
	for _, c := range candidates {
		assert.False(t, seen[c], "duplicate tactic %q", c)
		seen[c] = true
	}
}
