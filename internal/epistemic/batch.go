package epistemic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"unified-thinking/internal/llm"
)

// BatchVerifier verifies multiple claims concurrently: each claim's p0 is
// estimated from a single sample, with all claims' requests sent in
// parallel, trading estimation fidelity for latency.
type BatchVerifier struct {
	client         llm.Client
	config         VerificationConfig
	claimExtractor ClaimExtractor
	scrubber       EvidenceScrubber

	mu     sync.Mutex
	events []TrajectoryEvent
}

var _ EpistemicVerifier = (*BatchVerifier)(nil)

// NewBatchVerifier builds a batch verifier against client using config.
func NewBatchVerifier(client llm.Client, config VerificationConfig) *BatchVerifier {
	return &BatchVerifier{
		client:         client,
		config:         config,
		claimExtractor: NewClaimExtractor(),
		scrubber:       NewEvidenceScrubber(DefaultScrubConfig()),
	}
}

func (b *BatchVerifier) emitEvent(e TrajectoryEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

// verifyClaimsBatch sends a single p0 sample per claim, all in parallel.
func (b *BatchVerifier) verifyClaimsBatch(ctx context.Context, claims []Claim, ctxText string) []result {
	results := make([]result, len(claims))

	g, gctx := errgroup.WithContext(ctx)
	for i, claim := range claims {
		i, claim := i, claim
		g.Go(func() error {
			scrubber := NewEvidenceScrubber(DefaultScrubConfig())
			p0Prompt := CreateP0Prompt(ctxText, claim.Text, scrubber)

			req := llm.NewCompletionRequest().
				WithMessage(llm.UserMessage(p0Prompt.Prompt)).
				WithTemperature(b.config.SampleTemperature).
				WithMaxTokens(100)

			resp, err := b.client.Complete(gctx, req)
			if err != nil {
				results[i] = result{err: err}
				return nil
			}

			p0Val, ok := parseProbability(resp.Content)
			if !ok {
				p0Val = 0.5
			}
			p0 := PointProbability(p0Val)
			p1 := PointProbability(0.85*claim.Specificity + 0.15)
			requiredBits := RequiredBitsForSpecificity(claim.Specificity)

			results[i] = result{value: NewBudgetResult(claim.ID, p0, p1, requiredBits)}
			return nil
		})
	}
	// Errors are captured per-claim above; g.Wait only propagates ctx
	// cancellation, which every result already reflects via its own err.
	_ = g.Wait()

	return results
}

type result struct {
	value BudgetResult
	err   error
}

func (b *BatchVerifier) VerifyClaim(ctx context.Context, claim Claim, context_ string, _ []string) (BudgetResult, error) {
	results := b.verifyClaimsBatch(ctx, []Claim{claim}, context_)
	if len(results) == 0 {
		return BudgetResult{}, errors.New("no verification result")
	}
	return results[0].value, results[0].err
}

func (b *BatchVerifier) VerifyResponse(ctx context.Context, response, context_ string) (VerificationResult, error) {
	start := time.Now()
	sessionID := newSessionID()

	b.emitEvent(NewTrajectoryEvent(EventVerifyStart, 0, "Starting batch verification"))

	claims := b.claimExtractor.Extract(response)
	claims = limitClaims(claims, b.config)

	results := b.verifyClaimsBatch(ctx, claims, context_)

	var budgetResults []BudgetResult
	for _, r := range results {
		if r.err != nil {
			b.emitEvent(ErrorEvent(0, fmt.Sprintf("Batch verification error: %v", r.err)))
			continue
		}
		if r.value.ShouldFlag(b.config.HallucinationThreshold) {
			b.emitEvent(HallucinationFlagEvent(0, "", r.value.BudgetGap, r.value.Status.String()))
		}
		budgetResults = append(budgetResults, r.value)
	}

	stats := calculateStats(budgetResults, b.config.NSamples)
	verdict := verdictFromStats(stats)
	latencyMs := uint64(time.Since(start).Milliseconds())

	b.emitEvent(NewTrajectoryEvent(EventVerifyComplete, 0,
		fmt.Sprintf("Batch verification complete: %d claims, latency %dms", stats.TotalClaims, latencyMs)))

	return VerificationResult{
		SessionID:     sessionID,
		Claims:        claims,
		BudgetResults: budgetResults,
		Verdict:       verdict,
		Stats:         stats,
		CompletedAt:   time.Now(),
		LatencyMs:     latencyMs,
	}, nil
}

func (b *BatchVerifier) Config() VerificationConfig { return b.config }

func (b *BatchVerifier) GetEvents() []TrajectoryEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]TrajectoryEvent, len(b.events))
	copy(out, b.events)
	return out
}
