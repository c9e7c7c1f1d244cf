package epistemic

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"unified-thinking/internal/llm"
)

// EpistemicVerifier is the contract every verification backend
// implements: self-verification, Haiku-assisted, or batched.
type EpistemicVerifier interface {
	VerifyClaim(ctx context.Context, claim Claim, context_ string, evidence []string) (BudgetResult, error)
	VerifyResponse(ctx context.Context, response, context_ string) (VerificationResult, error)
	Config() VerificationConfig
	GetEvents() []TrajectoryEvent
}

// SelfVerifier estimates p0 by resampling the same model with evidence
// masked, then compares it against p1 derived from the original response.
type SelfVerifier struct {
	client         llm.Client
	config         VerificationConfig
	claimExtractor ClaimExtractor
	scrubber       EvidenceScrubber

	mu     sync.Mutex
	events []TrajectoryEvent
}

var _ EpistemicVerifier = (*SelfVerifier)(nil)

// NewSelfVerifier builds a self-verifier against client using config.
func NewSelfVerifier(client llm.Client, config VerificationConfig) *SelfVerifier {
	return &SelfVerifier{
		client:         client,
		config:         config,
		claimExtractor: NewClaimExtractor(),
		scrubber:       NewEvidenceScrubber(DefaultScrubConfig()),
	}
}

// WithExtractor overrides the claim extractor.
func (v *SelfVerifier) WithExtractor(e ClaimExtractor) *SelfVerifier {
	v.claimExtractor = e
	return v
}

// WithScrubber overrides the evidence scrubber.
func (v *SelfVerifier) WithScrubber(s EvidenceScrubber) *SelfVerifier {
	v.scrubber = s
	return v
}

func (v *SelfVerifier) emitEvent(e TrajectoryEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, e)
}

// estimateP0 samples n_samples completions with evidence masked and
// returns the fraction that assign the claim probability over 0.5.
func (v *SelfVerifier) estimateP0(ctx context.Context, claim Claim, ctxText string) (Probability, error) {
	p0Prompt := CreateP0Prompt(ctxText, claim.Text, v.scrubber)

	var agreeing uint32
	total := v.config.NSamples

	for i := uint32(0); i < total; i++ {
		req := llm.NewCompletionRequest().
			WithMessage(llm.UserMessage(p0Prompt.Prompt)).
			WithModel(v.config.VerificationModel).
			WithTemperature(v.config.SampleTemperature).
			WithMaxTokens(100)

		resp, err := v.client.Complete(ctx, req)
		if err != nil {
			return Probability{}, err
		}

		if p, ok := parseProbability(resp.Content); ok && p > 0.5 {
			agreeing++
		}
	}

	return ProbabilityFromSamples(agreeing, total), nil
}

// estimateP1 derives the posterior from the claim's own specificity: the
// claim was already made in the original response, so the default belief
// is high, discounted toward uncertain as specificity drops.
func (v *SelfVerifier) estimateP1(claim Claim) Probability {
	const baseP = 0.85
	adjusted := baseP*claim.Specificity + (1.0-claim.Specificity)*0.5
	return PointProbability(adjusted)
}

var percentRe = regexp.MustCompile(`(\d+\.?\d*)\s*%?`)

// parseProbability extracts a probability from free-form model output:
// a bare decimal, a percentage, or a number embedded in a sentence.
func parseProbability(text string) (float64, bool) {
	text = strings.ToLower(strings.TrimSpace(text))

	firstLine := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		firstLine = text[:idx]
	}
	if p, err := strconv.ParseFloat(strings.TrimSpace(firstLine), 64); err == nil {
		if p >= 0.0 && p <= 1.0 {
			return p, true
		}
	}

	if stripped, ok := strings.CutSuffix(text, "%"); ok {
		if p, err := strconv.ParseFloat(strings.TrimSpace(stripped), 64); err == nil {
			return p / 100.0, true
		}
	}

	if m := percentRe.FindStringSubmatch(text); m != nil {
		if p, err := strconv.ParseFloat(m[1], 64); err == nil {
			if p > 1.0 {
				p = p / 100.0
			}
			if p >= 0.0 && p <= 1.0 {
				return p, true
			}
		}
	}

	return 0, false
}

// VerifyClaim estimates p0 and p1 for claim and returns its budget
// result, emitting trajectory events along the way.
func (v *SelfVerifier) VerifyClaim(ctx context.Context, claim Claim, ctxText string, evidence []string) (BudgetResult, error) {
	v.emitEvent(NewTrajectoryEvent(EventVerifyStart, 0,
		fmt.Sprintf("Verifying claim: %s", truncateRunes(claim.Text, 50))))

	p0, err := v.estimateP0(ctx, claim, ctxText)
	if err != nil {
		return BudgetResult{}, err
	}
	p1 := v.estimateP1(claim)

	requiredBits := RequiredBitsForSpecificity(claim.Specificity)
	result := NewBudgetResult(claim.ID, p0, p1, requiredBits)

	if result.ShouldFlag(v.config.HallucinationThreshold) {
		v.emitEvent(HallucinationFlagEvent(0, claim.Text, result.BudgetGap, result.Status.String()))
	} else {
		v.emitEvent(NewTrajectoryEvent(EventBudgetComputed, 0,
			fmt.Sprintf("Claim verified: gap=%.2f, status=%s", result.BudgetGap, result.Status)).
			WithMetadata("budget_gap", result.BudgetGap).
			WithMetadata("status", result.Status.String()))
	}

	return result, nil
}

// VerifyResponse extracts claims from response, verifies each (subject to
// the config's claim cap), and returns the aggregated verdict.
func (v *SelfVerifier) VerifyResponse(ctx context.Context, response, ctxText string) (VerificationResult, error) {
	start := time.Now()
	sessionID := newSessionID()

	v.emitEvent(NewTrajectoryEvent(EventVerifyStart, 0, "Starting response verification"))

	claims := v.claimExtractor.Extract(response)

	for _, c := range claims {
		v.emitEvent(NewTrajectoryEvent(EventClaimExtracted, 0,
			fmt.Sprintf("[%s] %s", c.Category, truncateRunes(c.Text, 60))))
	}

	claims = limitClaims(claims, v.config)

	var budgetResults []BudgetResult
	for _, c := range claims {
		evidence := evidenceDescriptions(c)
		result, err := v.VerifyClaim(ctx, c, ctxText, evidence)
		if err != nil {
			v.emitEvent(ErrorEvent(0, fmt.Sprintf("Verification error: %v", err)))
			continue
		}
		budgetResults = append(budgetResults, result)
	}

	stats := calculateStats(budgetResults, v.config.NSamples)
	verdict := verdictFromStats(stats)
	latencyMs := uint64(time.Since(start).Milliseconds())

	v.emitEvent(NewTrajectoryEvent(EventVerifyComplete, 0,
		fmt.Sprintf("Verification complete: %d claims, %d ungrounded, latency %dms",
			stats.TotalClaims, stats.UngroundedClaims, latencyMs)))

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

func (v *SelfVerifier) Config() VerificationConfig { return v.config }

func (v *SelfVerifier) GetEvents() []TrajectoryEvent {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]TrajectoryEvent, len(v.events))
	copy(out, v.events)
	return out
}

// limitClaims sorts claims by specificity descending and truncates to
// config.MaxClaims, unless VerifyAllClaims is set.
func limitClaims(claims []Claim, config VerificationConfig) []Claim {
	if config.VerifyAllClaims || config.MaxClaims == nil {
		return claims
	}
	sorted := make([]Claim, len(claims))
	copy(sorted, claims)
	sortClaimsBySpecificityDesc(sorted)

	max := int(*config.MaxClaims)
	if max < len(sorted) {
		sorted = sorted[:max]
	}
	return sorted
}

func sortClaimsBySpecificityDesc(claims []Claim) {
	for i := 1; i < len(claims); i++ {
		for j := i; j > 0 && claims[j].Specificity > claims[j-1].Specificity; j-- {
			claims[j], claims[j-1] = claims[j-1], claims[j]
		}
	}
}

func evidenceDescriptions(c Claim) []string {
	out := make([]string, 0, len(c.EvidenceRefs))
	for _, e := range c.EvidenceRefs {
		out = append(out, e.Description)
	}
	return out
}

func calculateStats(results []BudgetResult, nSamples uint32) VerificationStats {
	var stats VerificationStats
	stats.TotalClaims = uint32(len(results))

	var totalGap float64
	maxGap := math.Inf(-1)

	for _, r := range results {
		switch r.Status {
		case Grounded:
			stats.GroundedClaims++
		case WeaklyGrounded:
			stats.WeaklyGroundedClaims++
		case Ungrounded:
			stats.UngroundedClaims++
		case Uncertain:
			stats.UncertainClaims++
		}

		totalGap += r.BudgetGap
		if r.BudgetGap > maxGap {
			maxGap = r.BudgetGap
		}
	}

	if len(results) > 0 {
		stats.AvgBudgetGap = totalGap / float64(len(results))
		stats.MaxBudgetGap = maxGap
	}

	stats.TotalSamples = nSamples * stats.TotalClaims
	return stats
}

func verdictFromStats(stats VerificationStats) VerificationVerdict {
	switch {
	case stats.UngroundedClaims > 0:
		return VerdictUnverified
	case stats.WeaklyGroundedClaims > 0:
		return VerdictPartiallyVerified
	case stats.TotalClaims > 0:
		return VerdictVerified
	default:
		return VerdictError
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func newSessionID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
