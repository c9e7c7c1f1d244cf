// Package epistemic implements budget-based hallucination detection: a
// claim is verified by comparing p0 (the model's belief without evidence)
// against p1 (its belief having made the claim), converting the gap into
// an information budget, and flagging claims whose stated specificity
// outruns the evidence backing them.
package epistemic

import (
	"fmt"
	"time"
)

// GroundingStatus classifies a single claim's verification outcome.
type GroundingStatus int

const (
	Grounded GroundingStatus = iota
	WeaklyGrounded
	Ungrounded
	Uncertain
)

func (s GroundingStatus) String() string {
	switch s {
	case Grounded:
		return "grounded"
	case WeaklyGrounded:
		return "weakly_grounded"
	case Ungrounded:
		return "ungrounded"
	case Uncertain:
		return "uncertain"
	default:
		return "unknown"
	}
}

// Probability is a belief estimate in [0, 1].
type Probability struct {
	Value float64
}

// PointProbability clamps p into [0, 1] and wraps it.
func PointProbability(p float64) Probability {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return Probability{Value: p}
}

// ProbabilityFromSamples estimates a probability as the fraction of
// agreeing samples out of total, defaulting to 0.5 when total is zero.
func ProbabilityFromSamples(agreeing, total uint32) Probability {
	if total == 0 {
		return Probability{Value: 0.5}
	}
	return Probability{Value: float64(agreeing) / float64(total)}
}

// EvidenceRef points at the source text a claim was grounded in.
type EvidenceRef struct {
	Description string
}

// Claim is one factual assertion extracted from a response.
type Claim struct {
	ID           string
	Text         string
	Category     string
	Specificity  float64
	EvidenceRefs []EvidenceRef
}

// VerificationConfig tunes a verifier's sampling and thresholds.
type VerificationConfig struct {
	NSamples               uint32
	SampleTemperature      float64
	HallucinationThreshold float64
	VerifyAllClaims        bool
	MaxClaims              *uint32
	VerificationModel      string
}

// DefaultVerificationConfig samples thoroughly and verifies every claim.
func DefaultVerificationConfig() VerificationConfig {
	return VerificationConfig{
		NSamples:               5,
		SampleTemperature:      0.7,
		HallucinationThreshold: 2.0,
		VerifyAllClaims:        true,
	}
}

// FastVerificationConfig trims sample count and claim coverage for
// low-latency verification (used by HaikuVerifier).
func FastVerificationConfig() VerificationConfig {
	max := uint32(5)
	return VerificationConfig{
		NSamples:               2,
		SampleTemperature:      0.7,
		HallucinationThreshold: 2.0,
		VerifyAllClaims:        false,
		MaxClaims:              &max,
	}
}

// BudgetResult is the outcome of verifying one claim: how many bits of
// evidence its specificity demands versus how many the p0->p1 belief
// shift actually supplied.
type BudgetResult struct {
	ClaimID      string
	P0           Probability
	P1           Probability
	RequiredBits float64
	ActualBits   float64
	BudgetGap    float64
	Status       GroundingStatus
}

// NewBudgetResult computes the log-likelihood-ratio budget between p0 and
// p1 and classifies the claim's grounding status from the resulting gap.
func NewBudgetResult(claimID string, p0, p1 Probability, requiredBits float64) BudgetResult {
	actualBits := klDivergenceBits(p1.Value, p0.Value)
	gap := actualBits - requiredBits

	status := Grounded
	switch {
	case p1.Value > 0.4 && p1.Value < 0.6:
		status = Uncertain
	case gap >= 0:
		status = Grounded
	case gap >= -requiredBits/2:
		status = WeaklyGrounded
	default:
		status = Ungrounded
	}

	return BudgetResult{
		ClaimID:      claimID,
		P0:           p0,
		P1:           p1,
		RequiredBits: requiredBits,
		ActualBits:   actualBits,
		BudgetGap:    gap,
		Status:       status,
	}
}

// ShouldFlag reports whether the shortfall between required and actual
// bits exceeds threshold, marking the claim a likely hallucination.
func (b BudgetResult) ShouldFlag(threshold float64) bool {
	return -b.BudgetGap > threshold
}

// VerificationVerdict summarizes a verify_response call across all of its
// claims.
type VerificationVerdict int

const (
	VerdictVerified VerificationVerdict = iota
	VerdictPartiallyVerified
	VerdictUnverified
	VerdictError
)

func (v VerificationVerdict) String() string {
	switch v {
	case VerdictVerified:
		return "verified"
	case VerdictPartiallyVerified:
		return "partially_verified"
	case VerdictUnverified:
		return "unverified"
	case VerdictError:
		return "error"
	default:
		return "unknown"
	}
}

// VerificationStats aggregates per-claim outcomes for one verify_response
// call.
type VerificationStats struct {
	TotalClaims          uint32
	GroundedClaims       uint32
	WeaklyGroundedClaims uint32
	UngroundedClaims     uint32
	UncertainClaims      uint32
	AvgBudgetGap         float64
	MaxBudgetGap         float64
	TotalSamples         uint32
}

// VerificationResult is the full output of verifying one response.
type VerificationResult struct {
	SessionID     string
	Claims        []Claim
	BudgetResults []BudgetResult
	Verdict       VerificationVerdict
	Stats         VerificationStats
	CompletedAt   time.Time
	LatencyMs     uint64
}

// TrajectoryEventType classifies one step of a verification run.
type TrajectoryEventType int

const (
	EventVerifyStart TrajectoryEventType = iota
	EventClaimExtracted
	EventBudgetComputed
	EventHallucinationFlag
	EventVerifyComplete
	EventError
)

func (t TrajectoryEventType) String() string {
	switch t {
	case EventVerifyStart:
		return "verify_start"
	case EventClaimExtracted:
		return "claim_extracted"
	case EventBudgetComputed:
		return "budget_computed"
	case EventHallucinationFlag:
		return "hallucination_flag"
	case EventVerifyComplete:
		return "verify_complete"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// TrajectoryEvent records one observable step of a verification run, for
// callers that want to audit how a verdict was reached.
type TrajectoryEvent struct {
	Type      TrajectoryEventType
	Turn      int
	Message   string
	Metadata  map[string]any
	Timestamp time.Time
}

// NewTrajectoryEvent builds an event with no metadata.
func NewTrajectoryEvent(t TrajectoryEventType, turn int, message string) TrajectoryEvent {
	return TrajectoryEvent{Type: t, Turn: turn, Message: message, Timestamp: time.Now()}
}

// WithMetadata attaches a metadata key and returns the event for chaining.
func (e TrajectoryEvent) WithMetadata(key string, value any) TrajectoryEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// HallucinationFlagEvent builds the event emitted when a claim's gap
// exceeds the configured hallucination threshold.
func HallucinationFlagEvent(turn int, claimText string, budgetGap float64, status string) TrajectoryEvent {
	return NewTrajectoryEvent(EventHallucinationFlag, turn,
		fmt.Sprintf("Claim flagged: gap=%.2f status=%s", budgetGap, status)).
		WithMetadata("claim_text", claimText).
		WithMetadata("budget_gap", budgetGap).
		WithMetadata("status", status)
}

// ErrorEvent builds an error-step trajectory event.
func ErrorEvent(turn int, message string) TrajectoryEvent {
	return NewTrajectoryEvent(EventError, turn, message)
}
