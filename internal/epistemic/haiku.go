package epistemic

import (
	"context"

	"unified-thinking/internal/llm"
)

// haikuModel is the fast, cheap model used for p0 estimation.
const haikuModel = "claude-3-5-haiku-20241022"

// HaikuVerifier wraps SelfVerifier with a fast, cheap model and a
// trimmed claim-sampling configuration.
type HaikuVerifier struct {
	inner *SelfVerifier
}

var _ EpistemicVerifier = (*HaikuVerifier)(nil)

// NewHaikuVerifier builds a Haiku-backed verifier over client.
func NewHaikuVerifier(client llm.Client) *HaikuVerifier {
	config := FastVerificationConfig()
	config.VerificationModel = haikuModel

	return &HaikuVerifier{inner: NewSelfVerifier(client, config)}
}

func (h *HaikuVerifier) VerifyClaim(ctx context.Context, claim Claim, context_ string, evidence []string) (BudgetResult, error) {
	return h.inner.VerifyClaim(ctx, claim, context_, evidence)
}

func (h *HaikuVerifier) VerifyResponse(ctx context.Context, response, context_ string) (VerificationResult, error) {
	return h.inner.VerifyResponse(ctx, response, context_)
}

func (h *HaikuVerifier) Config() VerificationConfig { return h.inner.Config() }

func (h *HaikuVerifier) GetEvents() []TrajectoryEvent { return h.inner.GetEvents() }
