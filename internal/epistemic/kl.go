package epistemic

import "math"

// RequiredBitsForSpecificity maps a claim's specificity (how narrow and
// falsifiable it is, in [0, 1]) to the number of evidence bits it should
// take to justify. A vague claim ("it's common") demands almost nothing;
// a precise one ("exactly 42") demands several bits of genuine support.
func RequiredBitsForSpecificity(specificity float64) float64 {
	if specificity < 0 {
		specificity = 0
	}
	if specificity > 1 {
		specificity = 1
	}
	return -math.Log2(1.0 - 0.99*specificity)
}

// klDivergenceBits is the log-likelihood ratio, in bits, of the posterior
// p1 against the prior p0: log2(p1/p0). This is not the full binary KL
// divergence — spec's budget_gap formula is the plain log-ratio term,
// not p1's expectation over both outcomes.
func klDivergenceBits(p1, p0 float64) float64 {
	const eps = 1e-6
	p1 = clampProb(p1, eps)
	p0 = clampProb(p0, eps)

	return math.Log2(p1 / p0)
}

func clampProb(p, eps float64) float64 {
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}
