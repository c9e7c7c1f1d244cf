package epistemic

import (
	"fmt"
	"regexp"
)

// ScrubConfig controls which evidence-bearing tokens get masked before a
// p0 (no-evidence) sample is requested.
type ScrubConfig struct {
	MaskNumbers     bool
	MaskProperNouns bool
	MaskQuotedText  bool
}

// DefaultScrubConfig masks every evidence-bearing token class.
func DefaultScrubConfig() ScrubConfig {
	return ScrubConfig{MaskNumbers: true, MaskProperNouns: true, MaskQuotedText: true}
}

// EvidenceScrubber masks the portions of a context that would leak
// evidence for a claim, so a p0 sample reflects belief without that
// evidence.
type EvidenceScrubber struct {
	config ScrubConfig
}

// NewEvidenceScrubber builds a scrubber from config.
func NewEvidenceScrubber(config ScrubConfig) EvidenceScrubber {
	return EvidenceScrubber{config: config}
}

// Scrub masks numbers, proper nouns, and quoted spans in context
// according to s's config.
func (s EvidenceScrubber) Scrub(context string) string {
	out := context
	if s.config.MaskNumbers {
		out = numberRe.ReplaceAllString(out, "#")
	}
	if s.config.MaskProperNouns {
		out = properNounRe.ReplaceAllString(out, "[REDACTED]")
	}
	if s.config.MaskQuotedText {
		out = quotedRe.ReplaceAllString(out, `"[REDACTED]"`)
	}
	return out
}

var quotedRe = regexp.MustCompile(`"[^"]*"`)

// P0Prompt is the rendered prompt sent to estimate a claim's prior
// probability with evidence masked.
type P0Prompt struct {
	Prompt string
}

// CreateP0Prompt renders a prompt asking the model to estimate the
// probability that claimText is true, given only the scrubbed context.
func CreateP0Prompt(context, claimText string, scrubber EvidenceScrubber) P0Prompt {
	scrubbed := scrubber.Scrub(context)
	prompt := fmt.Sprintf(
		"Context (some details redacted):\n%s\n\n"+
			"Claim: %s\n\n"+
			"Based only on the context above, estimate the probability (0.0 to 1.0) "+
			"that this claim is true. Respond with only the number.",
		scrubbed, claimText,
	)
	return P0Prompt{Prompt: prompt}
}
