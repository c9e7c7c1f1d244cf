package proof

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"unified-thinking/internal/repl"
)

// ProtocolErrorKind classifies a protocol-level rejection, distinct from a
// tactic-level TacticOutcome failure: these are raised before a tactic ever
// reaches the prover.
type ProtocolErrorKind string

const (
	ErrNonTargetSorry          ProtocolErrorKind = "non_target_sorry"
	ErrCommentTooLong          ProtocolErrorKind = "comment_too_long"
	ErrTooManyComments         ProtocolErrorKind = "too_many_comments"
	ErrSessionNotActive        ProtocolErrorKind = "session_not_active"
	ErrMissingProofState       ProtocolErrorKind = "missing_proof_state"
	ErrDiagnosticExecutionFail ProtocolErrorKind = "diagnostic_execution_failed"
)

// ProtocolError is returned whenever the enforcer rejects an action before
// it reaches the proof channel.
type ProtocolError struct {
	Kind    ProtocolErrorKind
	Detail  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("proof protocol: %s: %s", e.Kind, e.Detail)
}

func protoErr(kind ProtocolErrorKind, detail string) *ProtocolError {
	return &ProtocolError{Kind: kind, Detail: detail}
}

// ProtocolConfig bounds the natural-language content a tactic submission may
// carry, enforcing the single-target "prove, don't narrate" discipline.
type ProtocolConfig struct {
	MaxCommentLines       int
	MaxConsecutiveComments int
}

// DefaultProtocolConfig matches the original implementation's limits.
func DefaultProtocolConfig() ProtocolConfig {
	return ProtocolConfig{
		MaxCommentLines:        42,
		MaxConsecutiveComments: 5,
	}
}

// ProtocolEnforcer mediates every tactic submission against a single active
// Session, rejecting malformed submissions before they reach the channel and
// translating channel responses into TacticOutcome/session-state updates.
type ProtocolEnforcer struct {
	config  ProtocolConfig
	channel repl.Channel
}

// NewProtocolEnforcer builds an enforcer bound to channel.
func NewProtocolEnforcer(channel repl.Channel, config ProtocolConfig) *ProtocolEnforcer {
	return &ProtocolEnforcer{config: config, channel: channel}
}

// ValidateTarget rejects a tactic aimed at a sorry other than the session's
// declared target. A proof session is single-target: side quests are a
// protocol violation, not a tactic failure.
func (e *ProtocolEnforcer) ValidateTarget(s *Session, loc SorryLocation) error {
	if !s.IsTarget(loc) {
		return protoErr(ErrNonTargetSorry, fmt.Sprintf(
			"session targets %s, tactic addressed %s", s.Target.FormatLocation(), loc.FormatLocation()))
	}
	return nil
}

// CheckNLProhibition rejects tactic text whose comment lines exceed the
// configured length or run-length ceilings. Lean line comments begin with
// "--"; consecutive comment lines are counted as a run, reset by any
// non-comment line.
func (e *ProtocolEnforcer) CheckNLProhibition(tacticText string) error {
	lines := strings.Split(tacticText, "\n")

	commentLines := 0
	consecutive := 0
	maxConsecutive := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") {
			commentLines++
			consecutive++
			if consecutive > maxConsecutive {
				maxConsecutive = consecutive
			}
		} else {
			consecutive = 0
		}
	}

	if commentLines > e.config.MaxCommentLines {
		return protoErr(ErrCommentTooLong, fmt.Sprintf(
			"%d comment lines exceeds limit of %d", commentLines, e.config.MaxCommentLines))
	}
	if maxConsecutive > e.config.MaxConsecutiveComments {
		return protoErr(ErrTooManyComments, fmt.Sprintf(
			"%d consecutive comment lines exceeds limit of %d", maxConsecutive, e.config.MaxConsecutiveComments))
	}
	return nil
}

// ValidateTactic runs every pre-submission check: session liveness, target
// match, proof-state presence, and NL prohibition. It does not talk to the
// channel.
func (e *ProtocolEnforcer) ValidateTactic(s *Session, loc SorryLocation, tacticText string) error {
	if !s.IsActive() {
		return protoErr(ErrSessionNotActive, fmt.Sprintf("session status is %s", s.Status))
	}
	if err := e.ValidateTarget(s, loc); err != nil {
		return err
	}
	if loc.ProofState == nil {
		return protoErr(ErrMissingProofState, "target location carries no proof state handle")
	}
	if err := e.CheckNLProhibition(tacticText); err != nil {
		return err
	}
	return nil
}

// OutcomeFromDiagnostics turns a channel response into a TacticOutcome.
// An Error-severity diagnostic always fails the tactic, rendered
// deterministically via repl.RenderDiagnostics regardless of the prover's
// message-arrival order. Otherwise: zero remaining goals is Complete,
// any other count is Progress.
func OutcomeFromDiagnostics(resp *repl.Response) TacticOutcome {
	if resp.HasErrors() {
		return TacticOutcome{Kind: OutcomeFailed, Error: DeterministicErrorMessage(resp)}
	}
	remaining := len(resp.Sorries)
	if resp.Goals != nil {
		remaining = len(*resp.Goals)
	}
	if remaining == 0 {
		return TacticOutcome{Kind: OutcomeComplete}
	}
	return TacticOutcome{Kind: OutcomeProgress, RemainingGoals: remaining}
}

// DeterministicErrorMessage renders resp's Error diagnostics canonically.
func DeterministicErrorMessage(resp *repl.Response) string {
	return repl.RenderDiagnostics(resp)
}

// ExecuteTacticWithFeedback runs the full six-step submission protocol:
//
//  1. Reject if the session is not Active, or the tactic targets a sorry
//     other than the session's target, or the NL-prohibition limits are
//     exceeded — without ever touching the channel.
//  2. Reject if the target carries no proof-state handle.
//  3. Submit the tactic to the channel.
//  4. On a channel-level execution error, return immediately without
//     recording an attempt or altering session status: a transport
//     failure is not a tactic outcome, and must not be mistaken for one.
//  5. Translate the response into a TacticOutcome via OutcomeFromDiagnostics
//     and record the attempt, which may trip a Limit transition as a
//     side effect of RecordTactic (e.g. hitting the tactic-count ceiling).
//  6. If the outcome is Complete, mark the session TargetComplete. This
//     always overrides any Limit transition applied in step 5: completion
//     wins over a concurrently tripped limit.
func (e *ProtocolEnforcer) ExecuteTacticWithFeedback(ctx context.Context, s *Session, loc SorryLocation, tacticText string) (TacticOutcome, error) {
	if err := e.ValidateTactic(s, loc, tacticText); err != nil {
		return TacticOutcome{}, err
	}

	preState := loc.ProofState
	resp, err := e.channel.ApplyTactic(ctx, tacticText, preState)
	if err != nil {
		return TacticOutcome{}, err
	}

	outcome := OutcomeFromDiagnostics(resp)
	s.RecordTactic(&TacticAttempt{
		TacticText:  tacticText,
		Outcome:     outcome,
		PreStateID:  preState,
		PostStateID: resp.ProofState,
	})

	if outcome.IsComplete() {
		s.MarkTargetComplete()
	}

	return outcome, nil
}

// SelectTarget picks the next sorry to target from candidates: locations
// that already carry a proof-state handle are preferred (closing a sorry
// the channel has already elaborated costs no extra round trip), then ties
// are broken by source order (line, then column).
func SelectTarget(candidates []SorryLocation) (SorryLocation, bool) {
	if len(candidates) == 0 {
		return SorryLocation{}, false
	}
	sorted := make([]SorryLocation, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		iHas, jHas := sorted[i].ProofState != nil, sorted[j].ProofState != nil
		if iHas != jHas {
			return iHas
		}
		if sorted[i].Line != sorted[j].Line {
			return sorted[i].Line < sorted[j].Line
		}
		return sorted[i].Column < sorted[j].Column
	})
	return sorted[0], true
}
