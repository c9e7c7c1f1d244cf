// Package proof implements the single-target proof session protocol and
// the tiered tactic engine that drives it.
package proof

import (
	"strconv"
	"time"

	"unified-thinking/internal/repl"
)

// SorryLocation identifies one unproved obligation in a source file. Two
// locations match iff (file, line, column) are equal.
type SorryLocation struct {
	FilePath   string
	Line       int
	Column     int
	Context    string
	GoalText   string
	ProofState *uint64
}

// WithProofState attaches a proof state handle to the location.
func (l SorryLocation) WithProofState(id uint64) SorryLocation {
	l.ProofState = &id
	return l
}

// WithContext attaches surrounding source context.
func (l SorryLocation) WithContext(ctx string) SorryLocation {
	l.Context = ctx
	return l
}

// WithGoal attaches the goal text.
func (l SorryLocation) WithGoal(goal string) SorryLocation {
	l.GoalText = goal
	return l
}

// Matches reports whether two locations name the same obligation.
func (l SorryLocation) Matches(other SorryLocation) bool {
	return l.FilePath == other.FilePath && l.Line == other.Line && l.Column == other.Column
}

// FormatLocation renders "<file>:<line>:<column>".
func (l SorryLocation) FormatLocation() string {
	return l.FilePath + ":" + strconv.Itoa(l.Line) + ":" + strconv.Itoa(l.Column)
}

// HelperProofStatus tracks a HelperLemma's proof progress.
type HelperProofStatus string

const (
	HelperProven     HelperProofStatus = "proven"
	HelperSorry      HelperProofStatus = "sorry"
	HelperFailed     HelperProofStatus = "failed"
	HelperInProgress HelperProofStatus = "in_progress"
)

// HelperLemma is an intermediate statement the model wants to reuse.
type HelperLemma struct {
	Name          string
	Statement     string
	Attribution   string
	Status        HelperProofStatus
	Proof         string
	DiscoveredFor string
}

// NewHelperLemma creates a helper with standard self-attribution.
func NewHelperLemma(name, statement string) *HelperLemma {
	return &HelperLemma{
		Name:        name,
		Statement:   statement,
		Attribution: "-- (by claude) Helper lemma: " + name,
		Status:      HelperInProgress,
	}
}

// WithAttributionFor re-attributes the helper as discovered for target.
func (h *HelperLemma) WithAttributionFor(target string) *HelperLemma {
	h.Attribution = "-- (by claude) Helper for " + target
	h.DiscoveredFor = target
	return h
}

// ToLeanDeclaration renders the helper as a Lean declaration, using the
// stored proof if present or a sorry placeholder otherwise.
func (h *HelperLemma) ToLeanDeclaration() string {
	body := "sorry"
	if h.Proof != "" {
		body = h.Proof
	}
	return h.Attribution + "\nlemma " + h.Name + " : " + h.Statement + " := by\n  " + body
}

// SessionStatus is a proof session's lifecycle state.
type SessionStatus string

const (
	StatusActive         SessionStatus = "active"
	StatusTargetComplete SessionStatus = "target_complete"
	StatusFileComplete   SessionStatus = "file_complete"
	StatusLimit          SessionStatus = "limit"
	StatusAbandoned      SessionStatus = "abandoned"
)

// LimitReason records which ceiling a Limit status tripped on.
type LimitReason string

const (
	LimitTokenBudget LimitReason = "token_budget"
	LimitTimeLimit   LimitReason = "time_limit"
	LimitRetryLimit  LimitReason = "retry_limit"
	LimitUserAbort   LimitReason = "user_abort"
	LimitTacticLimit LimitReason = "tactic_limit"
)

// TacticOutcome is the result of one tactic attempt.
type TacticOutcomeKind string

const (
	OutcomeComplete TacticOutcomeKind = "complete"
	OutcomeProgress TacticOutcomeKind = "progress"
	OutcomeFailed   TacticOutcomeKind = "failed"
	OutcomeRejected TacticOutcomeKind = "rejected"
)

// TacticOutcome carries the kind plus kind-specific payload.
type TacticOutcome struct {
	Kind            TacticOutcomeKind
	RemainingGoals  int
	Error           string
	RejectionReason string
}

// IsSuccess reports Complete or Progress.
func (o TacticOutcome) IsSuccess() bool {
	return o.Kind == OutcomeComplete || o.Kind == OutcomeProgress
}

// IsComplete reports Complete only.
func (o TacticOutcome) IsComplete() bool {
	return o.Kind == OutcomeComplete
}

// TacticAttempt is one recorded submission against the session's target.
type TacticAttempt struct {
	TacticText  string
	Outcome     TacticOutcome
	ElapsedMs   int64
	PreStateID  *uint64
	PostStateID *uint64
}

// Session tracks one proof session bound to a single target SorryLocation.
type Session struct {
	Target       SorryLocation
	Helpers      []*HelperLemma
	Status       SessionStatus
	LimitReason  LimitReason
	AbandonReason string
	TacticHistory []*TacticAttempt
	TokensUsed   int
	TokenLimit   *int
	TimeLimit    *time.Duration
	TacticLimit  *int
	StartedAt    time.Time
	EndedAt      *time.Time
}

// NewSession opens an Active session targeting loc.
func NewSession(loc SorryLocation) *Session {
	return &Session{
		Target:    loc,
		Status:    StatusActive,
		StartedAt: time.Now().UTC(),
	}
}

// IsTarget reports whether loc matches the session's target.
func (s *Session) IsTarget(loc SorryLocation) bool {
	return s.Target.Matches(loc)
}

func (s *Session) endSession() {
	if s.EndedAt != nil {
		return
	}
	now := time.Now().UTC()
	s.EndedAt = &now
}

// RecordTactic appends an attempt and, if it trips the tactic-attempt
// ceiling, transitions the session to Limit{TacticLimit}.
func (s *Session) RecordTactic(a *TacticAttempt) {
	s.TacticHistory = append(s.TacticHistory, a)
	if s.TacticLimit != nil && len(s.TacticHistory) >= *s.TacticLimit {
		s.Status = StatusLimit
		s.LimitReason = LimitTacticLimit
		s.endSession()
	}
}

// RecordTokens adds to the session's token usage, transitioning to
// Limit{TokenBudget} if the ceiling is reached.
func (s *Session) RecordTokens(n int) {
	s.TokensUsed += n
	if s.TokenLimit != nil && s.TokensUsed >= *s.TokenLimit {
		s.Status = StatusLimit
		s.LimitReason = LimitTokenBudget
		s.endSession()
	}
}

// MarkTargetComplete transitions to TargetComplete unconditionally,
// overriding any Limit status a concurrent RecordTactic call may have set
// in the same protocol step. Completion always wins over limit side-effects.
func (s *Session) MarkTargetComplete() {
	s.Status = StatusTargetComplete
	s.endSession()
}

// MarkFileComplete transitions to FileComplete.
func (s *Session) MarkFileComplete() {
	s.Status = StatusFileComplete
	s.endSession()
}

// Abandon transitions to Abandoned{reason}.
func (s *Session) Abandon(reason string) {
	s.Status = StatusAbandoned
	s.AbandonReason = reason
	s.endSession()
}

// IsActive reports whether the session still accepts tactics.
func (s *Session) IsActive() bool {
	return s.Status == StatusActive
}

// ElapsedMs returns elapsed wall time in milliseconds, using EndedAt if set
// or now otherwise.
func (s *Session) ElapsedMs() int64 {
	end := time.Now().UTC()
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	return end.Sub(s.StartedAt).Milliseconds()
}

// SuccessfulTactics counts tactic attempts whose outcome was a success.
func (s *Session) SuccessfulTactics() int {
	n := 0
	for _, a := range s.TacticHistory {
		if a.Outcome.IsSuccess() {
			n++
		}
	}
	return n
}

// FailedTactics counts tactic attempts whose outcome was not a success.
func (s *Session) FailedTactics() int {
	return len(s.TacticHistory) - s.SuccessfulTactics()
}

// Summary renders a short human-readable status line.
func (s *Session) Summary() string {
	return s.Target.FormatLocation() + ": " + string(s.Status) +
		" (" + strconv.Itoa(len(s.TacticHistory)) + " tactics, " + strconv.Itoa(s.SuccessfulTactics()) + " successful)"
}

// ReplResponse re-exports the REPL response type for convenience at the
// protocol layer.
type ReplResponse = repl.Response
