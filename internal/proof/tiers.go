package proof

import (
	"context"
	"strings"
	"time"

	"unified-thinking/internal/llm"
	"unified-thinking/internal/memory"
	"unified-thinking/internal/repl"
)

// Domain classifies the mathematical area a goal belongs to, used to pick
// domain-specific tactic pools and to key learned strategies.
type Domain string

const (
	DomainArithmetic     Domain = "arithmetic"
	DomainSetTheory      Domain = "set_theory"
	DomainOrder          Domain = "order"
	DomainAlgebra        Domain = "algebra"
	DomainLogic          Domain = "logic"
	DomainTypeTheory     Domain = "type_theory"
	DomainDataStructures Domain = "data_structures"
	DomainCategoryTheory Domain = "category_theory"
	DomainGeneral        Domain = "general"
)

var allDomains = []Domain{
	DomainArithmetic, DomainSetTheory, DomainOrder, DomainAlgebra, DomainLogic,
	DomainTypeTheory, DomainDataStructures, DomainCategoryTheory, DomainGeneral,
}

// ClassifyDomain guesses a goal's domain from surface syntax in its
// statement. Unrecognized shapes fall back to General.
func ClassifyDomain(goalStatement string) Domain {
	g := strings.ToLower(goalStatement)
	switch {
	case strings.ContainsAny(g, "+-*/") && (strings.Contains(g, "nat") || strings.Contains(g, "int") || strings.Contains(g, "succ")):
		return DomainArithmetic
	case strings.Contains(g, "∈") || strings.Contains(g, "⊆") || strings.Contains(g, "set"):
		return DomainSetTheory
	case strings.Contains(g, "≤") || strings.Contains(g, "≥") || strings.Contains(g, "<") || strings.Contains(g, ">"):
		return DomainOrder
	case strings.Contains(g, "group") || strings.Contains(g, "ring") || strings.Contains(g, "field"):
		return DomainAlgebra
	case strings.Contains(g, "∀") || strings.Contains(g, "∃") || strings.Contains(g, "¬") || strings.Contains(g, "→"):
		return DomainLogic
	case strings.Contains(g, "type") || strings.Contains(g, "functor") || strings.Contains(g, "category"):
		if strings.Contains(g, "category") || strings.Contains(g, "functor") {
			return DomainCategoryTheory
		}
		return DomainTypeTheory
	case strings.Contains(g, "list") || strings.Contains(g, "array") || strings.Contains(g, "tree") || strings.Contains(g, "map"):
		return DomainDataStructures
	default:
		return DomainGeneral
	}
}

// Tier is the rung of the tiered proof cascade a tactic came from.
type Tier string

const (
	TierDecidable  Tier = "decidable"
	TierAutomation Tier = "automation"
	TierAIAssisted Tier = "ai_assisted"
	TierHumanLoop  Tier = "human_loop"
)

func tacticsForTier(t Tier) []string {
	switch t {
	case TierDecidable:
		return []string{"rfl", "decide", "norm_num", "trivial", "simp only []"}
	case TierAutomation:
		return []string{"simp", "omega", "ring", "tauto", "linarith", "aesop"}
	case TierAIAssisted:
		return []string{"simp_all", "field_simp", "constructor", "induction'", "cases'"}
	default:
		return nil
	}
}

func domainSpecificTactics(d Domain) []string {
	switch d {
	case DomainArithmetic:
		return []string{"omega", "norm_num", "ring", "decide"}
	case DomainSetTheory:
		return []string{"ext", "simp [Set.mem_setOf_eq]", "aesop"}
	case DomainOrder:
		return []string{"linarith", "gcongr", "order_closed"}
	case DomainAlgebra:
		return []string{"ring", "group", "field_simp", "noncomm_ring"}
	case DomainLogic:
		return []string{"tauto", "constructor", "exact?", "push_neg"}
	case DomainTypeTheory:
		return []string{"rfl", "simp [Function.comp]", "cases'"}
	case DomainDataStructures:
		return []string{"induction'", "simp [List.map, List.foldr]", "decide"}
	case DomainCategoryTheory:
		return []string{"simp [Category.assoc]", "aesop_cat"}
	default:
		return []string{"simp", "aesop"}
	}
}

// tacticsForGoal extracts goal-shape hints (e.g. an explicit hypothesis
// name or symbol in the statement suggesting a matching tactic).
func tacticsForGoal(goal string) []string {
	g := strings.ToLower(goal)
	var hints []string
	if strings.Contains(g, "↔") {
		hints = append(hints, "constructor")
	}
	if strings.Contains(g, "∧") {
		hints = append(hints, "refine ⟨?_, ?_⟩")
	}
	if strings.Contains(g, "=") {
		hints = append(hints, "congr 1")
	}
	return hints
}

// tacticVariations synthesizes nearby spellings of a base tactic to widen a
// single tier's search without a full retry of the tier.
func tacticVariations(base, goal string) []string {
	switch base {
	case "simp":
		return []string{"simp_all", "simp only [*]"}
	case "ring":
		return []string{"ring_nf"}
	case "omega":
		return []string{"omega"}
	default:
		return nil
	}
}

// sorryPlaceholder renders the human-loop fallback marker for goal.
func sorryPlaceholder(goal string) string {
	return "sorry -- unresolved: " + goal
}

// Strategy tracks which tactics have historically worked for a domain,
// boosting tactics that have succeeded to the front of future candidate
// lists.
type Strategy struct {
	Domain           Domain
	PreferredTactics []string
	Uses             int
	Successes        int
}

// NewStrategy seeds a strategy with an initial tactic pool.
func NewStrategy(d Domain, tactics []string) *Strategy {
	return &Strategy{Domain: d, PreferredTactics: tactics}
}

// RecordUsage tallies one attempt, success or not.
func (s *Strategy) RecordUsage(success bool) {
	s.Uses++
	if success {
		s.Successes++
	}
}

// BoostTactic moves tactic to the front of the preferred list, inserting it
// if absent.
func (s *Strategy) BoostTactic(tactic string) {
	idx := -1
	for i, t := range s.PreferredTactics {
		if t == tactic {
			idx = i
			break
		}
	}
	if idx == 0 {
		return
	}
	if idx > 0 {
		s.PreferredTactics = append(s.PreferredTactics[:idx], s.PreferredTactics[idx+1:]...)
	}
	s.PreferredTactics = append([]string{tactic}, s.PreferredTactics...)
}

// TacticResult is the outcome of one tactic attempted against a goal during
// automated search (distinct from TacticOutcome, which governs the
// protocol-level single-target session).
type TacticResult struct {
	Tactic    string
	Success   bool
	Error     string
	NewGoals  []string
	ElapsedMs int64
}

// IsComplete reports a successful tactic that left no remaining goals.
func (r TacticResult) IsComplete() bool {
	return r.Success && len(r.NewGoals) == 0
}

func tacticSuccess(tactic string, newGoals []string, elapsedMs int64) TacticResult {
	return TacticResult{Tactic: tactic, Success: true, NewGoals: newGoals, ElapsedMs: elapsedMs}
}

func tacticFailure(tactic, errMsg string, elapsedMs int64) TacticResult {
	return TacticResult{Tactic: tactic, Success: false, Error: errMsg, ElapsedMs: elapsedMs}
}

// Attempt records the full tactic search performed against one goal across
// however many tiers were needed.
type Attempt struct {
	Goal         string
	Domain       Domain
	TacticsTried []TacticResult
	SucceededAt  Tier
	Failed       bool
	FailedAt     Tier
	StartedAt    time.Time
	FinishedAt   time.Time
}

// NewAttempt opens an attempt for goal, classifying its domain.
func NewAttempt(goal string) *Attempt {
	return &Attempt{Goal: goal, Domain: ClassifyDomain(goal), StartedAt: time.Now().UTC()}
}

func (a *Attempt) recordTactic(r TacticResult) {
	a.TacticsTried = append(a.TacticsTried, r)
}

func (a *Attempt) markSuccess(t Tier) {
	a.SucceededAt = t
	a.FinishedAt = time.Now().UTC()
}

func (a *Attempt) markFailure(t Tier) {
	a.Failed = true
	a.FailedAt = t
	a.FinishedAt = time.Now().UTC()
}

// Succeeded reports whether any tier closed the goal.
func (a *Attempt) Succeeded() bool {
	return a.SucceededAt != "" && !a.Failed
}

// Context bundles the signals an AI-assisted tier draws on: tactic history
// for this attempt, tactic hints, and similar past successes recalled from
// memory.
type Context struct {
	Goal             string
	History          []TacticResult
	AvailableLemmas  []string
	SimilarAttempts  []*Attempt
}

// Stats accumulates aggregate proof-engine outcomes across calls to Prove.
type Stats struct {
	TotalAttempts   int
	Successes       int
	ByTier          map[Tier]int
}

func newStats() Stats {
	return Stats{ByTier: make(map[Tier]int)}
}

func (s *Stats) record(a *Attempt) {
	s.TotalAttempts++
	if a.Succeeded() {
		s.Successes++
		s.ByTier[a.SucceededAt]++
	}
}

// EngineConfig bounds the tiered search engine's effort per goal.
type EngineConfig struct {
	MaxTacticsPerTier    int
	DecidableTimeout     time.Duration
	AutomationTimeout    time.Duration
	AITimeout            time.Duration
	EnableAI             bool
	EnableLearning       bool
	TryVariations        bool
}

// DefaultEngineConfig mirrors the original implementation's defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxTacticsPerTier: 20,
		DecidableTimeout:  5 * time.Second,
		AutomationTimeout: 30 * time.Second,
		AITimeout:         60 * time.Second,
		EnableAI:          true,
		EnableLearning:    true,
		TryVariations:     true,
	}
}

// Engine is the tiered proof-search automation: it escalates a goal through
// Decidable, Automation, and AI-assisted tactic pools before falling back
// to a human-loop sorry placeholder, learning which tactics work per
// domain along the way.
type Engine struct {
	config         EngineConfig
	strategies     map[Domain][]*Strategy
	stats          Stats
	mem            memory.Store
	channel        repl.Channel
	embedder       llm.Client
	embeddingIndex *memory.EmbeddingIndex
}

// NewEngine builds an engine with default per-domain strategies.
func NewEngine(config EngineConfig, channel repl.Channel) *Engine {
	return &Engine{
		config:     config,
		strategies: initializeDefaultStrategies(),
		stats:      newStats(),
		channel:    channel,
	}
}

// WithMemory attaches a memory store so successful tactics are persisted
// as reusable proof patterns.
func (e *Engine) WithMemory(m memory.Store) *Engine {
	e.mem = m
	return e
}

// WithEmbeddings attaches an embedder and similarity index so CreateContext
// can recall proof patterns whose goal text differs from the current goal
// but is semantically close, once the exact-match search over memory turns
// up nothing.
func (e *Engine) WithEmbeddings(embedder llm.Client, index *memory.EmbeddingIndex) *Engine {
	e.embedder = embedder
	e.embeddingIndex = index
	return e
}

func initializeDefaultStrategies() map[Domain][]*Strategy {
	strategies := make(map[Domain][]*Strategy, len(allDomains))
	for _, d := range allDomains {
		strategies[d] = []*Strategy{NewStrategy(d, domainSpecificTactics(d))}
	}
	return strategies
}

// Stats returns the engine's accumulated statistics.
func (e *Engine) Stats() Stats {
	return e.stats
}

// StrategiesForDomain exposes the learned strategy list for a domain.
func (e *Engine) StrategiesForDomain(d Domain) []*Strategy {
	return e.strategies[d]
}

// Prove runs the tiered cascade against goal, targeting proofState in the
// channel, and returns the full attempt record.
func (e *Engine) Prove(ctx context.Context, goal string, proofState *uint64) (*Attempt, error) {
	attempt := NewAttempt(goal)
	domain := attempt.Domain

	if result, err := e.tryDecidable(ctx, goal, proofState, attempt); err != nil {
		return nil, err
	} else if result != nil && result.IsComplete() {
		attempt.markSuccess(TierDecidable)
		e.recordSuccess(goal, result.Tactic, domain)
		e.stats.record(attempt)
		return attempt, nil
	}

	if result, err := e.tryAutomation(ctx, goal, proofState, attempt); err != nil {
		return nil, err
	} else if result != nil && result.IsComplete() {
		attempt.markSuccess(TierAutomation)
		e.recordSuccess(goal, result.Tactic, domain)
		e.stats.record(attempt)
		return attempt, nil
	}

	if e.config.EnableAI {
		if result, err := e.tryAIAssisted(ctx, goal, proofState, attempt); err != nil {
			return nil, err
		} else if result != nil && result.IsComplete() {
			attempt.markSuccess(TierAIAssisted)
			e.recordSuccess(goal, result.Tactic, domain)
			e.stats.record(attempt)
			return attempt, nil
		}
	}

	sorry := sorryPlaceholder(goal)
	attempt.recordTactic(tacticSuccess(sorry, []string{goal}, 0))
	attempt.markFailure(TierHumanLoop)
	e.stats.record(attempt)
	return attempt, nil
}

func (e *Engine) tryDecidable(ctx context.Context, goal string, proofState *uint64, attempt *Attempt) (*TacticResult, error) {
	tactics := e.tacticPool(TierDecidable, attempt.Domain)
	return e.searchTier(ctx, goal, proofState, attempt, tactics, e.config.DecidableTimeout)
}

func (e *Engine) tryAutomation(ctx context.Context, goal string, proofState *uint64, attempt *Attempt) (*TacticResult, error) {
	tactics := e.tacticPool(TierAutomation, attempt.Domain)
	tactics = appendUnique(tactics, tacticsForGoal(goal))
	return e.searchTier(ctx, goal, proofState, attempt, tactics, e.config.AutomationTimeout)
}

func (e *Engine) tryAIAssisted(ctx context.Context, goal string, proofState *uint64, attempt *Attempt) (*TacticResult, error) {
	candidates := e.buildAICandidates(goal, attempt)

	start := time.Now()
	var bestProgress *TacticResult
	for _, tactic := range candidates {
		if time.Since(start) > e.config.AITimeout {
			break
		}
		result, err := e.trySingleTactic(ctx, goal, proofState, tactic)
		if err != nil {
			return nil, err
		}
		attempt.recordTactic(*result)

		if result.IsComplete() {
			return result, nil
		}
		if result.Success {
			// First-seen-wins: only replace the current best when the new
			// result strictly reduces the remaining goal count.
			if bestProgress == nil || len(result.NewGoals) < len(bestProgress.NewGoals) {
				bestProgress = result
			}
		}
	}
	return bestProgress, nil
}

// tacticPool returns the tier's base pool plus learned preferred tactics
// for domain, deduplicated with the base pool taking precedence.
func (e *Engine) tacticPool(tier Tier, domain Domain) []string {
	tactics := append([]string(nil), tacticsForTier(tier)...)
	if strategies, ok := e.strategies[domain]; ok {
		for _, s := range strategies {
			tactics = appendUnique(tactics, s.PreferredTactics)
		}
	}
	if len(tactics) > e.config.MaxTacticsPerTier {
		tactics = tactics[:e.config.MaxTacticsPerTier]
	}
	return tactics
}

func (e *Engine) searchTier(ctx context.Context, goal string, proofState *uint64, attempt *Attempt, tactics []string, timeout time.Duration) (*TacticResult, error) {
	start := time.Now()
	for _, tactic := range tactics {
		if time.Since(start) > timeout {
			break
		}
		result, err := e.trySingleTactic(ctx, goal, proofState, tactic)
		if err != nil {
			return nil, err
		}
		attempt.recordTactic(*result)
		if result.IsComplete() {
			return result, nil
		}

		if e.config.TryVariations {
			for _, variant := range tacticVariations(tactic, goal) {
				if time.Since(start) > timeout {
					break
				}
				vResult, err := e.trySingleTactic(ctx, goal, proofState, variant)
				if err != nil {
					return nil, err
				}
				attempt.recordTactic(*vResult)
				if vResult.IsComplete() {
					return vResult, nil
				}
			}
		}
	}
	return nil, nil
}

func (e *Engine) trySingleTactic(ctx context.Context, goal string, proofState *uint64, tactic string) (*TacticResult, error) {
	start := time.Now()
	resp, err := e.channel.ApplyTactic(ctx, tactic, proofState)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		r := tacticFailure(tactic, err.Error(), elapsed)
		return &r, nil
	}
	if resp.HasErrors() {
		r := tacticFailure(tactic, repl.RenderDiagnostics(resp), elapsed)
		return &r, nil
	}
	var goals []string
	if resp.Goals != nil {
		goals = *resp.Goals
	}
	r := tacticSuccess(tactic, goals, elapsed)
	return &r, nil
}

// buildAICandidates assembles a deduplicated, order-preserving candidate
// pool for the AI-assisted tier: tier defaults, then domain tactics, then
// goal-shape hints, then learned preferred tactics, capped at the per-tier
// budget.
func (e *Engine) buildAICandidates(goal string, attempt *Attempt) []string {
	var candidates []string
	candidates = append(candidates, tacticsForTier(TierAIAssisted)...)
	candidates = append(candidates, domainSpecificTactics(attempt.Domain)...)
	candidates = append(candidates, tacticsForGoal(goal)...)
	if strategies, ok := e.strategies[attempt.Domain]; ok {
		for _, s := range strategies {
			candidates = append(candidates, s.PreferredTactics...)
		}
	}

	seen := make(map[string]bool, len(candidates))
	var unique []string
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		unique = append(unique, c)
		if len(unique) >= e.config.MaxTacticsPerTier {
			break
		}
	}
	return unique
}

func appendUnique(base []string, extra []string) []string {
	seen := make(map[string]bool, len(base))
	for _, b := range base {
		seen[b] = true
	}
	for _, e := range extra {
		if !seen[e] {
			seen[e] = true
			base = append(base, e)
		}
	}
	return base
}

// recordSuccess boosts the winning tactic in the domain's leading strategy
// and, if a memory store is attached, persists the pattern for future
// context building.
func (e *Engine) recordSuccess(goal, tactic string, domain Domain) {
	if !e.config.EnableLearning {
		return
	}
	strategies, ok := e.strategies[domain]
	if !ok || len(strategies) == 0 {
		strategies = []*Strategy{NewStrategy(domain, nil)}
		e.strategies[domain] = strategies
	}
	strategies[0].RecordUsage(true)
	strategies[0].BoostTactic(tactic)

	e.persistSuccessPattern(goal, tactic, domain)
}

func (e *Engine) persistSuccessPattern(goal, tactic string, domain Domain) {
	if e.mem == nil {
		return
	}
	ctx := context.Background()
	n := &memory.Node{
		Kind:       memory.KindExperience,
		Content:    "proof_pattern:" + string(domain) + ":" + tactic + ":" + goal,
		Tier:       memory.TierSession,
		Confidence: 0.9,
		Metadata: map[string]any{
			"kind":   "proof_pattern",
			"domain": string(domain),
			"goal":   goal,
			"tactic": tactic,
		},
	}
	if err := e.mem.AddNode(ctx, n); err != nil {
		return
	}
	e.indexSuccessPattern(ctx, n)
}

// indexSuccessPattern embeds a freshly persisted proof-pattern node's goal
// text and adds it to the similarity index, so CreateContext can recall it
// later even when the current goal isn't a byte-for-byte match.
func (e *Engine) indexSuccessPattern(ctx context.Context, n *memory.Node) {
	if e.embedder == nil || e.embeddingIndex == nil {
		return
	}
	resp, err := e.embedder.Embed(ctx, llm.EmbeddingRequest{Texts: []string{n.Content}})
	if err != nil || len(resp.Embeddings) == 0 {
		return
	}
	n.Embedding = resp.Embeddings[0]
	if err := e.mem.UpdateNode(ctx, n); err != nil {
		return
	}
	_ = e.embeddingIndex.Index(ctx, n)
}

// CreateContext builds the AI-assisted tier's context object: tactic
// history from the in-flight attempt, strategy-ordered hints, and similar
// past successes recalled by searching memory for matching proof patterns.
func (e *Engine) CreateContext(ctx context.Context, goal string, attempt *Attempt) Context {
	c := Context{Goal: goal, History: append([]TacticResult(nil), attempt.TacticsTried...)}

	if strategies, ok := e.strategies[attempt.Domain]; ok && len(strategies) > 0 {
		hints := strategies[0].PreferredTactics
		if len(hints) > 8 {
			hints = hints[:8]
		}
		for _, h := range hints {
			c.AvailableLemmas = append(c.AvailableLemmas, "tactic_hint:"+h)
		}
	}

	if e.mem == nil {
		return c
	}
	nodes, err := e.mem.SearchContent(ctx, "proof_pattern", 20)
	if err != nil {
		return c
	}
	for _, n := range nodes {
		if past := attemptFromPatternNode(n, goal, true); past != nil {
			c.SimilarAttempts = append(c.SimilarAttempts, past)
		}
	}

	if len(c.SimilarAttempts) == 0 {
		c.SimilarAttempts = e.recallByEmbedding(ctx, goal)
	}
	return c
}

// attemptFromPatternNode rebuilds a past successful Attempt from a persisted
// proof_pattern node's metadata. When exact is true the node's recorded goal
// must equal goal byte-for-byte (used by the FTS pass above); when false the
// node is accepted regardless of its recorded goal text (used for embedding
// recall, where the match is semantic rather than literal).
func attemptFromPatternNode(n *memory.Node, goal string, exact bool) *Attempt {
	kind, _ := n.Metadata["kind"].(string)
	if kind != "proof_pattern" {
		return nil
	}
	if exact {
		g, _ := n.Metadata["goal"].(string)
		if g != goal {
			return nil
		}
	}
	tactic, _ := n.Metadata["tactic"].(string)
	if tactic == "" {
		tactic = "simp"
	}
	past := NewAttempt(goal)
	past.recordTactic(tacticSuccess(tactic, []string{goal}, 0))
	past.markSuccess(TierAIAssisted)
	return past
}

// recallByEmbedding falls back to semantic search over the proof-pattern
// index when the exact-match FTS pass in CreateContext finds nothing: the
// current goal is embedded and matched against previously indexed goals
// whose wording differs but whose meaning is close.
func (e *Engine) recallByEmbedding(ctx context.Context, goal string) []*Attempt {
	if e.embedder == nil || e.embeddingIndex == nil {
		return nil
	}
	resp, err := e.embedder.Embed(ctx, llm.EmbeddingRequest{Texts: []string{goal}})
	if err != nil || len(resp.Embeddings) == 0 {
		return nil
	}
	nodes, err := e.embeddingIndex.SearchByEmbedding(ctx, resp.Embeddings[0], 5)
	if err != nil {
		return nil
	}
	var out []*Attempt
	for _, n := range nodes {
		if past := attemptFromPatternNode(n, goal, false); past != nil {
			out = append(out, past)
		}
	}
	return out
}
