package errors

// RecoveryGenerator provides recovery suggestions for common error scenarios
type RecoveryGenerator struct {
	suggestions  map[string][]string
	relatedTools map[string][]string
	examples     map[string]map[string]any
}

// NewRecoveryGenerator creates a new RecoveryGenerator with default suggestions
func NewRecoveryGenerator() *RecoveryGenerator {
	g := &RecoveryGenerator{
		suggestions:  make(map[string][]string),
		relatedTools: make(map[string][]string),
		examples:     make(map[string]map[string]any),
	}
	g.registerDefaults()
	return g
}

// registerDefaults sets up default recovery suggestions for the LLM-client
// error codes declared in codes.go.
func (g *RecoveryGenerator) registerDefaults() {
	g.register(ErrInvalidParameter,
		[]string{
			"Check the parameter type and format",
			"Refer to the provider's API documentation for valid values",
		},
		[]string{},
		nil,
	)

	g.register(ErrMissingRequired,
		[]string{
			"Add the required parameter to your request",
		},
		[]string{},
		nil,
	)

	g.register(ErrAPIKeyMissing,
		[]string{
			"Set the provider's API key environment variable (e.g. ANTHROPIC_API_KEY, OPENAI_API_KEY, GOOGLE_API_KEY)",
			"Verify config.Load() picked up the key for the intended provider",
		},
		[]string{"get-metrics"},
		nil,
	)

	g.register(ErrLLMFailed,
		[]string{
			"Check the provider API key and account quota",
			"Retry after a brief delay",
			"Switch default_provider if one provider is degraded",
		},
		[]string{"get-metrics"},
		nil,
	)

	g.register(ErrNetworkFailed,
		[]string{
			"Check network connectivity to the provider's API endpoint",
			"Retry after a brief delay",
		},
		[]string{"get-metrics"},
		nil,
	)

	g.register(ErrExternalTimeout,
		[]string{
			"Increase llm.timeout_seconds in configuration",
			"Retry the request",
		},
		[]string{"get-metrics"},
		nil,
	)

	g.register(ErrRateLimited,
		[]string{
			"Wait before retrying",
			"Reduce request concurrency or batch calls",
		},
		[]string{"get-metrics"},
		nil,
	)
}

// register adds recovery information for an error code
func (g *RecoveryGenerator) register(code string, suggestions []string, tools []string, example map[string]any) {
	g.suggestions[code] = suggestions
	g.relatedTools[code] = tools
	if example != nil {
		g.examples[code] = example
	}
}

// GetSuggestions returns recovery suggestions for an error code
func (g *RecoveryGenerator) GetSuggestions(code string) []string {
	if suggestions, ok := g.suggestions[code]; ok {
		return suggestions
	}
	return []string{"Check the error code and message for more details"}
}

// GetRelatedTools returns related tools for an error code
func (g *RecoveryGenerator) GetRelatedTools(code string) []string {
	if tools, ok := g.relatedTools[code]; ok {
		return tools
	}
	return nil
}

// GetExample returns an example fix for an error code
func (g *RecoveryGenerator) GetExample(code string) map[string]any {
	if example, ok := g.examples[code]; ok {
		return example
	}
	return nil
}

// Enhance adds recovery information to a StructuredError
func (g *RecoveryGenerator) Enhance(err *StructuredError) *StructuredError {
	if err == nil {
		return nil
	}

	// Only add suggestions if none exist
	if len(err.RecoverySuggestions) == 0 {
		err.RecoverySuggestions = g.GetSuggestions(err.Code)
	}

	// Only add related tools if none exist
	if len(err.RelatedTools) == 0 {
		err.RelatedTools = g.GetRelatedTools(err.Code)
	}

	// Only add example if none exists
	if err.ExampleFix == nil {
		err.ExampleFix = g.GetExample(err.Code)
	}

	return err
}

// DefaultGenerator is the default recovery generator instance
var DefaultGenerator = NewRecoveryGenerator()

// EnhanceError adds recovery information using the default generator
func EnhanceError(err *StructuredError) *StructuredError {
	return DefaultGenerator.Enhance(err)
}
