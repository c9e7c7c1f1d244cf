package errors

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewStructuredError(t *testing.T) {
	err := NewStructuredError(ErrAPIKeyMissing, "anthropic api key is not configured")

	if err.Code != ErrAPIKeyMissing {
		t.Errorf("Expected code %s, got %s", ErrAPIKeyMissing, err.Code)
	}
	if err.Message != "anthropic api key is not configured" {
		t.Errorf("Unexpected message: %s", err.Message)
	}
	if err.RecoverySuggestions == nil {
		t.Error("RecoverySuggestions should not be nil")
	}
}

func TestStructuredErrorWithDetails(t *testing.T) {
	err := NewStructuredError(ErrInvalidParameter, "Invalid parameter").
		WithDetails("Parameter 'model' must name a supported provider model")

	if err.Details != "Parameter 'model' must name a supported provider model" {
		t.Errorf("Unexpected details: %s", err.Details)
	}
}

func TestStructuredErrorWithRecovery(t *testing.T) {
	err := NewStructuredError(ErrLLMFailed, "LLM call failed").
		WithRecovery("Check the provider API key and quota").
		WithRecovery("Retry after a brief delay")

	if len(err.RecoverySuggestions) != 2 {
		t.Errorf("Expected 2 recovery suggestions, got %d", len(err.RecoverySuggestions))
	}
}

func TestStructuredErrorWithRelatedTools(t *testing.T) {
	err := NewStructuredError(ErrRateLimited, "Rate limited").
		WithRelatedTools("get-metrics")

	if len(err.RelatedTools) != 1 {
		t.Errorf("Expected 1 related tool, got %d", len(err.RelatedTools))
	}
}

func TestStructuredErrorWithExample(t *testing.T) {
	err := NewStructuredError(ErrInvalidParameter, "Invalid parameter").
		WithExample("prove", map[string]any{
			"goal": "example goal",
		})

	if err.ExampleFix == nil {
		t.Error("ExampleFix should not be nil")
	}

	example, ok := err.ExampleFix.(map[string]any)
	if !ok {
		t.Fatal("ExampleFix should be a map")
	}

	if example["tool"] != "prove" {
		t.Errorf("Expected tool 'prove', got %v", example["tool"])
	}
}

func TestStructuredErrorError(t *testing.T) {
	err := NewStructuredError(ErrRateLimited, "Rate limited")
	errorString := err.Error()

	if errorString != "[ERR_5001_RATE_LIMITED] Rate limited" {
		t.Errorf("Unexpected error string: %s", errorString)
	}
}

func TestStructuredErrorJSONSerialization(t *testing.T) {
	err := NewStructuredError(ErrInvalidParameter, "Invalid parameter").
		WithDetails("Must provide a goal").
		WithRecovery("Add a goal field to the request").
		WithRelatedTools("prove").
		WithExample("prove", map[string]any{"goal": "example"})

	data, jsonErr := json.Marshal(err)
	if jsonErr != nil {
		t.Fatalf("Failed to marshal error: %v", jsonErr)
	}

	var decoded StructuredError
	if jsonErr := json.Unmarshal(data, &decoded); jsonErr != nil {
		t.Fatalf("Failed to unmarshal error: %v", jsonErr)
	}

	if decoded.Code != err.Code {
		t.Errorf("Code mismatch after round-trip: %s != %s", decoded.Code, err.Code)
	}
	if decoded.Message != err.Message {
		t.Errorf("Message mismatch after round-trip: %s != %s", decoded.Message, err.Message)
	}
}

func TestWrapError(t *testing.T) {
	originalErr := errors.New("original error")
	wrapped := WrapError(ErrLLMFailed, originalErr)

	if wrapped.Code != ErrLLMFailed {
		t.Errorf("Expected code %s, got %s", ErrLLMFailed, wrapped.Code)
	}
	if wrapped.Message != "original error" {
		t.Errorf("Unexpected message: %s", wrapped.Message)
	}
}

func TestWrapErrorNil(t *testing.T) {
	wrapped := WrapError(ErrLLMFailed, nil)
	if wrapped != nil {
		t.Error("WrapError should return nil for nil input")
	}
}

func TestIsStructuredError(t *testing.T) {
	structErr := NewStructuredError(ErrAPIKeyMissing, "Not configured")
	regularErr := errors.New("regular error")

	if !IsStructuredError(structErr) {
		t.Error("IsStructuredError should return true for StructuredError")
	}
	if IsStructuredError(regularErr) {
		t.Error("IsStructuredError should return false for regular error")
	}
}

func TestAsStructuredError(t *testing.T) {
	structErr := NewStructuredError(ErrAPIKeyMissing, "Not configured")
	regularErr := errors.New("regular error")

	se, ok := AsStructuredError(structErr)
	if !ok || se == nil {
		t.Error("AsStructuredError should return the error for StructuredError")
	}

	se, ok = AsStructuredError(regularErr)
	if ok || se != nil {
		t.Error("AsStructuredError should return nil for regular error")
	}
}

func TestToStructuredError(t *testing.T) {
	// Test with StructuredError
	structErr := NewStructuredError(ErrAPIKeyMissing, "Not configured")
	result := ToStructuredError(structErr)
	if result.Code != ErrAPIKeyMissing {
		t.Error("ToStructuredError should return unchanged StructuredError")
	}

	// Test with regular error
	regularErr := errors.New("regular error")
	result = ToStructuredError(regularErr)
	if result == nil {
		t.Error("ToStructuredError should wrap regular errors")
	}
	if result.Code != ErrInvalidOperation {
		t.Errorf("Expected generic code, got %s", result.Code)
	}

	// Test with nil
	result = ToStructuredError(nil)
	if result != nil {
		t.Error("ToStructuredError should return nil for nil input")
	}
}

func TestRecoveryGenerator(t *testing.T) {
	gen := NewRecoveryGenerator()

	// Test default recovery for known error
	suggestions := gen.GetSuggestions(ErrAPIKeyMissing)
	if len(suggestions) == 0 {
		t.Error("Should have default recovery for ErrAPIKeyMissing")
	}

	// Test unknown error code
	suggestions = gen.GetSuggestions("UNKNOWN_CODE")
	if len(suggestions) == 0 {
		t.Error("Should have generic recovery for unknown code")
	}
}

func TestRecoveryGeneratorRelatedTools(t *testing.T) {
	gen := NewRecoveryGenerator()

	tools := gen.GetRelatedTools(ErrLLMFailed)
	if len(tools) == 0 {
		t.Error("Should have related tools for ErrLLMFailed")
	}
}

func TestRecoveryGeneratorExample(t *testing.T) {
	gen := NewRecoveryGenerator()

	example := gen.GetExample("UNKNOWN_CODE")
	if example != nil {
		t.Error("Should have no example for an unregistered code")
	}
}

func TestRecoveryGeneratorEnhance(t *testing.T) {
	gen := NewRecoveryGenerator()
	err := NewStructuredError(ErrNetworkFailed, "network unreachable")

	enhanced := gen.Enhance(err)

	if len(enhanced.RecoverySuggestions) == 0 {
		t.Error("Enhanced error should have recovery suggestions")
	}
}

func TestEnhanceError(t *testing.T) {
	err := NewStructuredError(ErrExternalTimeout, "request timed out")

	enhanced := EnhanceError(err)

	if len(enhanced.RecoverySuggestions) == 0 {
		t.Error("EnhanceError should add recovery suggestions")
	}
}

func TestErrorCategory(t *testing.T) {
	tests := []struct {
		code     string
		category string
	}{
		{ErrInvalidParameter, "validation"},
		{ErrLLMFailed, "external"},
		{ErrRateLimited, "limit"},
	}

	for _, tt := range tests {
		category := ErrorCategory(tt.code)
		if category != tt.category {
			t.Errorf("ErrorCategory(%s): got %s, want %s", tt.code, category, tt.category)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	// External errors should be retryable
	if !IsRetryable(ErrLLMFailed) {
		t.Error("LLM errors should be retryable")
	}
	if !IsRetryable(ErrNetworkFailed) {
		t.Error("Network errors should be retryable")
	}
	if !IsRetryable(ErrRateLimited) {
		t.Error("Rate limited should be retryable")
	}

	// Validation errors should not be retryable
	if IsRetryable(ErrInvalidParameter) {
		t.Error("Validation errors should not be retryable")
	}
}

func TestErrorCategories(t *testing.T) {
	// Verify error codes follow the expected format
	tests := []struct {
		code     string
		category string
	}{
		{ErrInvalidParameter, "2"}, // 2xxx = Validation errors
		{ErrLLMFailed, "4"},        // 4xxx = External errors
		{ErrRateLimited, "5"},      // 5xxx = Limit errors
	}

	for _, tt := range tests {
		// Extract category from code (format: ERR_XXXX_NAME)
		if len(tt.code) < 5 {
			t.Errorf("Invalid code format: %s", tt.code)
			continue
		}
		categoryDigit := string(tt.code[4])
		if categoryDigit != tt.category {
			t.Errorf("Code %s: expected category %s, got %s", tt.code, tt.category, categoryDigit)
		}
	}
}

func TestStructuredErrorChaining(t *testing.T) {
	err := NewStructuredError(ErrInvalidParameter, "Invalid parameter").
		WithDetails("Field 'goal' is required").
		WithRecovery("Provide a non-empty goal field").
		WithRecovery("Check the tool's input schema").
		WithRelatedTools("prove", "verify-response").
		WithExample("prove", map[string]any{
			"goal": "example goal",
		})

	// Verify all fields are set
	if err.Details == "" {
		t.Error("Details should be set")
	}
	if len(err.RecoverySuggestions) != 2 {
		t.Errorf("Expected 2 recovery suggestions, got %d", len(err.RecoverySuggestions))
	}
	if len(err.RelatedTools) != 2 {
		t.Errorf("Expected 2 related tools, got %d", len(err.RelatedTools))
	}
	if err.ExampleFix == nil {
		t.Error("ExampleFix should be set")
	}
}

func TestAllErrorCodesHaveRecovery(t *testing.T) {
	gen := NewRecoveryGenerator()

	codes := []string{
		ErrInvalidParameter,
		ErrMissingRequired,
		ErrAPIKeyMissing,
		ErrLLMFailed,
		ErrNetworkFailed,
		ErrExternalTimeout,
		ErrRateLimited,
	}

	for _, code := range codes {
		suggestions := gen.GetSuggestions(code)
		if len(suggestions) == 0 {
			t.Errorf("No recovery suggestions for code %s", code)
		}
	}
}

func TestToMap(t *testing.T) {
	err := NewStructuredError(ErrInvalidParameter, "Invalid parameter").
		WithDetails("Must provide a goal").
		WithRecovery("Add goal field").
		WithRelatedTools("prove").
		WithExample("prove", map[string]any{"goal": "example"})

	m := err.ToMap()

	if m["error_code"] != ErrInvalidParameter {
		t.Errorf("Expected error_code %s, got %v", ErrInvalidParameter, m["error_code"])
	}
	if m["message"] != "Invalid parameter" {
		t.Errorf("Expected message 'Invalid parameter', got %v", m["message"])
	}
	if m["details"] != "Must provide a goal" {
		t.Errorf("Expected details 'Must provide a goal', got %v", m["details"])
	}
}
