package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type analyzeInputs struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

type analyzeOutputs struct {
	Vulnerabilities []string `json:"vulnerabilities"`
	Severity        string   `json:"severity"`
}

func analyzeSpec() Spec {
	return Spec{
		Name:         "AnalyzeCode",
		Instructions: "Analyze the provided code for security vulnerabilities",
		InputFields: []FieldSpec{
			NewField("code", TString()).WithDescription("Source code to analyze"),
			NewField("language", TString()).WithDescription("Programming language"),
		},
		OutputFields: []FieldSpec{
			NewField("vulnerabilities", TList(TString())).WithDescription("List of vulnerabilities found"),
			NewField("severity", TEnum("low", "medium", "high", "critical")).WithDescription("Overall severity rating"),
		},
	}
}

func TestToPrompt_IsDeterministicAcrossCalls(t *testing.T) {
	sig := New[analyzeInputs, analyzeOutputs](analyzeSpec())
	inputs := analyzeInputs{Code: "eval(x)", Language: "python"}

	p1, err := sig.ToPrompt(inputs)
	require.NoError(t, err)
	p2, err := sig.ToPrompt(inputs)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.Contains(t, p1, "## Task")
	assert.Contains(t, p1, "Source code to analyze")
}

func TestFromResponse_ExtractsFencedJSON(t *testing.T) {
	sig := New[analyzeInputs, analyzeOutputs](analyzeSpec())
	resp := "Here is my analysis:\n```json\n{\"vulnerabilities\": [\"sql_injection\"], \"severity\": \"high\"}\n```\nDone."

	out, err := sig.FromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "high", out.Severity)
	assert.Equal(t, []string{"sql_injection"}, out.Vulnerabilities)
}

func TestFromResponse_ExtractsRawBraces(t *testing.T) {
	sig := New[analyzeInputs, analyzeOutputs](analyzeSpec())
	resp := `some preamble {"vulnerabilities": [], "severity": "low"} trailing notes`

	out, err := sig.FromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "low", out.Severity)
}

func TestFromResponse_EmptyResponseError(t *testing.T) {
	sig := New[analyzeInputs, analyzeOutputs](analyzeSpec())
	_, err := sig.FromResponse("   ")
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ParseEmptyResponse, pe.Kind)
}

func TestFromResponse_ValidationCollectsAllErrors(t *testing.T) {
	sig := New[analyzeInputs, analyzeOutputs](analyzeSpec())
	resp := `{"severity": "not-a-real-severity"}`

	_, err := sig.FromResponse(resp)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ParseValidationFailed, pe.Kind)
	// Missing "vulnerabilities" AND invalid enum value for "severity" must
	// both be reported, not just the first violation encountered.
	assert.Len(t, pe.ValidationErrors, 2)
}

func TestExtractJSON_FourStageFallback(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, ExtractJSON("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, ExtractJSON(`noise {"a":1} noise`))
	assert.Equal(t, "not json at all", ExtractJSON("not json at all"))
}

func TestValidateFields_NestedListAndObject(t *testing.T) {
	fields := []FieldSpec{
		NewField("items", TList(TObject([]FieldSpec{
			NewField("name", TString()),
			NewField("count", TInteger()),
		}))),
	}
	value := map[string]any{
		"items": []any{
			map[string]any{"name": "a", "count": float64(1)},
			map[string]any{"name": "b", "count": "oops"},
		},
	}
	errs := ValidateFields(value, fields)
	require.Len(t, errs, 1)
	assert.Equal(t, "items[1].count", errs[0].Field)
}

func TestOutputSchema(t *testing.T) {
	sig := New[analyzeInputs, analyzeOutputs](analyzeSpec())
	schema := sig.OutputSchema()
	assert.Equal(t, "object", schema["type"])
	required := schema["required"].([]string)
	assert.Contains(t, required, "vulnerabilities")
	assert.Contains(t, required, "severity")
}
