package externalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVariable_SizeWarningThresholds(t *testing.T) {
	small := NewVariable("files", VarFiles, 50*1024, 10)
	assert.False(t, small.SizeWarning)
	assert.False(t, small.RequiresChunking)

	warn := NewVariable("files", VarFiles, 150*1024, 10)
	assert.True(t, warn.SizeWarning)
	assert.False(t, warn.RequiresChunking)

	chunk := NewVariable("files", VarFiles, 2*1024*1024, 50)
	assert.True(t, chunk.SizeWarning)
	assert.True(t, chunk.RequiresChunking)
}

func TestSizeTracker_GrowthRate(t *testing.T) {
	tracker := NewSizeTracker()
	_, ok := tracker.GrowthRate("conversation")
	assert.False(t, ok, "need 2+ points before a growth rate can be reported")

	tracker.Update("conversation", 100)
	tracker.Update("conversation", 300)
	tracker.Update("conversation", 500)

	rate, ok := tracker.GrowthRate("conversation")
	require.True(t, ok)
	assert.Equal(t, 200.0, rate)
}

func TestSizeTracker_TotalBytesAccountsForReplacement(t *testing.T) {
	tracker := NewSizeTracker()
	tracker.Update("a", 100)
	tracker.Update("b", 200)
	assert.Equal(t, 300, tracker.TotalBytes)

	tracker.Update("a", 150)
	assert.Equal(t, 350, tracker.TotalBytes)
}

// TestFromSessionWithConfig_RootPromptOmitsFullContent matches scenario
// S6: the root prompt must surface only summaries, never the raw message
// or file content.
func TestFromSessionWithConfig_RootPromptOmitsFullContent(t *testing.T) {
	ctx := NewSessionContext()
	secretContent := "THIS-EXACT-STRING-MUST-NOT-LEAK-INTO-THE-ROOT-PROMPT"
	ctx.Messages = []Message{{Role: "user", Content: secretContent}}
	ctx.Files["main.go"] = strings.Repeat("x", 2000)

	ec := FromSession(ctx, "summarize the repo")
	prompt := ec.RootPrompt()

	assert.Contains(t, prompt, "summarize the repo")
	assert.Contains(t, prompt, "1 messages")
	assert.NotContains(t, prompt, secretContent)
	assert.Contains(t, prompt, "DO NOT ask for the full context")
}

func TestRootPromptWithConfig_OmitsDisabledSections(t *testing.T) {
	ctx := NewSessionContext()
	ctx.Files["big.txt"] = strings.Repeat("y", 200*1024)

	ec := FromSession(ctx, "q")
	prompt := ec.RootPromptWithConfig(RootPromptConfig{IncludeHelperDocs: false, IncludeWarnings: false, IncludeInstructions: false})

	assert.NotContains(t, prompt, "Context Access Helpers")
	assert.NotContains(t, prompt, "Warnings")
	assert.NotContains(t, prompt, "DO NOT ask")
}

func TestIsWithinLimits(t *testing.T) {
	ctx := NewSessionContext()
	ctx.Files["huge.txt"] = strings.Repeat("z", 2*1024*1024)
	ec := FromSession(ctx, "q")

	assert.False(t, ec.IsWithinLimits())
	require.Len(t, ec.VariablesRequiringChunking(), 1)
	assert.Equal(t, "files", ec.VariablesRequiringChunking()[0].Name)
}
