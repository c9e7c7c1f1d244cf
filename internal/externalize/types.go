// Package externalize implements the context-as-variable pattern: the root
// LLM sees only a query and variable summaries, while the full context
// lives in the REPL namespace and is fetched on demand via helpers.
package externalize

import (
	"fmt"
	"sort"
)

// Size thresholds for context variables.
const (
	WarnSizeBytes          = 100 * 1024
	RequireChunkingBytes   = 1024 * 1024
)

// VarType classifies a context variable's origin.
type VarType struct {
	Kind       string // conversation | files | tool_outputs | working_memory | custom
	CustomName string
}

var (
	VarConversation   = VarType{Kind: "conversation"}
	VarFiles          = VarType{Kind: "files"}
	VarToolOutputs    = VarType{Kind: "tool_outputs"}
	VarWorkingMemory  = VarType{Kind: "working_memory"}
)

// VarCustom builds a custom variable type.
func VarCustom(name string) VarType {
	return VarType{Kind: "custom", CustomName: name}
}

// String renders the variable type label.
func (t VarType) String() string {
	if t.Kind == "custom" {
		return t.CustomName
	}
	return t.Kind
}

// Variable is one context variable tracked in the REPL namespace: its
// summary is what reaches the LLM, never its full content.
type Variable struct {
	Name             string
	Type             VarType
	SizeBytes        int
	Summary          string
	SizeWarning      bool
	RequiresChunking bool
	ItemCount        int
}

// NewVariable builds a Variable, computing its summary and size flags.
func NewVariable(name string, varType VarType, sizeBytes, itemCount int) Variable {
	return Variable{
		Name:             name,
		Type:             varType,
		SizeBytes:        sizeBytes,
		Summary:          generateSummary(varType, itemCount, sizeBytes),
		SizeWarning:      sizeBytes > WarnSizeBytes,
		RequiresChunking: sizeBytes > RequireChunkingBytes,
		ItemCount:        itemCount,
	}
}

func generateSummary(varType VarType, count, size int) string {
	sizeStr := formatSize(size)
	switch varType.Kind {
	case "conversation":
		return fmt.Sprintf("%d messages (~%s)", count, sizeStr)
	case "files":
		return fmt.Sprintf("%d files (~%s)", count, sizeStr)
	case "tool_outputs":
		return fmt.Sprintf("%d tool outputs (~%s)", count, sizeStr)
	case "working_memory":
		return fmt.Sprintf("%d entries (~%s)", count, sizeStr)
	default:
		return fmt.Sprintf("%s: %d items (~%s)", varType.CustomName, count, sizeStr)
	}
}

func formatSize(size int) string {
	switch {
	case size < 1024:
		return fmt.Sprintf("%d bytes", size)
	case size < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024.0)
	default:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024.0*1024.0))
	}
}

// SizeTracker monitors context variable sizes over time, computing growth
// rates and emitting size-ceiling warnings.
type SizeTracker struct {
	History    map[string][]int
	Current    map[string]int
	TotalBytes int
}

// NewSizeTracker returns an empty tracker.
func NewSizeTracker() *SizeTracker {
	return &SizeTracker{History: make(map[string][]int), Current: make(map[string]int)}
}

// Update records a new size observation for name.
func (t *SizeTracker) Update(name string, size int) {
	t.History[name] = append(t.History[name], size)
	if old, ok := t.Current[name]; ok {
		t.TotalBytes -= old
		if t.TotalBytes < 0 {
			t.TotalBytes = 0
		}
	}
	t.Current[name] = size
	t.TotalBytes += size
}

// ExceedsWarning reports whether name's current size trips the warning
// threshold.
func (t *SizeTracker) ExceedsWarning(name string) bool {
	return t.Current[name] > WarnSizeBytes
}

// RequiresChunking reports whether name's current size trips the
// chunking-required threshold.
func (t *SizeTracker) RequiresChunking(name string) bool {
	return t.Current[name] > RequireChunkingBytes
}

// GrowthRate returns the mean per-update byte delta for name, or false if
// fewer than two observations have been recorded.
func (t *SizeTracker) GrowthRate(name string) (float64, bool) {
	history := t.History[name]
	if len(history) < 2 {
		return 0, false
	}
	var total float64
	for i := 1; i < len(history); i++ {
		total += float64(history[i] - history[i-1])
	}
	return total / float64(len(history)-1), true
}

// Warnings renders one line per variable exceeding a size threshold,
// sorted by variable name for deterministic output.
func (t *SizeTracker) Warnings() []string {
	names := make([]string, 0, len(t.Current))
	for name := range t.Current {
		names = append(names, name)
	}
	sort.Strings(names)

	var warnings []string
	for _, name := range names {
		size := t.Current[name]
		switch {
		case size > RequireChunkingBytes:
			warnings = append(warnings, fmt.Sprintf(
				"%s exceeds %dMB (%.1fMB) - chunking required", name, RequireChunkingBytes/(1024*1024), float64(size)/(1024.0*1024.0)))
		case size > WarnSizeBytes:
			warnings = append(warnings, fmt.Sprintf(
				"%s exceeds %dKB (%.1fKB)", name, WarnSizeBytes/1024, float64(size)/1024.0))
		}
	}
	return warnings
}
