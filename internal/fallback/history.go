package fallback

import (
	"fmt"
	"strings"
)

// History is the chronological REPL execution trace fed both to fallback
// triggering and to the extraction prompt.
type History struct {
	Entries        []HistoryEntry
	IterationCount int
	LLMCallCount   int
	TotalTimeMs    uint64
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// AddCode records an executed code entry and bumps the iteration count.
func (h *History) AddCode(code string, timestampMs uint64) {
	h.Entries = append(h.Entries, HistoryEntry{Type: EntryCode, Content: code, TimestampMs: timestampMs})
	h.IterationCount++
}

// AddOutput records an execution output entry.
func (h *History) AddOutput(output string, timestampMs uint64) {
	h.Entries = append(h.Entries, HistoryEntry{Type: EntryOutput, Content: output, TimestampMs: timestampMs})
}

// AddError records an execution error entry.
func (h *History) AddError(errMsg string, timestampMs uint64) {
	h.Entries = append(h.Entries, HistoryEntry{Type: EntryError, Content: errMsg, TimestampMs: timestampMs})
}

// AddLLMQuery records an LLM query entry and bumps the LLM-call count.
func (h *History) AddLLMQuery(query string, timestampMs uint64) {
	h.Entries = append(h.Entries, HistoryEntry{Type: EntryLLMQuery, Content: query, TimestampMs: timestampMs})
	h.LLMCallCount++
}

// AddLLMResponse records an LLM response entry.
func (h *History) AddLLMResponse(response string, timestampMs uint64) {
	h.Entries = append(h.Entries, HistoryEntry{Type: EntryLLMResponse, Content: response, TimestampMs: timestampMs})
}

const entryContentTruncateAt = 500

// FormatForPrompt renders the history for inclusion in an extraction
// prompt. When entries exceed maxEntries, it keeps the first third and the
// last two-thirds, with a summary marker for what was dropped in between —
// early setup and the most recent state both matter more than the middle.
func (h *History) FormatForPrompt(maxEntries int) string {
	entries := h.Entries
	if len(entries) > maxEntries {
		takeStart := maxEntries / 3
		takeEnd := maxEntries - takeStart
		omitted := len(entries) - maxEntries

		var windowed []HistoryEntry
		windowed = append(windowed, entries[:takeStart]...)
		windowed = append(windowed, HistoryEntry{
			Type:    EntryOutput,
			Content: fmt.Sprintf("... [%d entries omitted] ...", omitted),
		})
		windowed = append(windowed, entries[len(entries)-takeEnd:]...)
		entries = windowed
	}

	var b strings.Builder
	for _, entry := range entries {
		prefix := entryPrefix(entry.Type)
		content := entry.Content
		if len(content) > entryContentTruncateAt {
			content = content[:entryContentTruncateAt] + "... [truncated]"
		}
		for _, line := range strings.Split(content, "\n") {
			b.WriteString(prefix)
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func entryPrefix(t HistoryEntryType) string {
	switch t {
	case EntryCode:
		return ">>> "
	case EntryOutput:
		return "    "
	case EntryError:
		return "!!! "
	case EntryLLMQuery:
		return "[LLM Query] "
	case EntryLLMResponse:
		return "[LLM Response] "
	case EntryVariableSet:
		return "[Set] "
	default:
		return ""
	}
}
