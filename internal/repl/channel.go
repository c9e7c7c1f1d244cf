package repl

import (
	"context"
	"sort"
	"strconv"
	"strings"
)

// Channel is the contract a proof-assistant REPL transport must satisfy.
// Failure model: execution errors surface as *ExecutionError; the channel
// is responsible for ordering responses deterministically with respect to
// requests (one request in flight at a time).
type Channel interface {
	ApplyTactic(ctx context.Context, tacticText string, proofState *uint64) (*Response, error)
	ActiveProofStateID() *uint64
	CurrentEnv() *uint64
	ExecuteCommand(ctx context.Context, code string) (*Response, error)
	Shutdown(ctx context.Context) error
}

// RenderDiagnostics produces the canonical deterministic error string for a
// response's Error-severity messages: per-message rendering, lexicographic
// sort, pipe-joined. Identical prover diagnostics always render
// byte-identically regardless of arrival order.
func RenderDiagnostics(resp *Response) string {
	var rendered []string
	for _, m := range resp.Messages {
		if m.Severity != SeverityError {
			continue
		}
		rendered = append(rendered, renderMessage(m))
	}
	if len(rendered) == 0 {
		return "lean diagnostic reported an unknown error"
	}
	sort.Strings(rendered)
	return strings.Join(rendered, " | ")
}

func renderMessage(m Message) string {
	location := ""
	if m.Pos != nil && m.EndPos != nil {
		location = formatRange(*m.Pos, *m.EndPos)
	} else if m.Pos != nil {
		location = formatPos(*m.Pos)
	}
	return location + strings.TrimSpace(m.Data)
}

func formatRange(start, end Position) string {
	return strconv.Itoa(start.Line) + ":" + strconv.Itoa(start.Column) + "-" +
		strconv.Itoa(end.Line) + ":" + strconv.Itoa(end.Column) + ": "
}

func formatPos(p Position) string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column) + ": "
}
