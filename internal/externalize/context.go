package externalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Config controls which session-context facets get externalized.
type Config struct {
	ExternalizeConversation  bool
	ExternalizeFiles         bool
	ExternalizeToolOutputs   bool
	ExternalizeWorkingMemory bool
}

// DefaultConfig externalizes every facet.
func DefaultConfig() Config {
	return Config{true, true, true, true}
}

// RootPromptConfig controls which optional sections the root prompt
// includes.
type RootPromptConfig struct {
	IncludeHelperDocs   bool
	IncludeWarnings     bool
	IncludeInstructions bool
}

// DefaultRootPromptConfig includes every optional section.
func DefaultRootPromptConfig() RootPromptConfig {
	return RootPromptConfig{true, true, true}
}

// ExternalizedContext is what the root LLM actually sees: a query plus
// variable summaries. The variables' full content never appears here.
type ExternalizedContext struct {
	Query          string
	Variables      map[string]Variable
	TotalSizeBytes int
	Warnings       []string
}

// FromSession builds an externalized context using DefaultConfig.
func FromSession(ctx *SessionContext, query string) *ExternalizedContext {
	return FromSessionWithConfig(ctx, query, DefaultConfig())
}

// FromSessionWithConfig builds an externalized context, computing a
// summary-only Variable for each enabled, non-empty facet of ctx.
func FromSessionWithConfig(ctx *SessionContext, query string, config Config) *ExternalizedContext {
	variables := make(map[string]Variable)
	var warnings []string
	total := 0

	if len(ctx.Messages) > 0 && config.ExternalizeConversation {
		size := 0
		for _, m := range ctx.Messages {
			size += len(m.Content) + 50
		}
		v := NewVariable("conversation", VarConversation, size, len(ctx.Messages))
		if v.SizeWarning {
			warnings = append(warnings, fmt.Sprintf("conversation exceeds %dKB (%d bytes)", WarnSizeBytes/1024, size))
		}
		total += size
		variables["conversation"] = v
	}

	if len(ctx.Files) > 0 && config.ExternalizeFiles {
		size := 0
		for _, content := range ctx.Files {
			size += len(content)
		}
		v := NewVariable("files", VarFiles, size, len(ctx.Files))
		if v.SizeWarning {
			warnings = append(warnings, fmt.Sprintf("files exceed %dKB (%d bytes)", WarnSizeBytes/1024, size))
		}
		if v.RequiresChunking {
			warnings = append(warnings, fmt.Sprintf("files exceed %dMB - chunking required", RequireChunkingBytes/(1024*1024)))
		}
		total += size
		variables["files"] = v
	}

	if len(ctx.ToolOutputs) > 0 && config.ExternalizeToolOutputs {
		size := 0
		for _, o := range ctx.ToolOutputs {
			size += len(o.Content) + len(o.ToolName) + 50
		}
		v := NewVariable("tool_outputs", VarToolOutputs, size, len(ctx.ToolOutputs))
		if v.SizeWarning {
			warnings = append(warnings, fmt.Sprintf("tool_outputs exceed %dKB (%d bytes)", WarnSizeBytes/1024, size))
		}
		total += size
		variables["tool_outputs"] = v
	}

	if len(ctx.WorkingMemory) > 0 && config.ExternalizeWorkingMemory {
		size := 0
		for k, v := range ctx.WorkingMemory {
			size += len(k) + len(fmt.Sprintf("%v", v))
		}
		v := NewVariable("working_memory", VarWorkingMemory, size, len(ctx.WorkingMemory))
		total += size
		variables["working_memory"] = v
	}

	return &ExternalizedContext{Query: query, Variables: variables, TotalSizeBytes: total, Warnings: warnings}
}

// sortedVariableNames returns variable names in sorted order, so prompt
// sections render deterministically regardless of map iteration order.
func (c *ExternalizedContext) sortedVariableNames() []string {
	names := make([]string, 0, len(c.Variables))
	for name := range c.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RootPrompt renders the root-LLM prompt using DefaultRootPromptConfig.
func (c *ExternalizedContext) RootPrompt() string {
	return c.RootPromptWithConfig(DefaultRootPromptConfig())
}

// RootPromptWithConfig renders the root prompt: the query, variable
// summaries, optional helper documentation, optional warnings, and
// optional instructions — in that order, each section present only when
// its content is non-empty and its config flag is set.
func (c *ExternalizedContext) RootPromptWithConfig(config RootPromptConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Query\n\n%s\n\n", c.Query)

	if len(c.Variables) > 0 {
		b.WriteString("## Available Context Variables\n\n")
		b.WriteString("The following context is available as variables in the REPL.\n")
		b.WriteString("Use the helper functions to access them efficiently.\n\n")
		for _, name := range c.sortedVariableNames() {
			fmt.Fprintf(&b, "- **%s**: %s\n", name, c.Variables[name].Summary)
		}
		b.WriteString("\n")
	}

	if config.IncludeHelperDocs && len(c.Variables) > 0 {
		b.WriteString("## Context Access Helpers\n\n```\n")
		b.WriteString("# Slice messages (start/end are indices)\n")
		b.WriteString("peek(conversation, start=0, end=10)\n\n")
		b.WriteString("# Search in files by regex pattern\n")
		b.WriteString("search(files, pattern=\"func.*Auth\")\n\n")
		b.WriteString("# Summarize a tool output\n")
		b.WriteString("summarize(tool_outputs[-1])\n\n")
		b.WriteString("# Get length of any context variable\n")
		b.WriteString("len(conversation)\n```\n\n")
	}

	if config.IncludeWarnings && len(c.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range c.Warnings {
			fmt.Fprintf(&b, "- warning: %s\n", w)
		}
		b.WriteString("\n")
	}

	if config.IncludeInstructions {
		b.WriteString("## Instructions\n\n")
		b.WriteString("DO NOT ask for the full context to be pasted. Instead, use the REPL helpers above ")
		b.WriteString("to access exactly what you need. This keeps the conversation efficient.\n")
	}

	return b.String()
}

// ReplSetupCode renders the REPL-namespace initialization code for every
// externalized variable present in c, truncating very long values.
func (c *ExternalizedContext) ReplSetupCode(ctx *SessionContext) string {
	var b strings.Builder
	b.WriteString("# context variable setup\n\n")

	if _, ok := c.Variables["conversation"]; ok {
		b.WriteString("conversation = [\n")
		for _, m := range ctx.Messages {
			content := truncateForSetup(m.Content, 1000)
			fmt.Fprintf(&b, "    {\"role\": %q, \"content\": %q},\n", m.Role, content)
		}
		b.WriteString("]\n\n")
	}

	if _, ok := c.Variables["files"]; ok {
		b.WriteString("files = {\n")
		names := make([]string, 0, len(ctx.Files))
		for name := range ctx.Files {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			content := truncateForSetup(ctx.Files[name], 5000)
			fmt.Fprintf(&b, "    %q: %q,\n", name, content)
		}
		b.WriteString("}\n\n")
	}

	if _, ok := c.Variables["tool_outputs"]; ok {
		b.WriteString("tool_outputs = [\n")
		for _, o := range ctx.ToolOutputs {
			content := truncateForSetup(o.Content, 2000)
			exitCode := 0
			if o.ExitCode != nil {
				exitCode = *o.ExitCode
			}
			fmt.Fprintf(&b, "    {\"tool\": %q, \"content\": %q, \"exit_code\": %d},\n", o.ToolName, content, exitCode)
		}
		b.WriteString("]\n\n")
	}

	if _, ok := c.Variables["working_memory"]; ok {
		b.WriteString("working_memory = ")
		if encoded, err := json.MarshalIndent(ctx.WorkingMemory, "", "  "); err == nil {
			b.Write(encoded)
		} else {
			b.WriteString("{}")
		}
		b.WriteString("\n\n")
	}

	return b.String()
}

func truncateForSetup(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...[truncated]"
}

// IsWithinLimits reports whether the context's total size stays at or
// below the chunking-required ceiling.
func (c *ExternalizedContext) IsWithinLimits() bool {
	return c.TotalSizeBytes <= RequireChunkingBytes
}

// VariablesRequiringChunking returns, in name-sorted order, every
// variable whose size trips the chunking-required threshold.
func (c *ExternalizedContext) VariablesRequiringChunking() []Variable {
	var out []Variable
	for _, name := range c.sortedVariableNames() {
		if v := c.Variables[name]; v.RequiresChunking {
			out = append(out, v)
		}
	}
	return out
}
