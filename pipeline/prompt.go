package pipeline

import (
	"fmt"
	"strings"
)

// DefaultSystemPrompt opens the composite prompt.
const DefaultSystemPrompt = "You are an expert meeting analyst. Use the provided Context Snippets to disambiguate vague terms."

const noContext = "No relevant historical context found."

const instructions = "INSTRUCTIONS: Generate a detailed Summary, a specific To-Do List, and clear Action Items. " +
	"Use the historical context to resolve any ambiguities in the current transcript."

// BuildPrompt assembles the generation prompt from retrieved context and
// the transcript.
func BuildPrompt(systemPrompt, projectName, context, transcript string) string {
	if strings.TrimSpace(context) == "" {
		context = noContext
	}

	var b strings.Builder
	if systemPrompt != "" {
		b.WriteString(systemPrompt)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "--- HISTORICAL CONTEXT (Project: %s) ---\n", projectName)
	b.WriteString(context)
	b.WriteString("\n--- END OF HISTORICAL CONTEXT ---\n\n")
	b.WriteString("--- CURRENT MEETING TRANSCRIPT ---\n")
	b.WriteString(transcript)
	b.WriteString("\n---\n\n")
	b.WriteString(instructions)
	return b.String()
}
