package simulated

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/poiesic/minutia/core"
)

var (
	sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]?`)

	// "Alice will send the report by Friday."
	commitmentPattern = regexp.MustCompile(`^([A-Z][\w'-]*)\s+(?:will|agreed to|needs to|should|is going to|must)\s+(.+)$`)

	// "Bob: I'll review the budget."
	speakerPattern = regexp.MustCompile(`^([A-Z][\w'-]*):\s*I(?:'ll|\s+will|\s+can|\s+need to)\s+(.+)$`)

	decisionPattern = regexp.MustCompile(`(?i)\b(?:decided|agreed that|decision)\b`)
)

var pronouns = map[string]bool{"I": true, "We": true, "It": true, "They": true, "You": true, "This": true, "That": true}

// InsightsGenerator reads commitments and decisions out of the transcript.
type InsightsGenerator struct{}

// GenerateInsights never fails for non-empty input.
func (InsightsGenerator) GenerateInsights(ctx context.Context, transcript, systemPrompt string) (*core.Insights, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sentences := splitSentences(transcript)
	items := make([]core.ToDoItem, 0)
	for _, s := range sentences {
		if item, ok := parseItem(s); ok {
			items = append(items, item)
		}
	}

	overview := "Simulated summary: no discussion recorded."
	if len(sentences) > 0 {
		overview = fmt.Sprintf("Simulated summary of %d statements, opening with %q.", len(sentences), sentences[0])
	}
	if strings.Contains(systemPrompt, "Context #1:") {
		overview += " Related prior meetings were taken into account."
	}

	return core.NormalizeInsights(&core.Insights{Overview: overview, ToDoList: items}), nil
}

func splitSentences(text string) []string {
	var out []string
	for _, s := range sentencePattern.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseItem(sentence string) (core.ToDoItem, bool) {
	s := strings.TrimRight(sentence, ".!?")
	if m := speakerPattern.FindStringSubmatch(s); m != nil {
		return core.ToDoItem{Person: m[1], Task: m[2], Type: core.ItemTypeAction}, true
	}
	if m := commitmentPattern.FindStringSubmatch(s); m != nil && !pronouns[m[1]] {
		return core.ToDoItem{Person: m[1], Task: m[2], Type: core.ItemTypeAction}, true
	}
	if decisionPattern.MatchString(s) {
		return core.ToDoItem{Person: "Team", Task: s, Type: core.ItemTypeTakeaway}, true
	}
	return core.ToDoItem{}, false
}
