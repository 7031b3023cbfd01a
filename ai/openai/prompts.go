package openai

import "fmt"

const metadataSystemPrompt = `Extract metadata from the meeting transcript. Return JSON with: projectName, department, searchString.
Rules: Always provide non-empty values. Defaults: projectName='General Discussion', department='General', searchString should summarize ambiguous terms requiring context.`

const insightsToolDescription = "Extracts a meeting overview and a combined list of key takeaways and action items from a transcript."

const defaultSystemPrompt = "You are a helpful meeting assistant."

func buildInsightsUserPrompt(transcript string) string {
	return fmt.Sprintf("Analyze the following meeting transcript. Provide a concise summary and extract all action items.\n\nTranscript:\n---\n%s\n---", transcript)
}
