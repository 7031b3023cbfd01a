package openai

import (
	"github.com/poiesic/minutia/ai"
	"github.com/tmc/langchaingo/llms/openai"
)

// newClient builds a langchaingo client for host. Azure deployments are
// addressed through the model name, so chat and embedding clients are
// created separately even when they share a host.
func newClient(config *ai.Config, host string, opts ...openai.Option) (*openai.LLM, error) {
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	token := config.APIKey
	if token == "" {
		token = "none"
	}

	base := []openai.Option{
		openai.WithBaseURL(host),
		openai.WithToken(token),
	}
	if config.Kind == ai.KindAzure {
		base = append(base,
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithAPIVersion(config.APIVersion),
		)
	}
	return openai.New(append(base, opts...)...)
}
