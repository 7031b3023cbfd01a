// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/poiesic/minutia/ai"
	"github.com/poiesic/minutia/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// maxParseAttempts bounds re-asking the model after unparseable JSON.
const maxParseAttempts = 3

// MetadataExtractor implements ai.MetadataExtractor using JSON mode chat completions.
type MetadataExtractor struct {
	client llms.Model
	logger *slog.Logger
}

// newMetadataExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newMetadataExtractor(config *ai.Config) (*MetadataExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := newClient(config, config.ChatHost, openai.WithModel(config.ChatModel))
	if err != nil {
		return nil, err
	}

	return &MetadataExtractor{
		client: client,
		logger: slog.Default().With("component", "openai-metadata"),
	}, nil
}

// NewMetadataExtractor creates a new metadata extractor using the provided configuration.
//
// Returns ai.MetadataExtractor interface to enforce abstraction.
func NewMetadataExtractor(config *ai.Config) (ai.MetadataExtractor, error) {
	return newMetadataExtractor(config)
}

// ExtractMetadata asks the model for the transcript's project, department
// and search string. Transport errors are returned immediately; malformed
// JSON is retried up to maxParseAttempts times.
func (e *MetadataExtractor) ExtractMetadata(ctx context.Context, transcript string) (*core.Metadata, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, metadataSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, transcript),
	}

	var lastErr error
	for attempt := 0; attempt < maxParseAttempts; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			return nil, fmt.Errorf("%w: no choices returned", core.ErrMalformedResponse)
		}

		md, err := parseMetadata(response.Choices[0].Content)
		if err != nil {
			lastErr = err
			e.logger.Warn("error parsing metadata response",
				"attempt", attempt+1,
				"response", response.Choices[0].Content,
				"err", err)
			continue
		}

		e.logger.Debug("extracted metadata", "project", md.ProjectName, "department", md.Department)
		return md, nil
	}

	e.logger.Error("failed to parse metadata response after retries", "err", lastErr)
	return nil, lastErr
}

func parseMetadata(raw string) (*core.Metadata, error) {
	var md core.Metadata
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &md); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrMalformedResponse, err)
	}
	return &md, nil
}
