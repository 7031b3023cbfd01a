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
	"strings"

	"github.com/poiesic/minutia/ai"
	"github.com/poiesic/minutia/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// InsightsGenerator implements ai.InsightsGenerator by forcing the model to
// call the extract_meeting_insights tool.
type InsightsGenerator struct {
	client llms.Model
	logger *slog.Logger
}

// insightsArgs matches the tool's argument schema.
type insightsArgs struct {
	Overview string          `json:"overview"`
	Summary  string          `json:"summary"`
	ToDoList []core.ToDoItem `json:"toDoList"`
}

// newInsightsGenerator is an internal constructor that returns the concrete type.
func newInsightsGenerator(config *ai.Config) (*InsightsGenerator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := newClient(config, config.ChatHost, openai.WithModel(config.ChatModel))
	if err != nil {
		return nil, err
	}

	return &InsightsGenerator{
		client: client,
		logger: slog.Default().With("component", "openai-insights"),
	}, nil
}

// NewInsightsGenerator creates a new insights generator using the provided configuration.
//
// Returns ai.InsightsGenerator interface to enforce abstraction.
func NewInsightsGenerator(config *ai.Config) (ai.InsightsGenerator, error) {
	return newInsightsGenerator(config)
}

// GenerateInsights analyzes the transcript. Failures are returned as is;
// generation is never retried.
func (g *InsightsGenerator) GenerateInsights(ctx context.Context, transcript, systemPrompt string) (*core.Insights, error) {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, buildInsightsUserPrompt(transcript)),
	}

	tool := llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        ai.InsightsToolName,
			Description: insightsToolDescription,
			Parameters:  ai.InsightsSchema,
		},
	}

	response, err := g.client.GenerateContent(ctx, content,
		llms.WithTools([]llms.Tool{tool}),
		llms.WithToolChoice(llms.ToolChoice{
			Type:     "function",
			Function: &llms.FunctionReference{Name: ai.InsightsToolName},
		}),
	)
	if err != nil {
		g.logger.Error("failed to generate insights", "err", err)
		return nil, err
	}

	if len(response.Choices) < 1 {
		return nil, fmt.Errorf("%w: no choices returned", core.ErrMalformedResponse)
	}

	insights, err := parseInsightsChoice(response.Choices[0])
	if err != nil {
		g.logger.Error("invalid insights response", "err", err)
		return nil, err
	}

	g.logger.Debug("generated insights", "items", len(insights.ToDoList))
	return insights, nil
}

// parseInsightsChoice reads the tool call arguments, falling back to the
// legacy function call field and finally to JSON in the message content.
func parseInsightsChoice(choice *llms.ContentChoice) (*core.Insights, error) {
	var raw string
	for _, call := range choice.ToolCalls {
		if call.FunctionCall != nil && call.FunctionCall.Name == ai.InsightsToolName {
			raw = call.FunctionCall.Arguments
			break
		}
	}
	if raw == "" && choice.FuncCall != nil && choice.FuncCall.Name == ai.InsightsToolName {
		raw = choice.FuncCall.Arguments
	}
	if raw == "" {
		raw = choice.Content
	}
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: missing %s tool call", core.ErrMalformedResponse, ai.InsightsToolName)
	}

	return parseInsightsArgs(raw)
}

func parseInsightsArgs(raw string) (*core.Insights, error) {
	var args insightsArgs
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &args); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrMalformedResponse, err)
	}

	overview := args.Overview
	if overview == "" {
		overview = args.Summary
	}
	return core.NormalizeInsights(&core.Insights{
		Overview: overview,
		ToDoList: args.ToDoList,
	}), nil
}
