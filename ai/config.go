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


package ai

import (
	"fmt"
	"strings"

	"github.com/poiesic/minutia/core"
)

// Kind selects the provider implementation.
type Kind string

const (
	// KindAzure talks to Azure OpenAI deployments.
	KindAzure Kind = "azure"
	// KindOpenAI talks to OpenAI or an OpenAI-compatible server.
	KindOpenAI Kind = "openai"
	// KindSimulated runs deterministic offline heuristics.
	KindSimulated Kind = "simulated"
)

// ParseKind converts a configured provider name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindAzure, KindOpenAI, KindSimulated:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown provider %q (want azure, openai or simulated)", core.ErrConfiguration, s)
}

// Config holds configuration for AI service providers.
type Config struct {
	// Kind selects the provider implementation.
	Kind Kind

	// APIKey authenticates against the remote service.
	// Local OpenAI-compatible servers accept any value.
	APIKey string

	// ChatHost is the base URL of the chat completion service.
	// For Azure this is the resource endpoint, e.g. "https://my-resource.openai.azure.com".
	ChatHost string

	// EmbeddingHost is the base URL of the embedding service.
	// Defaults to ChatHost when empty.
	EmbeddingHost string

	// ChatModel is the model or Azure deployment used for generation.
	ChatModel string

	// EmbeddingModel is the model or Azure deployment used for embeddings.
	EmbeddingModel string

	// APIVersion is the Azure OpenAI API version.
	APIVersion string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithKind sets the provider implementation.
func WithKind(kind Kind) ConfigOption {
	return func(c *Config) {
		c.Kind = kind
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithChatHost sets the chat service host URL.
func WithChatHost(host string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithHost sets both chat and embedding hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
		c.EmbeddingHost = host
	}
}

// WithChatModel sets the chat model or deployment.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// WithEmbeddingModel sets the embedding model or deployment.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithAPIVersion sets the Azure API version.
func WithAPIVersion(version string) ConfigOption {
	return func(c *Config) {
		c.APIVersion = version
	}
}

// DefaultConfig returns a Config for the simulated provider with Azure
// style model defaults, so switching Kind is enough to go remote.
func DefaultConfig() *Config {
	return &Config{
		Kind:           KindSimulated,
		ChatModel:      "gpt-5",
		EmbeddingModel: "text-embedding-3-large",
		APIVersion:     "2025-01-01-preview",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithKind(KindAzure),
//	    WithHost("https://my-resource.openai.azure.com"),
//	    WithAPIKey(os.Getenv("AZURE_OPENAI_API_KEY")),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// Trailing slashes are removed, the embedding host falls back to the chat
// host, and OpenAI-compatible hosts get the /v1 suffix most servers expect.
func (c *Config) Normalize() {
	c.ChatHost = strings.TrimSuffix(strings.TrimSpace(c.ChatHost), "/")
	c.EmbeddingHost = strings.TrimSuffix(strings.TrimSpace(c.EmbeddingHost), "/")
	if c.EmbeddingHost == "" {
		c.EmbeddingHost = c.ChatHost
	}
	if c.Kind != KindOpenAI {
		return
	}
	if c.ChatHost != "" && !strings.HasSuffix(c.ChatHost, "/v1") {
		c.ChatHost = c.ChatHost + "/v1"
	}
	if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = c.EmbeddingHost + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
// Errors wrap core.ErrConfiguration and name the missing setting.
func (c *Config) Validate() error {
	c.Normalize()

	if _, err := ParseKind(string(c.Kind)); err != nil {
		return err
	}
	if c.Kind == KindSimulated {
		return nil
	}

	if c.ChatHost == "" {
		return missing("ChatHost")
	}
	if c.ChatModel == "" {
		return missing("ChatModel")
	}
	if c.EmbeddingModel == "" {
		return missing("EmbeddingModel")
	}
	if c.Kind == KindAzure {
		if c.APIKey == "" {
			return missing("APIKey")
		}
		if c.APIVersion == "" {
			return missing("APIVersion")
		}
	}
	return nil
}

func missing(setting string) error {
	return fmt.Errorf("%w: ai config: %s is required", core.ErrConfiguration, setting)
}
