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


// Package ai provides abstractions for the AI services used by minutia.
//
// A Provider bundles three capabilities:
//
//   - Embedder: turns text into vectors
//   - InsightsGenerator: turns a transcript plus historical context into Insights
//   - MetadataExtractor: derives project, department and search string
//
// # Implementation Packages
//
//   - ai/openai: OpenAI and Azure OpenAI through langchaingo
//   - ai/simulated: deterministic offline heuristics, no network
//   - ai/local: in-process embedding model used as the embedding fallback
//   - ai/mock: test doubles with call counting and behavior injection
//
// Public constructors return interfaces; mock constructors return concrete
// types so tests can inspect call counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(
//	    ai.WithKind(ai.KindAzure),
//	    ai.WithHost("https://my-resource.openai.azure.com"),
//	    ai.WithAPIKey(key),
//	)
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	md, err := provider.MetadataExtractor().ExtractMetadata(ctx, transcript)
package ai
