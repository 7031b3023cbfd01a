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


// Package openai provides AI service implementations for OpenAI and Azure OpenAI.
//
// This package implements the ai.Provider interface using the langchaingo
// library. Azure deployments are selected with ai.KindAzure, which switches the
// client to Azure URL routing and api-version handling; ai.KindOpenAI targets
// api.openai.com or any OpenAI-compatible server.
//
// Embeddings are requested one text per call. Insights are produced through a
// forced call of the extract_meeting_insights tool, and metadata through JSON mode.
//
// # Usage
//
//	cfg := ai.NewConfig(
//	    ai.WithKind(ai.KindAzure),
//	    ai.WithChatHost("https://my-resource.openai.azure.com"),
//	    ai.WithAPIKey(key),
//	    ai.WithChatModel("gpt-5"),
//	    ai.WithEmbeddingModel("text-embedding-3-large"),
//	)
//
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vectors, err := provider.Embedder().EmbedTexts(ctx, chunks)
package openai
