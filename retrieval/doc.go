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
// Package retrieval looks up prior meeting context for a transcript.
//
// A Retriever embeds the search query once and runs an ordered cascade of
// strategies against the vector store, stopping at the first one that
// returns matches:
//
//  1. namespace+department: the project's namespace, filtered by department
//  2. namespace: the project's namespace
//  3. all+department: every namespace, filtered by department
//  4. all: every namespace
//
// When all four come back empty the context is the empty string. A store
// error aborts the cascade.
package retrieval
