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
// Package pipeline runs the contextual analysis of one meeting transcript.
//
// Stages run sequentially:
//
//  1. extract_metadata: project, department and search string
//  2. embed_and_store_current: chunk and index the transcript
//  3. retrieve_context: run the retrieval cascade for prior meetings
//  4. generate_insights: overview and to-do list from the composite prompt
//  5. store_insights: index the insights so later meetings can find them
//
// Any stage failure stops the run and is returned as a *StageError. Work
// already done by earlier stages is kept; in particular the transcript
// stays indexed when generation fails.
//
// Batch analyses many transcripts concurrently on a worker pool. Each run
// is still sequential internally.
package pipeline
