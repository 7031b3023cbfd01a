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


// Package storage defines the vector index used by minutia.
//
// A VectorStore holds IndexRecords partitioned into namespaces, one
// namespace per project. Records carry a fixed-dimension vector and flat
// metadata (project, department, date, chunk index, text) that queries may
// filter on by exact match.
//
// # Backends
//
//   - chromem: embedded chromem-go database, in memory or persisted to disk
//   - badger: BadgerDB key/value store with brute-force cosine ranking
//   - qdrant: a remote Qdrant collection shared by all namespaces
//
// Every backend ranks results by descending similarity with ties broken by
// ascending record ID, so identical inputs produce identical orderings.
//
// # Re-indexing
//
// Backends that can enumerate their contents also implement RecordScanner,
// which the reindex package uses to re-embed records in batches.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
package storage
