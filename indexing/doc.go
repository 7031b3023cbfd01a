// Package indexing embeds transcript chunks and writes them to the vector
// store under the chunk's project namespace.
//
// Record IDs are derived from project, date and chunk index, so indexing
// the same input twice leaves the store unchanged. Embedding and upsert
// errors are returned as is; there is no partial success.
package indexing
