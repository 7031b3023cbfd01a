// Package reindex re-embeds every record in a vector store with the
// current embedder and writes it back under the same ID.
//
// Use it after switching embedding models or changing the index
// dimension. Records are read namespace by namespace in batches; each
// batch is embedded with retry and exponential backoff, adapted to the
// store's dimension and upserted. Progress is written to an io.Writer.
package reindex
