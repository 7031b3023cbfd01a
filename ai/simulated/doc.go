// Package simulated provides a deterministic, offline ai.Provider.
//
// It needs no credentials and no network. Embeddings are feature-hashed
// bags of words, metadata comes from keyword heuristics, and insights are
// read from sentences such as "Alice will send the report by Friday.". The
// provider is the default when no remote endpoint is configured, and it
// drives the end-to-end tests of the pipeline.
package simulated
