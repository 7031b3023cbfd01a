// Package local embeds text on the local machine with a small ONNX model.
//
// The model is owned by a Handle that loads it lazily on first use and
// keeps it for the life of the process. Concurrent first callers share one
// initialisation. Binaries built without cgo get a loader that always fails
// with core.ErrConfiguration.
package local
