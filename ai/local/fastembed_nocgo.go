//go:build !cgo

package local

import (
	"fmt"

	"github.com/poiesic/minutia/core"
)

// ModelDim is the embedding length of the bundled model.
const ModelDim = 384

// FastEmbedLoader returns a Loader that always fails: the ONNX runtime
// needs cgo.
func FastEmbedLoader(string) Loader {
	return func() (Model, error) {
		return nil, fmt.Errorf("%w: local dependency %s is not available (binary built without cgo)", core.ErrConfiguration, Dependency)
	}
}
