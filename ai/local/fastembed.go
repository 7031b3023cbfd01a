//go:build cgo

package local

import (
	"fmt"
	"path/filepath"

	"github.com/anush008/fastembed-go"
	"github.com/poiesic/minutia/core"
)

// ModelDim is the embedding length of the bundled model.
const ModelDim = 384

// passageBatchSize is the batch size handed to fastembed.
const passageBatchSize = 256

type fastembedModel struct {
	flag *fastembed.FlagEmbedding
}

// FastEmbedLoader returns a Loader for all-MiniLM-L6-v2, cached under
// cacheDir ("local_cache" when empty).
func FastEmbedLoader(cacheDir string) Loader {
	return func() (Model, error) {
		if cacheDir == "" {
			cacheDir = filepath.Join(".", "local_cache")
		}
		showProgress := false
		flag, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
			Model:                fastembed.AllMiniLML6V2,
			CacheDir:             cacheDir,
			MaxLength:            512,
			ShowDownloadProgress: &showProgress,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: local dependency %s failed to load: %w", core.ErrConfiguration, Dependency, err)
		}
		return &fastembedModel{flag: flag}, nil
	}
}

func (m *fastembedModel) Embed(texts []string) ([][]float32, error) {
	return m.flag.PassageEmbed(texts, passageBatchSize)
}

func (m *fastembedModel) Close() error {
	return m.flag.Destroy()
}
